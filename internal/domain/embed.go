package domain

import (
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hatsu-chat/backend/internal/entity"
	"github.com/mitchellh/mapstructure"
)

// Fractional seconds are accepted by every layout with seconds. A timestamp
// without offset is UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

const (
	maxEmbeds                 = 10
	maxEmbedTitleLength       = 40
	maxEmbedDescriptionLength = 200
	maxEmbedColor             = 0xFFFFFF
)

// sanitizeEmbeds keeps every valid part of the raw embeds. Invalid or oversized
// fields are dropped one by one, an embed with nothing left is dropped too.
// Nothing here ever rejects the message.
func sanitizeEmbeds(raws []map[string]any) entity.Array[entity.Embed] {
	result := entity.Array[entity.Embed]{}
	for _, raw := range raws {
		if len(result) >= maxEmbeds {
			break
		}

		embed := sanitizeEmbed(raw)
		if !embed.IsEmpty() {
			result = append(result, embed)
		}
	}

	return result
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func sanitizeEmbed(raw map[string]any) entity.Embed {
	embed := entity.Embed{}

	if title, ok := raw["title"].(string); ok && utf8.RuneCountInString(title) <= maxEmbedTitleLength {
		embed.Title = title
	}

	description, ok := raw["description"].(string)
	if ok && utf8.RuneCountInString(description) <= maxEmbedDescriptionLength {
		embed.Description = description
	}

	if u, ok := raw["url"].(string); ok && isHTTPURL(u) {
		embed.URL = u
	}

	if ts, ok := raw["timestamp"].(string); ok {
		if t, ok := parseTimestamp(ts); ok {
			embed.Timestamp = t.Format(time.RFC3339Nano)
		}
	}

	if color, ok := toColor(raw["color"]); ok {
		embed.Color = &color
	}

	if fields, ok := raw["fields"].([]any); ok {
		for _, f := range fields {
			var field entity.EmbedField
			if err := mapstructure.Decode(f, &field); err != nil {
				continue
			}

			if field.Name == "" || field.Value == "" {
				continue
			}

			embed.Fields = append(embed.Fields, field)
		}
	}

	if a, ok := raw["author"].(map[string]any); ok {
		var author entity.EmbedAuthor
		if err := mapstructure.Decode(a, &author); err == nil && strings.TrimSpace(author.Name) != "" {
			if !isHTTPURL(author.URL) {
				author.URL = ""
			}

			if !isHTTPURL(author.AvatarURL) {
				author.AvatarURL = ""
			}

			embed.Author = &author
		}
	}

	return embed
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// toColor accepts integral numbers only. JSON numbers are decoded as float64.
func toColor(v any) (int, bool) {
	var color int
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		color = int(n)
	case int:
		color = n
	case int64:
		color = int(n)
	default:
		return 0, false
	}

	if color < 0 || color > maxEmbedColor {
		return 0, false
	}

	return color, true
}
