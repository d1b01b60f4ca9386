package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hatsu-chat/backend/internal/domain/notification/dispatcher"
	"github.com/hatsu-chat/backend/internal/domain/notification/event"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1024
	maxMessageLength     = 5000
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.]*$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)
	mentionRegex  = regexp.MustCompile(`<@!?(\d+)>`)
)

func checkUsername(username string) error {
	if utf8.RuneCountInString(username) < 2 {
		return errorx.New(errorx.BadRequest, "Username too short (at least 2 characters)")
	}

	if utf8.RuneCountInString(username) > 32 {
		return errorx.New(errorx.BadRequest, "Username too long (at most 32 characters)")
	}

	if !usernameRegex.MatchString(username) {
		return errorx.New(errorx.BadRequest, "Username contains invalid characters")
	}

	return nil
}

// checkDiscriminator accepts exactly four digits. "0000" is reserved.
func checkDiscriminator(discriminator string) error {
	if len(discriminator) != 4 {
		return errorx.New(errorx.BadRequest, "Discriminator must have exactly 4 characters")
	}

	for _, c := range discriminator {
		if c < '0' || c > '9' {
			return errorx.New(errorx.BadRequest, "Discriminator must contain only digits")
		}
	}

	if discriminator == "0000" {
		return errorx.New(errorx.BadRequest, "Discriminator 0000 is reserved")
	}

	return nil
}

func checkEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return errorx.New(errorx.BadRequest, "Invalid email")
	}

	return nil
}

func checkPassword(password string) error {
	if len(password) < 6 {
		return errorx.New(errorx.BadRequest, "Password too short (at least 6 characters)")
	}

	if len(password) > 72 {
		return errorx.New(errorx.BadRequest, "Password too long (at most 72 bytes)")
	}

	return nil
}

// checkName trims name and validates it as a required field.
func checkName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errorx.New(errorx.BadRequest, "Missing field %s", field)
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return "", errorx.New(errorx.BadRequest, "Field %s too long (at most %d characters)", field, maxNameLength)
	}

	return name, nil
}

func checkDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return errorx.New(errorx.BadRequest,
			"Description too long (at most %d characters)", maxDescriptionLength)
	}

	return nil
}

func newID(ctx context.Context) int64 {
	return xcontext.SnowFlake(ctx).Generate().Int64()
}

// Lock keys. Writers of the same entity hold the same key.

func userLockKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func emailLockKey(email string) string {
	return "email:" + strings.ToLower(email)
}

func tagLockKey(username, discriminator string) string {
	return "tag:" + username + "#" + discriminator
}

func guildLockKey(id int64) string {
	return fmt.Sprintf("guild:%d", id)
}

func memberLockKey(guildID, userID int64) string {
	return fmt.Sprintf("member:%d:%d", guildID, userID)
}

func channelLockKey(id int64) string {
	return fmt.Sprintf("channel:%d", id)
}

func roleLockKey(id int64) string {
	return fmt.Sprintf("role:%d", id)
}

func messageLockKey(id int64) string {
	return fmt.Sprintf("message:%d", id)
}

func inviteLockKey(code string) string {
	return "invite:" + code
}

// The write is already committed when an event is dispatched, so a dispatch
// failure is logged and never returned to the caller.

func dispatchToGuild(ctx context.Context, d dispatcher.Dispatcher, guildID int64, ev event.Event) {
	if err := d.DispatchToGuild(ctx, guildID, ev); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot dispatch %s to guild %d: %v", ev.Op(), guildID, err)
	}
}

func dispatchToUser(ctx context.Context, d dispatcher.Dispatcher, userID int64, ev event.Event) {
	if err := d.DispatchToUser(ctx, userID, ev); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot dispatch %s to user %d: %v", ev.Op(), userID, err)
	}
}

func joinGuild(ctx context.Context, d dispatcher.Dispatcher, guildID, userID int64) {
	if err := d.Join(ctx, guildID, userID); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot subscribe user %d to guild %d: %v", userID, guildID, err)
	}
}

func leaveGuild(ctx context.Context, d dispatcher.Dispatcher, guildID, userID int64) {
	if err := d.Leave(ctx, guildID, userID); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot unsubscribe user %d from guild %d: %v", userID, guildID, err)
	}
}
