package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/mitchellh/mapstructure"
)

// bind decodes the query of a GET request or the json body of a POST request
// into v. Query values are weakly typed, so "123" fills an int64 field.
func bind(req *http.Request, v any) error {
	if req.Method == http.MethodGet {
		query := map[string]any{}
		for key, values := range req.URL.Query() {
			if len(values) == 1 {
				query[key] = values[0]
			} else {
				query[key] = values
			}
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           v,
		})
		if err != nil {
			return err
		}

		if err := decoder.Decode(query); err != nil {
			return errorx.New(errorx.BadRequest, "Invalid query")
		}

		return nil
	}

	if req.Body == nil {
		return nil
	}

	// An empty body leaves every field at its zero value.
	if err := json.NewDecoder(req.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errorx.New(errorx.BadRequest, "Invalid request body")
	}

	return nil
}
