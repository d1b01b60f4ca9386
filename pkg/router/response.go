package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hatsu-chat/backend/pkg/errorx"
)

type response struct {
	Code   int64  `json:"code"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func newResponse(data any) response {
	return response{
		Code: 0,
		Data: data,
	}
}

func newErrorResponse(err error) response {
	errx := errorx.Error{}
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	return response{
		Code:   int64(errx.Code),
		Kind:   errx.Code.Kind(),
		Reason: errx.Reason,
		Error:  errx.Message,
	}
}

func writeJSON(w http.ResponseWriter, status int, resp any) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		return err
	}

	return nil
}
