package middleware

import (
	"context"
	"strings"

	"github.com/hatsu-chat/backend/pkg/router"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

// ImportSessionToken stores the raw Authorization header as the session token
// of the request. Requests without the header stay anonymous; handlers that
// need a user reject them.
func ImportSessionToken() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		token := strings.TrimSpace(xcontext.HTTPRequest(ctx).Header.Get("Authorization"))
		if token == "" {
			return ctx, nil
		}

		return xcontext.WithSessionToken(ctx, token), nil
	}
}
