package middleware

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/ratelimit"
	"github.com/hatsu-chat/backend/pkg/router"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

// RateLimit counts every request against the rules of its route, keyed by
// (method, route, client address). A full store rejects the request, any
// other store failure lets it through.
func RateLimit(limiter *ratelimit.Limiter) router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		req := xcontext.HTTPRequest(ctx)
		addr := clientAddr(req)
		ctx = xcontext.WithClientAddr(ctx, addr)

		result, err := limiter.Allow(ctx, req.Method, req.URL.Path, addr)
		if err != nil {
			if errors.Is(err, ratelimit.ErrStoreFull) {
				return ctx, errorx.New(errorx.TooManyRequests, "Too many requests")
			}

			xcontext.Logger(ctx).Warnf("Cannot check rate limit: %v", err)
			return ctx, nil
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			xcontext.HTTPWriter(ctx).Header().Set("Retry-After", strconv.Itoa(retryAfter))
			return ctx, errorx.New(errorx.TooManyRequests, "You are being rate limited")
		}

		return ctx, nil
	}
}

// clientAddr returns the first address of X-Forwarded-For, or the host of the
// remote address.
func clientAddr(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}
