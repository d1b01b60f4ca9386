package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/router"
	"github.com/hatsu-chat/backend/pkg/xcontext"
)

func Logger() router.CloserFunc {
	return func(ctx context.Context) {
		req := xcontext.HTTPRequest(ctx)
		elapsed := time.Since(xcontext.StartTime(ctx))
		info := fmt.Sprintf("%s | %s | %s", req.Method, req.URL.Path, elapsed)

		err := xcontext.Error(ctx)
		if err == nil {
			xcontext.Logger(ctx).Infof("%s | 0", info)
			return
		}

		code := errorx.CodeOf(err)
		if code == errorx.Internal {
			xcontext.Logger(ctx).Errorf("%s | %d | %v", info, code, err)
		} else {
			xcontext.Logger(ctx).Warnf("%s | %d | %s", info, code, code.Kind())
		}
	}
}
