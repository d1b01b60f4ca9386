package router

import (
	"context"
	"net/http"
	"time"

	"github.com/hatsu-chat/backend/config"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/rs/cors"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before or after the handler. A non-nil error stops the
// chain and is sent to the client.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response was written, whatever the result is.
type CloserFunc func(ctx context.Context)

type Router struct {
	ctx context.Context
	mux *http.ServeMux

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

// New creates a router. Every request context inherits the values of ctx,
// such as the configs, the logger and the database.
func New(ctx context.Context) *Router {
	return &Router{ctx: ctx, mux: http.NewServeMux()}
}

// Branch returns a router sharing the routes of r. Middlewares added to the
// branch do not affect r.
func (r *Router) Branch() *Router {
	return &Router{
		ctx:     r.ctx,
		mux:     r.mux,
		befores: append([]MiddlewareFunc{}, r.befores...),
		afters:  append([]MiddlewareFunc{}, r.afters...),
		closers: append([]CloserFunc{}, r.closers...),
	}
}

func (r *Router) Before(middlewares ...MiddlewareFunc) {
	r.befores = append(r.befores, middlewares...)
}

func (r *Router) After(middlewares ...MiddlewareFunc) {
	r.afters = append(r.afters, middlewares...)
}

func (r *Router) AddCloser(closers ...CloserFunc) {
	r.closers = append(r.closers, closers...)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.Handle(pattern, route(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.Handle(pattern, route(r, http.MethodPost, handler))
}

// Handler returns the http.Handler serving every registered route, with the
// CORS policy of cfg applied.
func (r *Router) Handler(cfg config.APIServerConfigs) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r.mux)
}

func route[Request, Response any](
	r *Router, method string, handler HandlerFunc[Request, Response],
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := mergeContext(req.Context(), r.ctx)
		ctx = xcontext.WithHTTPRequest(ctx, req)
		ctx = xcontext.WithHTTPWriter(ctx, w)
		ctx = xcontext.WithStartTime(ctx, time.Now())

		ctx = serve(ctx, r, method, handler)

		for _, closer := range r.closers {
			closer(ctx)
		}
	})
}

func serve[Request, Response any](
	ctx context.Context, r *Router, method string, handler HandlerFunc[Request, Response],
) context.Context {
	w := xcontext.HTTPWriter(ctx)
	req := xcontext.HTTPRequest(ctx)

	ctx, err := func() (context.Context, error) {
		if req.Method != method {
			return ctx, errorx.New(errorx.BadRequest, "Method %s is not allowed", req.Method)
		}

		ctx, err := runMiddlewares(ctx, r.befores)
		if err != nil {
			return ctx, err
		}

		var request Request
		if err := bind(req, &request); err != nil {
			return ctx, err
		}

		resp, err := handler(ctx, &request)
		if err != nil {
			return ctx, err
		}

		ctx = xcontext.WithResponse(ctx, resp)
		return runMiddlewares(ctx, r.afters)
	}()

	if err != nil {
		ctx = xcontext.WithError(ctx, err)
		if err := writeJSON(w, errorx.CodeOf(err).HTTPStatus(), newErrorResponse(err)); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot write the error response: %v", err)
		}

		return ctx
	}

	if err := writeJSON(w, http.StatusOK, newResponse(xcontext.Response(ctx))); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}

	return ctx
}

func runMiddlewares(ctx context.Context, middlewares []MiddlewareFunc) (context.Context, error) {
	for _, middleware := range middlewares {
		var err error
		if ctx, err = middleware(ctx); err != nil {
			return ctx, err
		}
	}

	return ctx, nil
}

// mergedContext is cancelled with the request but resolves values from the
// router context when the request does not carry them.
type mergedContext struct {
	context.Context
	values context.Context
}

func mergeContext(req, values context.Context) context.Context {
	return mergedContext{Context: req, values: values}
}

func (c mergedContext) Value(key any) any {
	if v := c.Context.Value(key); v != nil {
		return v
	}

	return c.values.Value(key)
}
