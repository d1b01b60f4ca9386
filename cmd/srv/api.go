package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hatsu-chat/backend/internal/middleware"
	"github.com/hatsu-chat/backend/pkg/errorx"
	"github.com/hatsu-chat/backend/pkg/router"
	"github.com/hatsu-chat/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadSnowFlake()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadRateLimiter()
	s.loadRepos()
	s.loadDispatcher()
	s.loadDomains()

	cfg := xcontext.Configs(s.ctx).ApiServer
	httpSrv := &http.Server{
		Addr:    cfg.Address(),
		Handler: s.loadRouter().Handler(cfg),
	}

	go func() {
		termSignal := make(chan os.Signal, 1)
		signal.Notify(termSignal, syscall.SIGINT, syscall.SIGTERM)
		sig := <-termSignal
		xcontext.Logger(s.ctx).Infof("Got a signal of %s, shutting down", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown the server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Server start in address: %s", cfg.Address())

	var err error
	if cfg.Cert != "" && cfg.Key != "" {
		err = httpSrv.ListenAndServeTLS(cfg.Cert, cfg.Key)
	} else {
		err = httpSrv.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stop")
	return nil
}

func (s *srv) loadRouter() *router.Router {
	defaultRouter := router.New(s.ctx)
	defaultRouter.AddCloser(middleware.Logger())
	if s.limiter != nil {
		defaultRouter.Before(middleware.RateLimit(s.limiter))
	}
	defaultRouter.Before(middleware.ImportSessionToken())

	router.GET(defaultRouter, "/", homeHandle)

	// User API
	router.POST(defaultRouter, "/register", s.userDomain.Register)
	router.POST(defaultRouter, "/login", s.userDomain.Login)
	router.POST(defaultRouter, "/logout", s.userDomain.Logout)
	router.GET(defaultRouter, "/getMe", s.userDomain.GetMe)
	router.POST(defaultRouter, "/editMe", s.userDomain.EditMe)
	router.POST(defaultRouter, "/verifyEmail", s.userDomain.VerifyEmail)
	router.POST(defaultRouter, "/blockUser", s.userDomain.BlockUser)
	router.POST(defaultRouter, "/unblockUser", s.userDomain.UnblockUser)
	router.POST(defaultRouter, "/createBot", s.userDomain.CreateBot)
	router.POST(defaultRouter, "/deleteBot", s.userDomain.DeleteBot)

	// Guild API
	router.POST(defaultRouter, "/createGuild", s.guildDomain.Create)
	router.GET(defaultRouter, "/getGuild", s.guildDomain.Get)
	router.GET(defaultRouter, "/getGuildPreview", s.guildDomain.GetPreview)
	router.POST(defaultRouter, "/editGuild", s.guildDomain.Edit)
	router.POST(defaultRouter, "/deleteGuild", s.guildDomain.Delete)
	router.GET(defaultRouter, "/getMembers", s.guildDomain.GetMembers)
	router.POST(defaultRouter, "/leaveGuild", s.guildDomain.Leave)
	router.POST(defaultRouter, "/kickMember", s.guildDomain.Kick)

	// Role API
	router.POST(defaultRouter, "/createRole", s.roleDomain.Create)
	router.POST(defaultRouter, "/updateRole", s.roleDomain.Update)
	router.POST(defaultRouter, "/deleteRole", s.roleDomain.Delete)
	router.GET(defaultRouter, "/getRoles", s.roleDomain.GetList)
	router.POST(defaultRouter, "/assignRole", s.roleDomain.Assign)
	router.POST(defaultRouter, "/unassignRole", s.roleDomain.Unassign)

	// Channel API
	router.POST(defaultRouter, "/createChannel", s.channelDomain.Create)
	router.POST(defaultRouter, "/editChannel", s.channelDomain.Edit)
	router.POST(defaultRouter, "/deleteChannel", s.channelDomain.Delete)
	router.GET(defaultRouter, "/getChannels", s.channelDomain.GetList)

	// Invite API
	router.POST(defaultRouter, "/createInvite", s.inviteDomain.Create)
	router.GET(defaultRouter, "/getInvite", s.inviteDomain.Get)
	router.POST(defaultRouter, "/redeemInvite", s.inviteDomain.Redeem)
	router.POST(defaultRouter, "/deleteInvite", s.inviteDomain.Delete)

	// Message API
	router.POST(defaultRouter, "/createMessage", s.messageDomain.Create)
	router.POST(defaultRouter, "/editMessage", s.messageDomain.Edit)
	router.GET(defaultRouter, "/getMessage", s.messageDomain.Get)
	router.GET(defaultRouter, "/getMessages", s.messageDomain.GetList)
	router.POST(defaultRouter, "/deleteMessage", s.messageDomain.Delete)

	return defaultRouter
}

type homeRequest struct{}

type homeResponse struct {
	BaseURL string `json:"base_url"`
}

// homeHandle also receives every unknown path, since "/" matches them all.
func homeHandle(ctx context.Context, req *homeRequest) (*homeResponse, error) {
	if xcontext.HTTPRequest(ctx).URL.Path != "/" {
		return nil, errorx.New(errorx.NotFound, "Not found route")
	}

	return &homeResponse{BaseURL: xcontext.Configs(ctx).ApiServer.BaseURL}, nil
}
