package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/kdduha/storyteller/internal/auth"
	"github.com/kdduha/storyteller/internal/cache"
	"github.com/kdduha/storyteller/internal/config"
	"github.com/kdduha/storyteller/internal/handler"
	"github.com/kdduha/storyteller/internal/llm"
	"github.com/kdduha/storyteller/internal/logging"
	"github.com/kdduha/storyteller/internal/metrics"
	"github.com/kdduha/storyteller/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	_ "github.com/kdduha/storyteller/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Storyteller API
// @version 1.0
// @description Illustrated stories and mode-aware chat on top of OpenAI-compatible providers.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(config.LogConfig{Level: "info"}, os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	logger = logging.New(cfg.Log, os.Stderr)

	chatClient := llm.NewChatClient(
		logger,
		llm.NewOpenAIClient(cfg.Text.APIKey, cfg.Text.BaseURL),
		cfg.Text,
	)
	imageClient := llm.NewImageClient(
		logger,
		llm.NewOpenAIClient(cfg.Image.APIKey, cfg.Image.BaseURL),
		cfg.Image,
		clockwork.NewRealClock(),
	)

	storyService := service.NewStoryService(logger, chatClient, imageClient)
	chatService := service.NewChatService(logger, chatClient)

	if cfg.CacheEnable {
		redisCache := cache.NewRedisCache(cfg.RedisConfig)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisConfig.Addr).Msg("redis is not reachable, cache errors will be ignored")
		}
		chatService.SetCacheClient(redisCache)
		logger.Info().Str("addr", cfg.RedisConfig.Addr).Msg("set redis as cache")
	}

	if cfg.Text.APIKey == "" {
		logger.Warn().Str("provider", cfg.Text.Provider).Msg("text provider key is not configured")
	}
	if cfg.Image.APIKey == "" {
		logger.Warn().Str("provider", cfg.Image.Provider).Msg("image provider key is not configured")
	}

	story := handler.NewStoryHandler(logger, storyService)
	chat := handler.NewChatHandler(logger, chatService)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: newRouter(cfg, logger, story, chat),
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}

func newRouter(cfg *config.Config, logger zerolog.Logger, story *handler.StoryHandler, chat *handler.ChatHandler) http.Handler {
	gate := auth.NewGate(logger, cfg.Auth.UserHeader, cfg.Auth.Disabled)

	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Throttle(cfg.Server.ThrottleLimit),
		metrics.Middleware,
	}...)

	r.Route("/api", func(r chi.Router) {
		r.Use(gate.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.Timeout))
			r.Post("/story_telling_with_images", story.Story)
			r.Post("/conversation", chat.Conversation)
			r.Post("/code", chat.Code)
		})
		r.Post("/conversation/stream", chat.ConversationStream)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
