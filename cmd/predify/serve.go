package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/components/dashboard/gorouter"
	"github.com/goliatone/go-predify/components/dashboard/httpapi"
	"github.com/goliatone/go-predify/pkg/activity"
	"github.com/goliatone/go-predify/pkg/activity/usersink"
	"github.com/goliatone/go-predify/pkg/assistant"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/config"
	"github.com/goliatone/go-predify/pkg/session"
)

const shutdownGrace = 5 * time.Second

type serveCmd struct {
	Host      string `help:"Override server.host."`
	Port      int    `help:"Override server.port."`
	Transport string `help:"Override server.transport (fiber or chi)."`
	Demo      bool   `help:"Serve fixture data instead of calling the analytics backend."`
}

func (cmd *serveCmd) Run(ctx context.Context, root *cli) error {
	cfg, err := config.Load(root.Config, root.EnvFile...)
	if err != nil {
		return err
	}
	cmd.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.Server.Transport == "chi" {
		return serveChi(ctx, cfg, app)
	}
	return serveFiber(ctx, cfg, app)
}

func (cmd *serveCmd) apply(cfg *config.Config) {
	if cmd.Host != "" {
		cfg.Server.Host = cmd.Host
	}
	if cmd.Port != 0 {
		cfg.Server.Port = cmd.Port
	}
	if cmd.Transport != "" {
		cfg.Server.Transport = cmd.Transport
	}
	if cmd.Demo {
		cfg.Backend.Demo = true
	}
}

// app holds the wired collaborators shared by both transports.
type app struct {
	actions    httpapi.Actions
	controller *dashboard.Controller
	broadcast  *dashboard.BroadcastHook
	closers    []func() error
}

func (a *app) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{broadcast: dashboard.NewBroadcastHook()}

	store, rdb, err := buildSessionStore(ctx, cfg.Session, a)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(store)
	var prefs dashboard.PreferenceStore
	if rdb != nil {
		prefs = dashboard.NewRedisPreferenceStore(rdb, strings.TrimSuffix(cfg.Session.KeyPrefix, "session:")+"prefs:")
	}

	telemetry := dashboard.NewLogTelemetry(logger)
	var (
		client   backend.Client
		insights dashboard.InsightSource
		products interface{ Forget(string) }
	)
	if cfg.Backend.Demo {
		mock := backend.NewMockClient(backend.DemoData(time.Now()))
		client, insights = mock, mock
		log.Printf("backend: demo fixtures (seller token: any non-blank value)")
	} else {
		httpClient, err := backend.NewHTTPClient(backend.HTTPConfig{
			BaseURL:   cfg.Backend.BaseURL,
			Tokens:    sessions,
			Timeout:   cfg.Backend.Timeout,
			Telemetry: telemetry,
		})
		if err != nil {
			return nil, err
		}
		cached := backend.NewCachedInsightSource(httpClient, cfg.Insights.ProductsTTL)
		client, insights, products = httpClient, cached, cached
		log.Printf("backend: %s", cfg.Backend.BaseURL)
	}

	generator, err := buildGenerator(ctx, cfg.Assistant, a)
	if err != nil {
		return nil, err
	}
	bot := assistant.New(assistant.Options{
		Generator:  generator,
		Logger:     logger,
		MaxHistory: cfg.Assistant.MaxHistory,
	})

	sink := usersink.NewMemorySink(200)
	hooks := activity.Hooks{usersink.Hook{Sink: sink}}
	activityCfg := activity.Config{Enabled: cfg.Activity.Enabled, Channel: cfg.Activity.Channel}

	registry := dashboard.NewRegistry(dashboard.WithChartOptions(
		dashboard.WithChartAssetsHost(cfg.Charts.AssetsHost),
		dashboard.WithChartCache(dashboard.NewChartCache(cfg.Charts.CacheTTL)),
	))
	service := dashboard.NewService(dashboard.Options{
		Insights:        insights,
		Settings:        client,
		Profiles:        client,
		Analyzer:        client,
		Providers:       registry,
		RefreshHook:     a.broadcast,
		PreferenceStore: prefs,
		Telemetry:       telemetry,
		ActivityHooks:   hooks,
		ActivityConfig:  activityCfg,
		LoadTimeout:     cfg.Insights.LoadTimeout,
	})

	actions, err := httpapi.NewActions(httpapi.Deps{
		Service:   service,
		Auth:      client,
		Sessions:  sessions,
		Assistant: bot,
		Products:  products,
		Activity:  activity.NewEmitter(hooks, activityCfg),
		Telemetry: telemetry,
		Locale:    cfg.Insights.Locale,
	})
	if err != nil {
		return nil, err
	}
	a.actions = actions

	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	a.controller = dashboard.NewController(dashboard.ControllerOptions{
		Service:  actions.Pages(),
		Renderer: renderer,
		Feed:     dashboard.RecordActivityFeed{Source: sink},
		Escalate: httpapi.RequiresLogin,
	})
	return a, nil
}

// buildSessionStore also returns the Redis client when sessions live in Redis,
// so card preferences can share it.
func buildSessionStore(ctx context.Context, cfg config.Session, a *app) (session.Store, *redis.Client, error) {
	if cfg.Store != "redis" {
		log.Printf("sessions: memory")
		return session.NewMemoryStore(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("sessions: redis %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, client.Close)
	log.Printf("sessions: redis %s", cfg.RedisAddr)
	return session.NewRedisStore(client, session.WithKeyPrefix(cfg.KeyPrefix), session.WithTTL(cfg.TTL)), client, nil
}

func buildGenerator(ctx context.Context, cfg config.Assistant, a *app) (assistant.Generator, error) {
	if cfg.APIKey == "" {
		log.Printf("assistant: no API key, replies fall back to static text")
		return assistant.Offline{}, nil
	}
	gemini, err := assistant.NewGemini(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, gemini.Close)
	log.Printf("assistant: %s", cfg.Model)
	return gemini, nil
}

func serveFiber(ctx context.Context, cfg config.Config, a *app) error {
	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:       server.Router(),
		Controller:   a.controller,
		Actions:      a.actions,
		Broadcast:    a.broadcast,
		BasePath:     cfg.Server.BasePath,
		SecureCookie: cfg.Server.SecureCookie,
	}); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("seller insights ready: http://%s%s/insights (fiber)", cfg.Server.Addr(), basePath(cfg))
		errs <- server.Serve(cfg.Server.Addr())
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func serveChi(ctx context.Context, cfg config.Config, a *app) error {
	handlers := &httpapi.Handlers{
		Actions:    a.actions,
		Controller: a.controller,
		Broadcast:  a.broadcast,
	}
	secret := []byte(cfg.Server.CookieSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("cookie secret: %w", err)
		}
		log.Printf("server.cookie_secret unset, sessions will not survive a restart")
	}
	cookies := httpapi.NewCookieStore(secret, httpapi.CookieOptions{
		Secure: cfg.Server.SecureCookie,
		MaxAge: int(cfg.Session.TTL.Seconds()),
	})
	var handler http.Handler = handlers.Router(cookies)
	if base := basePath(cfg); base != "" {
		handler = http.StripPrefix(base, handler)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("seller insights ready: http://%s%s/insights (chi)", cfg.Server.Addr(), basePath(cfg))
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func basePath(cfg config.Config) string {
	return strings.TrimRight(cfg.Server.BasePath, "/")
}
