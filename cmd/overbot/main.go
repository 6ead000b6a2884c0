// Package main is the entry point for the overbot chat front-end to
// Overseerr.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mhalder/overbot/internal/bot"
	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/config"
	"github.com/mhalder/overbot/internal/flow"
	"github.com/mhalder/overbot/internal/overseerr"
	"github.com/mhalder/overbot/internal/plex"
	"github.com/mhalder/overbot/internal/render"
	"github.com/mhalder/overbot/internal/tokenstore"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "overbot",
		Short:         "Conversational front-end for Overseerr",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "overbot.yaml", "path to the config file")
	root.AddCommand(newServeCommand(&configPath))

	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	var consoleRoom, consoleUser string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, consoleRoom, consoleUser)
		},
	}
	cmd.Flags().StringVar(&consoleRoom, "console-room", "", "room name for console input (default: first configured room)")
	cmd.Flags().StringVar(&consoleUser, "console-user", "console", "user id for console input")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, consoleRoom, consoleUser string) error {
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := tokenstore.Open(ctx, cfg.TokenDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	renderer, err := render.New()
	if err != nil {
		return err
	}

	plexSvc, err := plex.NewService(cfg.BotName, strings.TrimRight(cfg.BotURL, "/"), store,
		plex.WithLogger(logger))
	if err != nil {
		return err
	}

	registry := flow.NewRegistry(flow.WithRegistryLogger(logger))
	for name, roomCfg := range cfg.Rooms {
		client, err := overseerr.New(roomCfg.URL,
			overseerr.WithAPIKey(roomCfg.APIKey),
			overseerr.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("room %s: %w", name, err)
		}
		registry.AddRoom(name, client)
		for _, alias := range roomCfg.MoreRooms {
			registry.AddRoom(alias, client)
		}
	}

	if consoleRoom == "" {
		consoleRoom = firstRoomName(cfg)
	}
	messenger := chat.NewConsoleMessenger(consoleRoom, consoleUser, os.Stdin, os.Stdout)

	router, err := bot.NewRouter(registry, messenger, renderer, plexSvc, cfg.BotName,
		bot.WithRouterLogger(logger))
	if err != nil {
		return err
	}

	httpRouter := mux.NewRouter()
	plexSvc.Routes(httpRouter)
	httpRouter.Handle("/webhook/notification",
		chat.NewNotificationHandler(messenger, renderer, cfg.NotifyRoom, logger)).
		Methods(http.MethodPost)
	httpRouter.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.Listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	routerDone := make(chan error, 1)
	go func() {
		routerDone <- router.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serverErr:
		stop()
	case runErr = <-routerDone:
		// Console input ended; shut down the rest.
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", slog.Any("error", err))
	}

	return runErr
}

func firstRoomName(cfg *config.Config) string {
	names := make([]string, 0, len(cfg.Rooms))
	for name := range cfg.Rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
