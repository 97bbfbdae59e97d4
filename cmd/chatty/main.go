package main

import (
	"chatty/infrastructure/realtime"
	"chatty/infrastructure/rest"
	"chatty/infrastructure/storage"
	"chatty/internal"
	"chatty/observability"
	"chatty/services"
	"chatty/sink"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const keptToasts = 20

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatty: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	liveURL, err := config.LiveURL()
	if err != nil {
		return exitConfig, err
	}
	muted, err := config.MuteFilter()
	if err != nil {
		return exitConfig, err
	}
	jar, err := rest.NewCookieJar()
	if err != nil {
		return exitRuntime, fmt.Errorf("cookie jar: %w", err)
	}
	monitor := observability.NewMonitor(log)

	api, err := rest.NewClient(log, config.APIURL, jar, config.RequestTimeout)
	if err != nil {
		return exitConfig, err
	}
	api.WithTransport(monitor.RoundTripper(nil))

	dialer, err := realtime.NewDialer(log, liveURL, jar, config.RequestTimeout, config.Transports()...)
	if err != nil {
		return exitConfig, err
	}
	dialer.WithTransport(monitor.RoundTripper(nil)).WithHandshakeObserver(monitor.Observe)

	db, err := storage.OpenDB(config.PreferencesPath)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Debug("Closing preference store")
		_ = db.Close()
	}()

	toasts := sink.NewToastSink(log, os.Stdout, config.Colours, keptToasts)
	notifier := monitor.Notifier(toasts)
	sessions := services.NewSessionService(log, api, dialer, notifier)
	conversations := services.NewConversationService(log, api, sessions, notifier)
	unfollow := conversations.Follow(sessions)
	defer unfollow()
	themes := services.NewThemeService(log, storage.NewPreferenceRepository(db, log), config.Theme())
	defer sessions.CloseChannel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := &shell{
		log:           log,
		out:           os.Stdout,
		colours:       config.Colours,
		api:           api,
		sessions:      sessions,
		conversations: conversations,
		themes:        themes,
		toasts:        toasts,
		monitor:       monitor,
		muted:         muted,
	}
	timeline := sink.NewTimeline(os.Stdout, sh.selfID, muted)
	unsubscribe := conversations.Subscribe(timeline.Consume)
	defer unsubscribe()

	sessions.CheckExistingSession(ctx)
	if err := sh.Run(ctx, os.Stdin); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
