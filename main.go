package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playlist-finder-go/config"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/notifier"
	"playlist-finder-go/startup"

	log "github.com/sirupsen/logrus"
)

var conf = config.Get()

const shutdownTimeout = 15 * time.Second

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.Server.LogLevel)
	if err != nil {
		log.Warnf("%s Unknown LOG_LEVEL %q, using info", logcolors.LogConfig, conf.Server.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func logProgress(message string, percent int) {
	if percent == finder.NoPercent {
		log.Debugf("%s %s", logcolors.LogFinder, message)
		return
	}
	log.Debugf("%s [%3d%%] %s", logcolors.LogFinder, percent, message)
}

func main() {
	svc, err := startup.Build(conf, finder.WithProgress(logProgress))
	if err != nil {
		log.Fatalf("%s Failed to start: %v", logcolors.LogServer, err)
	}
	defer svc.Close()

	defaults, err := startup.SearchOptions(conf)
	if err != nil {
		log.Fatalf("%s Invalid search configuration: %v", logcolors.LogConfig, err)
	}

	notifiers := notifier.FromSettings(notifier.Settings{
		SMTPHost:         conf.Notifier.SMTPHost,
		SMTPPort:         conf.Notifier.SMTPPort,
		SMTPUsername:     conf.Notifier.SMTPUsername,
		SMTPPassword:     conf.Notifier.SMTPPassword,
		FromEmail:        conf.Notifier.FromEmail,
		ToEmail:          conf.Notifier.ToEmail,
		TelegramBotToken: conf.Notifier.TelegramBotToken,
		TelegramChatID:   conf.Notifier.TelegramChatID,
		NtfyTopic:        conf.Notifier.NtfyTopic,
		NtfyServer:       conf.Notifier.NtfyServer,
	})
	notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: conf.AlertCooldown(),
	}).Start(notifier.GetEventBus())

	s := &server{svc: svc, defaults: defaults}
	httpServer := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           newHandler(s, conf),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Server.Port)
		notifier.PublishServerStarted(conf.Server.Port, svc.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)
	svc.Finder.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Shutdown incomplete: %v", logcolors.LogServer, err)
	}
}
