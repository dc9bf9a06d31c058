package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathakanu/remindr/internal/bot"
	"github.com/pathakanu/remindr/internal/config"
	"github.com/pathakanu/remindr/internal/database"
	"github.com/pathakanu/remindr/internal/engine"
	"github.com/pathakanu/remindr/internal/logging"
	"github.com/pathakanu/remindr/internal/notify"
	myopenai "github.com/pathakanu/remindr/internal/openai"
	"github.com/pathakanu/remindr/internal/summary"
	"github.com/pathakanu/remindr/internal/twilio"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", true)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogConsole)

	db, err := database.New(cfg.DatabaseURL, logging.Component(logger, "database"))
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}
	reminders := database.NewReminderStore(db)
	users := database.NewUserStore(db)

	router := newRouter(cfg, logger)

	selector := engine.NewSelector(reminders)
	expander := engine.NewRecurrenceExpander(reminders, logging.Component(logger, "expander"))
	dispatcher := engine.NewDispatcher(router, reminders, expander, cfg.DispatchWorkers, logging.Component(logger, "dispatcher"))

	openAIClient := myopenai.New(cfg.OpenAIAPIKey)
	composer := summary.NewComposer(reminders, openAIClient, logging.Component(logger, "summary"))
	gate := summary.NewGate(users, composer, router, summary.Options{
		DefaultLocation: cfg.Location,
		SummaryHour:     cfg.SummaryHour,
	}, logging.Component(logger, "summary"))

	reminderBot := bot.New(cfg, selector, dispatcher, gate, logging.Component(logger, "bot"))
	if err := reminderBot.StartScheduler(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start")
	}

	mux := http.NewServeMux()
	mux.Handle("/cron/reminders", reminderBot.Handler())
	mux.HandleFunc("/health", bot.Health)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	waitForShutdown(server, reminderBot, logger)
}

func newRouter(cfg *config.Config, logger zerolog.Logger) *notify.Router {
	log := logging.Component(logger, "notify")
	router := notify.NewRouter(notify.Options{
		DefaultChannel: cfg.DefaultChannel,
		Timeout:        cfg.SendTimeout,
		RatePerSec:     cfg.SendRatePerSec,
	}, log)

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, cfg.TwilioSMSNumber, logging.Component(logger, "twilio"))
		router.Register(notify.ChannelWhatsApp, notify.SenderFunc(func(_ context.Context, address, text string) error {
			return twilioClient.SendWhatsAppMessage(address, text)
		}))
		router.Register(notify.ChannelSMS, notify.SenderFunc(func(_ context.Context, address, text string) error {
			return twilioClient.SendSMS(address, text)
		}))
	}
	if cfg.TelegramBotToken != "" {
		sender, err := notify.NewTelegramSender(cfg.TelegramBotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sender")
		}
		router.Register(notify.ChannelTelegram, sender)
	}
	if cfg.SlackBotToken != "" {
		sender, err := notify.NewSlackSender(cfg.SlackBotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("slack sender")
		}
		router.Register(notify.ChannelSlack, sender)
	}

	channels := router.Channels()
	if len(channels) == 0 {
		log.Warn().Msg("no delivery channel configured, every reminder will fail to send")
	} else {
		log.Info().Strs("channels", channels).Msg("delivery channels ready")
	}
	return router
}

func waitForShutdown(server *http.Server, reminderBot *bot.Bot, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	reminderBot.StopScheduler()
}
