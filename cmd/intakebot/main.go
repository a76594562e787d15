package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahimovschool/intakebot/internal/api"
	"github.com/rahimovschool/intakebot/internal/flow"
	"github.com/rahimovschool/intakebot/internal/liveness"
	"github.com/rahimovschool/intakebot/internal/notify"
	"github.com/rahimovschool/intakebot/internal/scheduler"
	"github.com/rahimovschool/intakebot/internal/sheets"
	"github.com/rahimovschool/intakebot/internal/telegram"
	"github.com/rahimovschool/intakebot/internal/util"
)

// Default configuration constants
const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = 5000
	// DefaultSpreadsheetName is the spreadsheet title looked up when no id is configured.
	DefaultSpreadsheetName = "RAHIMOV SCHOOL"
	// DefaultCredentialsFile is the service-account key path used when no inline key is set.
	DefaultCredentialsFile = "credentials.json"
	// sessionTTL is how long an abandoned mid-form session survives.
	sessionTTL = 24 * time.Hour
	// evictionSweepInterval is how often stale sessions are dropped.
	evictionSweepInterval = time.Hour
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if *flags.botToken == "" {
		slog.Error("BOT_TOKEN is missing, cannot start")
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("intakebot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("intakebot exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken        string
	Admins          string
	SpreadsheetName string
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	PublicURL       string
	Port            int
}

// Flags holds command line flag values
type Flags struct {
	botToken        *string
	admins          *string
	spreadsheetName *string
	spreadsheetID   *string
	credentialsFile *string
	publicURL       *string
	port            *int

	credentialsJSON string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		Admins:          os.Getenv("ADMINS"),
		SpreadsheetName: os.Getenv("SPREADSHEET_NAME"),
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		PublicURL:       os.Getenv("RENDER_EXTERNAL_URL"),
		Port:            util.ParseIntEnv("PORT", DefaultPort),
	}

	if config.SpreadsheetName == "" {
		config.SpreadsheetName = DefaultSpreadsheetName
	}
	if config.CredentialsFile == "" {
		config.CredentialsFile = DefaultCredentialsFile
	}

	slog.Debug("environment variables loaded",
		"BOT_TOKEN_SET", config.BotToken != "",
		"ADMINS", config.Admins,
		"SPREADSHEET_NAME", config.SpreadsheetName,
		"SPREADSHEET_ID_SET", config.SpreadsheetID != "",
		"GOOGLE_CREDENTIALS_SET", config.CredentialsJSON != "",
		"GOOGLE_APPLICATION_CREDENTIALS", config.CredentialsFile,
		"RENDER_EXTERNAL_URL", config.PublicURL,
		"PORT", config.Port)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		botToken:        flag.String("bot-token", config.BotToken, "Telegram bot token (overrides $BOT_TOKEN)"),
		admins:          flag.String("admins", config.Admins, "comma-separated operator chat ids (overrides $ADMINS)"),
		spreadsheetName: flag.String("spreadsheet-name", config.SpreadsheetName, "spreadsheet title (overrides $SPREADSHEET_NAME)"),
		spreadsheetID:   flag.String("spreadsheet-id", config.SpreadsheetID, "spreadsheet id, skips the name lookup (overrides $SPREADSHEET_ID)"),
		credentialsFile: flag.String("credentials-file", config.CredentialsFile, "service account key file (overrides $GOOGLE_APPLICATION_CREDENTIALS)"),
		publicURL:       flag.String("public-url", config.PublicURL, "public base URL for webhook and self-ping (overrides $RENDER_EXTERNAL_URL)"),
		port:            flag.Int("port", config.Port, "HTTP listen port (overrides $PORT)"),

		credentialsJSON: config.CredentialsJSON,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"botTokenSet", *flags.botToken != "",
		"admins", *flags.admins,
		"spreadsheetName", *flags.spreadsheetName,
		"spreadsheetIDSet", *flags.spreadsheetID != "",
		"credentialsFile", *flags.credentialsFile,
		"publicURL", *flags.publicURL,
		"port", *flags.port)

	return flags
}

// run wires the modules together and serves until interrupted.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := telegram.NewClient(*flags.botToken)
	if err != nil {
		return fmt.Errorf("telegram client: %w", err)
	}

	gateway := sheets.NewGateway(
		sheets.WithSpreadsheetName(*flags.spreadsheetName),
		sheets.WithSpreadsheetID(*flags.spreadsheetID),
		sheets.WithCredentialsJSON(flags.credentialsJSON),
		sheets.WithCredentialsFile(*flags.credentialsFile),
	)
	gateway.Connect(ctx)
	if !gateway.Connected() {
		slog.Warn("Sheet connection unavailable, serving in degraded mode")
	}

	operators := util.ParseInt64List(*flags.admins)
	if len(operators) == 0 {
		slog.Warn("No operators configured, registration notifications go nowhere")
	}

	notifier := notify.New(tg, operators)
	registrar := flow.NewRegistrar(tg, gateway, notifier, flow.WithOperators(operators))

	sched := scheduler.New()
	defer sched.Stop()
	sched.AddEvery(evictionSweepInterval, func() {
		registrar.Sessions().EvictIdle(sessionTTL)
	})

	webhookPath := "/webhook/" + *flags.botToken
	webhookURL := ""
	if *flags.publicURL != "" {
		webhookURL = *flags.publicURL + webhookPath
	}

	supervisor := liveness.NewSupervisor(sched, tg,
		liveness.WithBaseURL(*flags.publicURL),
		liveness.WithWebhookURL(webhookURL),
	)
	supervisor.Start(ctx)

	server := api.NewServer(registrar, telegram.DecodeIncoming,
		api.WithAddr(fmt.Sprintf(":%d", *flags.port)),
		api.WithWebhookPath(webhookPath),
		api.WithStatusFunc(func() api.Status {
			return api.Status{
				Status:          "ok",
				SheetsConnected: gateway.Connected(),
				ActiveSessions:  registrar.Sessions().ActiveCount(),
			}
		}),
	)

	slog.Info("Bootstrapping intakebot", "port", *flags.port, "webhook_enabled", webhookURL != "", "operators", len(operators))
	return server.Run(ctx)
}
