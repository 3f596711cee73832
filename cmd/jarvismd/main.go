package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aadityaamehrotra17/JarvisMD/internal/api"
	"github.com/aadityaamehrotra17/JarvisMD/internal/directory"
	"github.com/aadityaamehrotra17/JarvisMD/internal/genai"
	"github.com/aadityaamehrotra17/JarvisMD/internal/notify"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/workflow"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for JarvisMD state data
	DefaultStateDir = "/var/lib/jarvismd"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "jarvismd.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build the store backend
	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Optional collaborators: advisor and notifier degrade to deterministic
	// fallbacks when unconfigured.
	advisor := buildAdvisor(flags)
	notifier := buildNotifier(flags)

	dir := directory.NewStatic()
	prog := progress.NewManager()
	engine := workflow.NewEngine(dir, st, notifier, advisor, prog)

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(engine, prog, dir, st, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping JarvisMD with configured modules",
		"store", storeKind(flags), "advisor_configured", advisor != nil, "twilio_configured", *flags.twilioSID != "")
	if err := server.Run(ctx); err != nil {
		slog.Error("JarvisMD failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("JarvisMD exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseDSN string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDriver    *string
	dbDSN       *string
	openaiKey   *string
	apiAddr     *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
}

// initializeLogger sets up structured logging with debug level
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
		DbDriver:    os.Getenv("JARVISMD_DB_DRIVER"),
		DatabaseDSN: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("JARVISMD_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No JARVISMD_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseDSN == "" && config.DbDriver != "memory" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"JARVISMD_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseDSN != "",
		"JARVISMD_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"TWILIO_CONFIGURED", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for JarvisMD data (overrides $JARVISMD_STATE_DIR)"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "database driver: sqlite, postgres, or memory (overrides $JARVISMD_DB_DRIVER)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseDSN, "database DSN (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:   flag.String("twilio-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: flag.String("twilio-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  flag.String("twilio-from", config.TwilioFrom, "Twilio sender number (overrides $TWILIO_FROM_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"twilioConfigured", *flags.twilioSID != "")

	return flags
}

// storeKind names the selected store backend for startup logging.
func storeKind(flags Flags) string {
	if *flags.dbDriver == "memory" || *flags.dbDSN == "" {
		return "memory"
	}
	return store.DetectDSNType(*flags.dbDSN)
}

// buildStore selects and initializes the store backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	switch storeKind(flags) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "sqlite":
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	default:
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
}

// buildAdvisor constructs the GenAI advisor, or nil when no key is configured.
func buildAdvisor(flags Flags) workflow.Advisor {
	if *flags.openaiKey == "" {
		slog.Info("OpenAI API key not configured, advisory stages will use deterministic fallbacks")
		return nil
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Warn("Failed to initialize GenAI client, continuing without advisor", "error", err)
		return nil
	}
	return client
}

// buildNotifier constructs the outreach notifier. Without Twilio credentials
// notifications are recorded in memory instead of sent.
func buildNotifier(flags Flags) notify.Service {
	if *flags.twilioSID == "" || *flags.twilioToken == "" || *flags.twilioFrom == "" {
		slog.Info("Twilio not configured, outreach notifications will be recorded only")
		return notify.NewRecorder()
	}
	svc, err := notify.NewTwilioService(
		notify.WithAccountSID(*flags.twilioSID),
		notify.WithAuthToken(*flags.twilioToken),
		notify.WithFrom(*flags.twilioFrom),
	)
	if err != nil {
		slog.Warn("Failed to initialize Twilio service, falling back to recorder", "error", err)
		return notify.NewRecorder()
	}
	return svc
}
