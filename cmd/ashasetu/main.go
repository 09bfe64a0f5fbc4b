package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/ashasetu/ashasetu/internal/api"
	"github.com/ashasetu/ashasetu/internal/genai"
	"github.com/ashasetu/ashasetu/internal/lockfile"
	"github.com/ashasetu/ashasetu/internal/store"
	"github.com/ashasetu/ashasetu/internal/util"
	"github.com/ashasetu/ashasetu/internal/voice"
	"github.com/ashasetu/ashasetu/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for AshaSetu state data
	DefaultStateDir = "/var/lib/ashasetu"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "ashasetu.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	storeOpts := buildStoreOptions(flags)
	voiceOpts := buildVoiceOptions(flags)
	waOpts := buildWhatsAppOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping AshaSetu with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "voice", len(voiceOpts), "whatsapp", len(waOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, voiceOpts, waOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("AshaSetu failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("AshaSetu exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	OpenAIKey      string
	APIAddr        string
	BaseURL        string
	Timezone       string
	CallCron       string
	MessageCron    string
	TwilioSID      string
	TwilioToken    string
	VoiceNumber    string
	WhatsAppNumber string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	openaiKey      *string
	apiAddr        *string
	baseURL        *string
	timezone       *string
	callCron       *string
	messageCron    *string
	twilioSID      *string
	twilioToken    *string
	voiceNumber    *string
	whatsappNumber *string
}

// initializeLogger sets up structured logging. ASHASETU_DEBUG=true lowers
// the level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("ASHASETU_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("ASHASETU_STATE_DIR"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		APIAddr:        os.Getenv("API_ADDR"),
		BaseURL:        os.Getenv("ASHASETU_BASE_URL"),
		Timezone:       os.Getenv("ASHASETU_TIMEZONE"),
		CallCron:       os.Getenv("ASHASETU_CALL_CRON"),
		MessageCron:    os.Getenv("ASHASETU_MESSAGE_CRON"),
		TwilioSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		VoiceNumber:    os.Getenv("TWILIO_VOICE_NUMBER"),
		WhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ASHASETU_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ASHASETU_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"ASHASETU_BASE_URL", config.BaseURL,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for AshaSetu data (overrides $ASHASETU_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:        flag.String("base-url", config.BaseURL, "public base URL for Twilio callbacks (overrides $ASHASETU_BASE_URL)"),
		timezone:       flag.String("timezone", config.Timezone, "scheduler timezone (overrides $ASHASETU_TIMEZONE)"),
		callCron:       flag.String("call-cron", config.CallCron, "IVR call batch schedule (overrides $ASHASETU_CALL_CRON)"),
		messageCron:    flag.String("message-cron", config.MessageCron, "WhatsApp reminder batch schedule (overrides $ASHASETU_MESSAGE_CRON)"),
		twilioSID:      flag.String("twilio-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:    flag.String("twilio-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		voiceNumber:    flag.String("voice-number", config.VoiceNumber, "Twilio voice caller number (overrides $TWILIO_VOICE_NUMBER)"),
		whatsappNumber: flag.String("whatsapp-number", config.WhatsAppNumber, "Twilio WhatsApp sender number (overrides $TWILIO_WHATSAPP_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"baseURL", *flags.baseURL,
		"timezone", *flags.timezone)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildVoiceOptions constructs voice client configuration options
func buildVoiceOptions(flags Flags) []voice.Option {
	var voiceOpts []voice.Option
	if *flags.twilioSID != "" {
		voiceOpts = append(voiceOpts, voice.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		voiceOpts = append(voiceOpts, voice.WithAuthToken(*flags.twilioToken))
	}
	if *flags.voiceNumber != "" {
		voiceOpts = append(voiceOpts, voice.WithFromNumber(*flags.voiceNumber))
	}
	return voiceOpts
}

// buildWhatsAppOptions constructs WhatsApp client configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.twilioSID != "" {
		waOpts = append(waOpts, whatsapp.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		waOpts = append(waOpts, whatsapp.WithAuthToken(*flags.twilioToken))
	}
	if *flags.whatsappNumber != "" {
		waOpts = append(waOpts, whatsapp.WithFromWhats(*flags.whatsappNumber))
	}
	return waOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.baseURL != "" {
		apiOpts = append(apiOpts, api.WithBaseURL(*flags.baseURL))
	}
	if *flags.timezone != "" {
		apiOpts = append(apiOpts, api.WithTimezone(*flags.timezone))
	}
	if *flags.callCron != "" {
		apiOpts = append(apiOpts, api.WithCallCron(*flags.callCron))
	}
	if *flags.messageCron != "" {
		apiOpts = append(apiOpts, api.WithMessageCron(*flags.messageCron))
	}
	return apiOpts
}
