package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Exam       ExamConfig       `mapstructure:"exam"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Payment    PaymentConfig    `mapstructure:"payment"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	SessionSecret  string   `mapstructure:"session_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ExamConfig holds the timing rules for a running exam.
type ExamConfig struct {
	QuestionsFile   string `mapstructure:"questions_file"`
	PhaseMinutes    int    `mapstructure:"phase_minutes"`
	BreakMinutes    int    `mapstructure:"break_minutes"`
	DefaultSubject  string `mapstructure:"default_subject"`
	AbandonedMaxAge int    `mapstructure:"abandoned_max_age_hours"`
}

// SubmissionConfig describes the external score-recording endpoint.
type SubmissionConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PaymentConfig describes the opaque payment provider boundary.
type PaymentConfig struct {
	Provider string `mapstructure:"provider"`
	Currency string `mapstructure:"currency"`
}

// PhaseDuration returns the configured per-phase timer length.
func (e ExamConfig) PhaseDuration() time.Duration {
	return time.Duration(e.PhaseMinutes) * time.Minute
}

// BreakDuration returns the configured between-phase break length.
func (e ExamConfig) BreakDuration() time.Duration {
	return time.Duration(e.BreakMinutes) * time.Minute
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "exams-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Exam defaults
	v.SetDefault("exam.questions_file", "config/questions.yaml")
	v.SetDefault("exam.phase_minutes", 10)
	v.SetDefault("exam.break_minutes", 2)
	v.SetDefault("exam.default_subject", "mail")
	v.SetDefault("exam.abandoned_max_age_hours", 24)

	// Submission defaults
	v.SetDefault("submission.endpoint", "")
	v.SetDefault("submission.timeout_seconds", 10)

	// Payment defaults
	v.SetDefault("payment.provider", "none")
	v.SetDefault("payment.currency", "EGP")
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("EXAMS") // e.g., EXAMS_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
