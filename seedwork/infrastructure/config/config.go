package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Firebase   FirebaseConfig
	Server     ServerConfig
	Processing ProcessingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// FirebaseConfig holds Firebase configuration
type FirebaseConfig struct {
	ProjectID           string
	CredentialsPath     string
	UseEmulator         bool
	EmulatorHost        string
	ServiceAccountEmail string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// ProcessingConfig holds the audio pipeline's dependencies: which
// repository backend to use, and how to reach the object store, transcoder,
// STT, and LLM services a pipeline run depends on.
type ProcessingConfig struct {
	// RepositoryType selects the episode/task/step-log repository backend:
	// "gorm", "memory", or "firebase".
	RepositoryType string

	ObjectStore ObjectStoreConfig
	Transcoder  TranscoderConfig
	STT         STTConfig
	LLM         LLMConfig

	RetryBudget time.Duration
}

// ObjectStoreConfig configures the S3/R2-compatible object store client.
type ObjectStoreConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicEndpoint  string // presentation-URL base for finished artifacts
}

// TranscoderConfig configures the remote transcoding/chunking service.
type TranscoderConfig struct {
	BaseURL string
}

// STTConfig configures the remote speech-to-text service.
type STTConfig struct {
	BaseURL string
	APIKey  string
}

// LLMConfig configures the Enhancer's text-generation backend. Provider is
// one of "openai", "anthropic", "gemini"; empty disables enhancement.
type LLMConfig struct {
	Provider string
	Model    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "your-super-secret-and-long-postgres-password"),
			Name:     getEnv("DB_NAME", "teammate_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Firebase: FirebaseConfig{
			ProjectID:           getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath:     getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			UseEmulator:         getEnvBool("FIREBASE_USE_EMULATOR", false),
			EmulatorHost:        getEnv("FIREBASE_EMULATOR_HOST", "localhost:9099"),
			ServiceAccountEmail: getEnv("FIREBASE_SERVICE_ACCOUNT_EMAIL", ""),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Processing: ProcessingConfig{
			RepositoryType: getEnv("PROCESSING_REPOSITORY_TYPE", "gorm"),
			ObjectStore: ObjectStoreConfig{
				Bucket:          getEnv("OBJECT_STORE_BUCKET", ""),
				Endpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
				Region:          getEnv("OBJECT_STORE_REGION", "auto"),
				AccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
				PublicEndpoint:  getEnv("OBJECT_STORE_PUBLIC_ENDPOINT", ""),
			},
			Transcoder: TranscoderConfig{
				BaseURL: getEnv("TRANSCODER_BASE_URL", "http://localhost:8081"),
			},
			STT: STTConfig{
				BaseURL: getEnv("STT_BASE_URL", "http://localhost:8082"),
				APIKey:  getEnv("STT_API_KEY", ""),
			},
			LLM: LLMConfig{
				Provider: getEnv("LLM_PROVIDER", ""),
				Model:    getEnv("LLM_MODEL", ""),
			},
			RetryBudget: getEnvDuration("PROCESSING_RETRY_BUDGET", time.Hour),
		},
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable parsed as a Go duration
// string (e.g. "1h", "90s") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
