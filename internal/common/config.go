package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig
	Gemini       GeminiConfig
	Remote       RemoteConfig
	Enrichment   EnrichmentConfig
	Pipeline     PipelineConfig
	Server       ServerConfig
	Organization OrganizationConfig
	Signatories  []SignatoryConfig
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// GeminiConfig holds generative model configuration
type GeminiConfig struct {
	APIKey              string
	BaseURL             string
	VisionModel         string
	TextModel           string
	VisionTemperature   float32
	VisionMaxTokens     int
	GenerateTemperature float32
	FormatTemperature   float32
	GenerateMaxTokens   int
	Timeout             time.Duration
	RequestsPerSecond   float64
	Burst               int
	MaxRetries          int // extra attempts after a 429 or 5xx; 0 leaves retrying to the caller
}

// RemoteConfig holds remote document fetch configuration
type RemoteConfig struct {
	ExportBaseURL        string
	DownloadBaseURL      string
	DriveAPIKey          string
	DriveCredentialsFile string
	MaxDownloadBytes     int64
	Timeout              time.Duration
}

// EnrichmentConfig holds operational-data sampling configuration
type EnrichmentConfig struct {
	PatientPool     int
	PatientSample   int
	EquipmentSample int
	IncidentSample  int
	RosterFile      string
}

// PipelineConfig holds extraction orchestration configuration
type PipelineConfig struct {
	Workers         int
	ArtifactTimeout time.Duration
	FailFast        bool
	QueueSize       int
	JobTimeout      time.Duration
	MaxPDFPages     int
	MarkdownToHTML  bool
}

// ServerConfig holds the daemon's listener and health probe settings
type ServerConfig struct {
	Port           string
	HealthInterval time.Duration
	HealthTimeout  time.Duration
}

// OrganizationConfig is the identity printed on evidence documents
type OrganizationConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
	LogoURL string
}

// SignatoryConfig is one fixed signatory
type SignatoryConfig struct {
	Role           string
	Name           string
	Designation    string
	SignatureImage string
}

// DefaultSignatories are used when SIGNATORIES is unset.
var DefaultSignatories = []SignatoryConfig{
	{Role: "PREPARED BY", Name: "Sonali Kakde", Designation: "Clinical Audit Coordinator", SignatureImage: "/Sonali's signature.png"},
	{Role: "REVIEWED BY", Name: "Gaurav Agrawal", Designation: "Hospital Administrator", SignatureImage: "/Gaurav's signature.png"},
	{Role: "APPROVED BY", Name: "Dr. Shiraz Khan", Designation: "NABH Coordinator / Administrator", SignatureImage: "/Dr shiraz's signature.png"},
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./evidence.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Gemini: GeminiConfig{
			APIKey:              getEnv("GEMINI_API_KEY", ""),
			BaseURL:             getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			VisionModel:         getEnv("GEMINI_VISION_MODEL", "gemini-2.0-flash"),
			TextModel:           getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
			VisionTemperature:   getEnvAsFloat32("GEMINI_VISION_TEMPERATURE", 0.3),
			VisionMaxTokens:     getEnvAsInt("GEMINI_VISION_MAX_TOKENS", 8192),
			GenerateTemperature: getEnvAsFloat32("GEMINI_GENERATE_TEMPERATURE", 0.7),
			FormatTemperature:   getEnvAsFloat32("GEMINI_FORMAT_TEMPERATURE", 0.3),
			GenerateMaxTokens:   getEnvAsInt("GEMINI_GENERATE_MAX_TOKENS", 16384),
			Timeout:             getEnvAsDuration("GEMINI_TIMEOUT", 120*time.Second),
			RequestsPerSecond:   getEnvAsFloat64("GEMINI_RPS", 2),
			Burst:               getEnvAsInt("GEMINI_BURST", 4),
			MaxRetries:          getEnvAsInt("GEMINI_MAX_RETRIES", 0),
		},
		Remote: RemoteConfig{
			ExportBaseURL:        getEnv("GDOCS_EXPORT_BASE_URL", "https://docs.google.com"),
			DownloadBaseURL:      getEnv("GDRIVE_DOWNLOAD_BASE_URL", "https://drive.google.com"),
			DriveAPIKey:          getEnv("GDRIVE_API_KEY", ""),
			DriveCredentialsFile: getEnv("GDRIVE_CREDENTIALS_FILE", ""),
			MaxDownloadBytes:     getEnvAsInt64("REMOTE_MAX_BYTES", 25<<20),
			Timeout:              getEnvAsDuration("REMOTE_TIMEOUT", 60*time.Second),
		},
		Enrichment: EnrichmentConfig{
			PatientPool:     getEnvAsInt("ENRICH_PATIENT_POOL", 20),
			PatientSample:   getEnvAsInt("ENRICH_PATIENT_SAMPLE", 8),
			EquipmentSample: getEnvAsInt("ENRICH_EQUIPMENT_SAMPLE", 5),
			IncidentSample:  getEnvAsInt("ENRICH_INCIDENT_SAMPLE", 3),
			RosterFile:      getEnv("ROSTER_FILE", ""),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			ArtifactTimeout: getEnvAsDuration("PIPELINE_ARTIFACT_TIMEOUT", 2*time.Minute),
			FailFast:        getEnvAsBool("PIPELINE_FAIL_FAST", false),
			QueueSize:       getEnvAsInt("PIPELINE_QUEUE_SIZE", 64),
			JobTimeout:      getEnvAsDuration("PIPELINE_JOB_TIMEOUT", 10*time.Minute),
			MaxPDFPages:     getEnvAsInt("VISION_MAX_PDF_PAGES", 0),
			MarkdownToHTML:  getEnvAsBool("SYNTH_MARKDOWN_TO_HTML", false),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			HealthInterval: getEnvAsDuration("HEALTH_INTERVAL", 15*time.Second),
			HealthTimeout:  getEnvAsDuration("HEALTH_TIMEOUT", 2*time.Second),
		},
		Organization: OrganizationConfig{
			Name:    getEnv("ORG_NAME", "Hope Hospital"),
			Address: getEnv("ORG_ADDRESS", "2, Teka Naka, Nagpur, Maharashtra 440022"),
			Phone:   getEnv("ORG_PHONE", "+91 9823555053"),
			Email:   getEnv("ORG_EMAIL", "info@hopehospital.com"),
			Website: getEnv("ORG_WEBSITE", "www.hopehospital.com"),
			LogoURL: getEnv("ORG_LOGO_URL", "https://www.nabh.online/assets/hope-hospital-logo.png"),
		},
		Signatories: parseSignatories(getEnv("SIGNATORIES", "")),
	}
}

// parseSignatories reads "ROLE|Name|Designation|Image;..." and falls back to DefaultSignatories.
func parseSignatories(raw string) []SignatoryConfig {
	if strings.TrimSpace(raw) == "" {
		return append([]SignatoryConfig(nil), DefaultSignatories...)
	}
	var out []SignatoryConfig
	for _, entry := range strings.Split(raw, ";") {
		parts := strings.Split(entry, "|")
		if len(parts) < 3 {
			continue
		}
		s := SignatoryConfig{
			Role:        strings.TrimSpace(parts[0]),
			Name:        strings.TrimSpace(parts[1]),
			Designation: strings.TrimSpace(parts[2]),
		}
		if len(parts) > 3 {
			s.SignatureImage = strings.TrimSpace(parts[3])
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return append([]SignatoryConfig(nil), DefaultSignatories...)
	}
	return out
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoreDriverPostgres:
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required when STORE_DRIVER=postgres", ErrInvalidInput)
		}
	case StoreDriverSQLite:
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required when STORE_DRIVER=sqlite", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Gemini.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "GEMINI_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Enrichment.PatientSample < 0 || c.Enrichment.PatientPool < 0 {
		return NewAppError("CONFIG_ERROR", "enrichment sample sizes must not be negative", ErrInvalidInput)
	}
	if len(c.Signatories) == 0 {
		return NewAppError("CONFIG_ERROR", "at least one signatory is required", ErrInvalidInput)
	}
	return nil
}
