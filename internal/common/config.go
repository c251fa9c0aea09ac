package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Raster    RasterConfig
	Storage   StorageConfig
	Templates TemplateConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string
}

// OCRConfig holds text-acquisition configuration. Binary fields may be bare
// names (resolved via PATH) or absolute paths.
type OCRConfig struct {
	Pdftotext       string
	Tesseract       string
	Langs           string // tesseract language pair, e.g. "ces+eng"
	MinPDFTextChars int    // below this, a PDF is treated as scanned
	ToolTimeout     time.Duration
}

// RasterConfig holds page-rasterization configuration.
type RasterConfig struct {
	Pdftoppm string
	Magick   string // fallback renderer
	DPI      int
	MaxPages int
	Timeout  time.Duration
}

// StorageConfig holds object-storage configuration for minio:// pointers.
type StorageConfig struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// TemplateConfig holds file-based template configuration.
type TemplateConfig struct {
	Dir string // directory of *.json template definitions, optional
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Pdftotext:       getEnv("PDFTOTEXT", "pdftotext"),
			Tesseract:       getEnv("TESSERACT", "tesseract"),
			Langs:           getEnv("OCR_LANGS", "ces+eng"),
			MinPDFTextChars: getEnvAsInt("PDF_TEXT_MIN_CHARS", 64),
			ToolTimeout:     getEnvAsDuration("TOOL_TIMEOUT", 60*time.Second),
		},
		Raster: RasterConfig{
			Pdftoppm: getEnv("PDFTOPPM", "pdftoppm"),
			Magick:   getEnv("MAGICK", "magick"),
			DPI:      getEnvAsInt("RASTER_DPI", 300),
			MaxPages: getEnvAsInt("RASTER_MAX_PAGES", 10),
			Timeout:  getEnvAsDuration("RASTER_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Templates: TemplateConfig{
			Dir: getEnv("TEMPLATE_DIR", ""),
		},
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.MinPDFTextChars < 0 {
		return NewAppError("CONFIG_ERROR", "PDF_TEXT_MIN_CHARS must be >= 0", ErrInvalidInput)
	}
	return nil
}
