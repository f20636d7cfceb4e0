package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	JWTSecret      string
	TokenTTL       time.Duration

	DatabaseURL string
	SslCertPath string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey string
	GenModel string

	MaxUploadMB     int
	DefaultTokenCap int64
	AdminEmail      string
	AdminPassword   string

	ExtractionWorkers int
	ExtractionScale   float64
	RegionScale       float64
	RenderScale       float64
	DisplayScale      float64
	PreloadMarginPx   float64
	PageGapPx         float64
	RenderConcurrency int
	PageFailurePolicy string
	ClampSelection    bool

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "alttexta-docs"),

		AIAPIKey: getEnv("GEMINI_API_KEY", ""),
		GenModel: getEnv("GEN_MODEL", "gemini-1.5-flash"),

		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 100),
		DefaultTokenCap: int64(getEnvInt("DEFAULT_TOKEN_CAP", 50000)),
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),

		ExtractionWorkers: getEnvInt("EXTRACTION_WORKERS", 2),
		ExtractionScale:   getEnvFloat("EXTRACTION_SCALE", 1.5),
		RegionScale:       getEnvFloat("REGION_SCALE", 2.0),
		RenderScale:       getEnvFloat("RENDER_SCALE", 1.5),
		DisplayScale:      getEnvFloat("DISPLAY_SCALE", 1.5),
		PreloadMarginPx:   getEnvFloat("PRELOAD_MARGIN_PX", 500),
		PageGapPx:         getEnvFloat("PAGE_GAP_PX", 16),
		RenderConcurrency: getEnvInt("RENDER_CONCURRENCY", 4),
		PageFailurePolicy: getEnv("PAGE_FAILURE_POLICY", "abort"),
		ClampSelection:    getEnvBool("CLAMP_SELECTION", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// MaxUploadBytes is the size gate applied to uploads and fetched URLs.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// S3Enabled reports whether source and export archiving is configured.
func (c *Config) S3Enabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.BucketName != ""
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	for name, v := range map[string]float64{
		"EXTRACTION_SCALE": c.ExtractionScale,
		"REGION_SCALE":     c.RegionScale,
		"RENDER_SCALE":     c.RenderScale,
		"DISPLAY_SCALE":    c.DisplayScale,
	} {
		if v <= 0 || v > 8 {
			errs = append(errs, fmt.Errorf("%s must be in (0, 8], got %g", name, v))
		}
	}
	if c.PreloadMarginPx < 0 || c.PageGapPx < 0 {
		errs = append(errs, errors.New("PRELOAD_MARGIN_PX and PAGE_GAP_PX must not be negative"))
	}
	if c.ExtractionWorkers <= 0 {
		errs = append(errs, fmt.Errorf("EXTRACTION_WORKERS must be positive, got %d", c.ExtractionWorkers))
	}
	switch strings.ToLower(c.PageFailurePolicy) {
	case "abort", "skip":
	default:
		errs = append(errs, fmt.Errorf("PAGE_FAILURE_POLICY must be abort or skip, got %q", c.PageFailurePolicy))
	}
	if c.DefaultTokenCap < 0 {
		errs = append(errs, errors.New("DEFAULT_TOKEN_CAP must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateServer adds the checks only the HTTP service needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET not set"))
	}
	if c.AIAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY not set"))
	}
	return errors.Join(errs...)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		warn(key, v, "an int", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		warn(key, v, "a number", def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warn(key, v, "a bool", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warn(key, v, "a duration", def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// warn runs before the logger exists, so it writes straight to stderr.
func warn(key, value, kind string, def any) {
	fmt.Fprintf(os.Stderr, "WARN: %s=%q not %s, using default %v\n", key, value, kind, def)
}
