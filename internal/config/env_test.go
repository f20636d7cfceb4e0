package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MAX_UPLOAD_MB", "EXTRACTION_SCALE", "REGION_SCALE", "PRELOAD_MARGIN_PX", "CLAMP_SELECTION", "PAGE_FAILURE_POLICY", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "", cfg.Port, "an explicitly empty variable wins over the default")
	assert.Equal(t, 100, cfg.MaxUploadMB)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxUploadBytes())
	assert.Equal(t, 1.5, cfg.ExtractionScale)
	assert.Equal(t, 2.0, cfg.RegionScale)
	assert.Equal(t, 500.0, cfg.PreloadMarginPx)
	assert.True(t, cfg.ClampSelection)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "25")
	t.Setenv("EXTRACTION_SCALE", "2")
	t.Setenv("CLAMP_SELECTION", "false")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RENDER_CONCURRENCY", "many")

	cfg := LoadConfig()
	assert.Equal(t, 25, cfg.MaxUploadMB)
	assert.Equal(t, 2.0, cfg.ExtractionScale)
	assert.False(t, cfg.ClampSelection)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 4, cfg.RenderConcurrency, "unparsable values fall back")
}

func validConfig() *Config {
	return &Config{
		MaxUploadMB:       100,
		ExtractionScale:   1.5,
		RegionScale:       2,
		RenderScale:       1.5,
		DisplayScale:      1.5,
		PreloadMarginPx:   500,
		ExtractionWorkers: 1,
		PageFailurePolicy: "abort",
		JWTSecret:         "s",
		AIAPIKey:          "k",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().ValidateServer())

	cfg := validConfig()
	cfg.RegionScale = 0
	cfg.PageFailurePolicy = "retry"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGION_SCALE")
	assert.Contains(t, err.Error(), "PAGE_FAILURE_POLICY")

	cfg = validConfig()
	cfg.JWTSecret = ""
	assert.NoError(t, cfg.Validate())
	assert.ErrorContains(t, cfg.ValidateServer(), "JWT_SECRET")
}

func TestS3Enabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.S3Enabled())
	cfg.AwsAccessKey, cfg.AwsSecretKey, cfg.BucketName = "a", "b", "c"
	assert.True(t, cfg.S3Enabled())
}
