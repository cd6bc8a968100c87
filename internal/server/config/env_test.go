package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	orig := lookupEnv
	t.Cleanup(func() { lookupEnv = orig })
	lookupEnv = func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	fakeEnv(t, map[string]string{
		"PORT":                    "5002",
		"DATABASE_URL":            "postgres://env/gims",
		"JWT_SECRET":              "env-secret",
		"SESSION_TOKEN_TTL":       "72h",
		"LOCKOUT_THRESHOLD":       "7",
		"LOCKOUT_DURATION":        "5m",
		"APP_URL":                 "https://gims.example",
		"ALLOWED_ORIGINS":         "https://a.example, https://b.example,,",
		"EMAIL_HOST":              "smtp.gmail.com",
		"EMAIL_PORT":              "465",
		"EMAIL_USER":              "mailer",
		"EMAIL_PASS":              "app-password",
		"PASSWORD_HASH_ALGORITHM": "argon2id",
		"MAX_UPLOAD_SIZE":         "2048",
		"DEV_MODE":                "true",
		"LOG_LEVEL":               "",
	})

	var cfg Config
	cfg.LoadDefaults()
	applyEnv(&cfg)

	assert.Equal(t, ":5002", cfg.HTTPAddr)
	assert.Equal(t, "postgres://env/gims", cfg.DatabaseDSN)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 72*time.Hour, cfg.SessionTokenValidity)
	assert.Equal(t, 7, cfg.LockoutThreshold)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, "https://gims.example", cfg.AppURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, "mailer", cfg.SMTPUser)
	assert.Equal(t, "app-password", cfg.SMTPPassword)
	assert.Equal(t, auth.HashArgon2id, cfg.PasswordHashAlgorithm)
	assert.Equal(t, int64(2048), cfg.MaxUploadSize)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel, "empty variables are ignored")
}

func TestApplyEnv_MalformedPanics(t *testing.T) {
	for name, value := range map[string]string{
		"LOCKOUT_THRESHOLD": "five",
		"LOCKOUT_DURATION":  "soon",
		"DEV_MODE":          "maybe",
		"MAX_UPLOAD_SIZE":   "10MB",
	} {
		t.Run(name, func(t *testing.T) {
			fakeEnv(t, map[string]string{name: value})
			require.Panics(t, func() { applyEnv(&Config{}) })
		})
	}
}

func TestParseEnv_DotenvFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GIMS_TEST_ONLY_SECRET=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GIMS_TEST_ONLY_SECRET") })

	os.Args = []string{"testbin", "-env", path}
	var cfg Config
	cfg.LoadDefaults()
	require.NotPanics(t, func() { parseEnv(&cfg) })

	v, ok := os.LookupEnv("GIMS_TEST_ONLY_SECRET")
	require.True(t, ok)
	assert.Equal(t, "from-file", v)
}

func TestParseEnv_MissingExplicitFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "absent.env")}
	require.Panics(t, func() { parseEnv(&Config{}) })
}
