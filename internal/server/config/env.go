package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gims/internal/flagx"
	"github.com/joho/godotenv"
)

// defaultEnvFile is loaded when present and no -env flag is given.
const defaultEnvFile = ".env"

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv loads the dotenv file (-env flag, else ./.env when present) into
// the process environment and overlays recognised variables on config.
// Variables already set in the environment take precedence over the file.
//
// Recognised variables:
//
//	PORT / HTTP_ADDR, GRPC_HEALTH_ADDR, DATABASE_URL, JWT_SECRET,
//	SESSION_TOKEN_TTL, VERIFICATION_TOKEN_TTL, LOCKOUT_THRESHOLD,
//	LOCKOUT_DURATION, PASSWORD_HASH_ALGORITHM, BCRYPT_COST, APP_URL,
//	ALLOWED_ORIGINS (comma separated), EMAIL_HOST, EMAIL_PORT, EMAIL_USER,
//	EMAIL_PASS, EMAIL_FROM, S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET,
//	S3_REGION, S3_BASE_ENDPOINT, MAX_UPLOAD_SIZE, DEV_MODE, LOG_LEVEL,
//	LOG_FORMAT.
//
// Malformed values panic, matching the JSON and flag loaders.
func parseEnv(config *Config) {
	envFile := flagx.EnvFileFlags()
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}

	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(fmt.Errorf("load env file %s: %w", envFile, err))
		}
	}

	applyEnv(config)
}

func applyEnv(config *Config) {
	if v, ok := lookupEnv("PORT"); ok && v != "" {
		config.HTTPAddr = ":" + v
	}
	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("GRPC_HEALTH_ADDR", &config.HealthAddrGRPC)
	envString("DATABASE_URL", &config.DatabaseDSN)
	envString("JWT_SECRET", &config.SecretKey)
	envDuration("SESSION_TOKEN_TTL", &config.SessionTokenValidity)
	envDuration("VERIFICATION_TOKEN_TTL", &config.VerificationTokenValidity)
	envInt("LOCKOUT_THRESHOLD", &config.LockoutThreshold)
	envDuration("LOCKOUT_DURATION", &config.LockoutDuration)
	envString("PASSWORD_HASH_ALGORITHM", &config.PasswordHashAlgorithm)
	envInt("BCRYPT_COST", &config.BcryptCost)
	envString("APP_URL", &config.AppURL)
	if v, ok := lookupEnv("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
	envString("EMAIL_HOST", &config.SMTPHost)
	envInt("EMAIL_PORT", &config.SMTPPort)
	envString("EMAIL_USER", &config.SMTPUser)
	envString("EMAIL_PASS", &config.SMTPPassword)
	envString("EMAIL_FROM", &config.SMTPFrom)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	if v, ok := lookupEnv("MAX_UPLOAD_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(fmt.Errorf("MAX_UPLOAD_SIZE: %w", err))
		}
		config.MaxUploadSize = n
	}
	if v, ok := lookupEnv("DEV_MODE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("DEV_MODE: %w", err))
		}
		config.DevMode = b
	}
	envString("LOG_LEVEL", &config.LogLevel)
	envString("LOG_FORMAT", &config.LogFormat)
}

func envString(name string, dst *string) {
	if v, ok := lookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := lookupEnv(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = n
}

func envDuration(name string, dst *time.Duration) {
	v, ok := lookupEnv(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
