package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gims/internal/flagx"
	"github.com/dmitrijs2005/gims/internal/timex"
)

// JsonConfig is the DTO read from the -c/-config file. Duration fields use
// timex.Duration so both "15m" strings and integer nanoseconds are accepted.
// Fields left out of the file keep their previous value.
type JsonConfig struct {
	HTTPAddr                  string         `json:"http_addr"`
	HealthAddrGRPC            string         `json:"health_addr_grpc"`
	HealthCheckInterval       timex.Duration `json:"health_check_interval"`
	DatabaseDSN               string         `json:"database_dsn"`
	SecretKey                 string         `json:"secret_key"`
	SessionTokenValidity      timex.Duration `json:"session_token_validity"`
	VerificationTokenValidity timex.Duration `json:"verification_token_validity"`
	LockoutThreshold          int            `json:"lockout_threshold"`
	LockoutDuration           timex.Duration `json:"lockout_duration"`
	PasswordHashAlgorithm     string         `json:"password_hash_algorithm"`
	BcryptCost                int            `json:"bcrypt_cost"`
	AppURL                    string         `json:"app_url"`
	AllowedOrigins            []string       `json:"allowed_origins"`
	SMTPHost                  string         `json:"smtp_host"`
	SMTPPort                  int            `json:"smtp_port"`
	SMTPUser                  string         `json:"smtp_user"`
	SMTPPassword              string         `json:"smtp_password"`
	SMTPFrom                  string         `json:"smtp_from"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
	MaxUploadSize             int64          `json:"max_upload_size"`
	DevMode                   *bool          `json:"dev_mode"`
	LogLevel                  string         `json:"log_level"`
	LogFormat                 string         `json:"log_format"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing happens. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenValidity, c.SessionTokenValidity)
	setDuration(&config.VerificationTokenValidity, c.VerificationTokenValidity)
	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.AppURL, c.AppURL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.DevMode != nil {
		config.DevMode = *c.DevMode
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if !v.IsZero() {
		*dst = v.Duration
	}
}
