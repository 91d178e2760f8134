package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvServerURL = "TYPETEST_SERVER_URL"
	EnvListen    = "TYPETEST_LISTEN"
	EnvLogLevel  = "TYPETEST_LOG_LEVEL"
	EnvLogFormat = "TYPETEST_LOG_FORMAT"
)

// LoadEnv loads a .env file from the working directory if one exists and
// applies environment overrides to cfg. Variables already set win over the
// file.
func LoadEnv(cfg *FileConfig, files ...string) {
	_ = godotenv.Load(files...)
	overrideString(&cfg.Server.URL, EnvServerURL)
	overrideString(&cfg.Server.Listen, EnvListen)
	overrideString(&cfg.Log.Level, EnvLogLevel)
	overrideString(&cfg.Log.Format, EnvLogFormat)
}

func overrideString(dst **string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = &v
	}
}

// StringOr returns *p or fallback when p is nil.
func StringOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
