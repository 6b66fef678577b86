// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configFile     = pflag.String("config", ".", "Directory to look for the config.toml file in")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configFile)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.frontend_url", "app_frontend_url")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors_origins", "host_cors_origins")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("security.jwt_secret", "security_jwt_secret")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("oauth.google.client_id", "oauth_google_client_id")
	v.BindEnv("oauth.google.client_secret", "oauth_google_client_secret")
	v.BindEnv("oauth.google.redirect_url", "oauth_google_redirect_url")

	v.BindEnv("ai.api_key", "ai_api_key")
	v.BindEnv("ai.base_url", "ai_base_url")
	v.BindEnv("ai.model", "ai_model")
	v.BindEnv("ai.search_model", "ai_search_model")
	v.BindEnv("ai.workers", "ai_workers")
	v.BindEnv("ai.max_jobs", "ai_max_jobs")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("storage.type", "storage_type")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.endpoint", "aws_endpoint")

	v.BindEnv("cache.redis_addr", "cache_redis_addr")

	v.BindEnv("cloudflare.turnstile.enabled", "cloudflare_turnstile_enabled")
	v.BindEnv("cloudflare.turnstile.secret_token", "cloudflare_turnstile_secret_token")

	v.BindEnv("metrics.enabled", "metrics_enabled")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.frontend_url", "http://localhost:5173")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.model", "gemini-2.5-pro")
	v.SetDefault("ai.search_model", "gemini-2.5-flash-lite")
	v.SetDefault("ai.workers", 4)
	v.SetDefault("ai.max_jobs", 32)
	v.SetDefault("ai.timeout_seconds", 90)

	v.SetDefault("quota.guest.analyses", 10)
	v.SetDefault("quota.user.analyses", 100)
	v.SetDefault("quota.guest.ai_search", 0)
	v.SetDefault("quota.user.ai_search", 10)
	v.SetDefault("quota.user.share_links", 5)
	v.SetDefault("quota.retention_days", 30)

	v.SetDefault("upload.max_size", 16)

	v.SetDefault("storage.type", "none")

	v.SetDefault("cache.ttl_seconds", 60)

	v.SetDefault("barcode.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("barcode.cache_ttl_minutes", 60)

	v.SetDefault("share.expiry_days", 7)

	v.SetDefault("session.expiry_days", 30)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("metrics.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid db driver provided")
	}

	if v.GetString("db.driver") == "postgres" && v.GetString("db.dsn") == "" {
		return errors.New("db.dsn is required when using the postgres driver")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("security.jwt_secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetString("ai.api_key") == "" {
		return errors.New("ai.api_key is missing, analysis requests can't be served without it")
	}

	if v.GetString("oauth.google.client_id") == "" || v.GetString("oauth.google.client_secret") == "" {
		zap.L().Warn("Google OAuth is not configured, sign-in will be unavailable")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	switch v.GetString("storage.type") {
	case "s3":
		if v.GetString("aws.access_key") == "" {
			return errors.New("aws access key can't be empty")
		}
		if v.GetString("aws.secret_access_key") == "" {
			return errors.New("aws secret access key can't be empty")
		}
		if v.GetString("aws.bucket") == "" {
			return errors.New("bucket can't be empty")
		}
	case "none":
		zap.L().Warn("Image storage is disabled, analyses will be saved without their images")
	default:
		return errors.New("invalid storage type provided")
	}

	for _, k := range []string{"quota.guest.analyses", "quota.user.analyses", "quota.guest.ai_search", "quota.user.ai_search", "quota.user.share_links"} {
		if v.GetInt(k) < 0 {
			return fmt.Errorf("%s can't be negative", k)
		}
	}

	if v.GetInt("quota.retention_days") <= 0 {
		return errors.New("quota.retention_days must be bigger than 0")
	}

	if v.GetBool("cloudflare.turnstile.enabled") && v.GetString("cloudflare.turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)

	// Quota ceilings are the values most likely to be re-tuned while the
	// service runs, so pick up config edits without a restart
	v.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("Config file reloaded",
			zap.String("file", e.Name),
			zap.Int("quota_guest_analyses", v.GetInt("quota.guest.analyses")),
			zap.Int("quota_user_analyses", v.GetInt("quota.user.analyses")))
	})
	v.WatchConfig()

	return nil
}
