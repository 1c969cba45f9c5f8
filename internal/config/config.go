/**
 * @description
 * This file handles the configuration management for the renewal-service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage
 * application settings.
 *
 * Secrets (JWT secret, gateway credentials, bootstrap admin password) are
 * never hardcoded; they must be supplied through the environment.
 */
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Auth
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	// Payment gateway
	RazorpayBaseURL       string `mapstructure:"RAZORPAY_BASE_URL"`
	RazorpayKeyID         string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayPaymentSecret string `mapstructure:"RAZORPAY_PAYMENT_SECRET"`

	// Bootstrap admin, created at startup when both values are set.
	DefaultAdminUserID   string `mapstructure:"DEFAULT_ADMIN_USER_ID"`
	DefaultAdminPassword string `mapstructure:"DEFAULT_ADMIN_PASSWORD"`

	// Optional collaborators
	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	// Background expiry sweep
	ExpirySweepSchedule string `mapstructure:"EXPIRY_SWEEP_SCHEDULE"`

	// Rate limiting for the renewal endpoint
	RenewRateLimit         int `mapstructure:"RENEW_RATE_LIMIT"`
	RenewRateWindowSeconds int `mapstructure:"RENEW_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("EXPIRY_SWEEP_SCHEDULE", "0 * * * *")
	viper.SetDefault("RENEW_RATE_LIMIT", 10)
	viper.SetDefault("RENEW_RATE_WINDOW_SECONDS", 60)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_HOURS")
	_ = viper.BindEnv("RAZORPAY_BASE_URL")
	_ = viper.BindEnv("RAZORPAY_KEY_ID")
	_ = viper.BindEnv("RAZORPAY_KEY_SECRET")
	_ = viper.BindEnv("RAZORPAY_PAYMENT_SECRET")
	_ = viper.BindEnv("DEFAULT_ADMIN_USER_ID")
	_ = viper.BindEnv("DEFAULT_ADMIN_PASSWORD")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EXPIRY_SWEEP_SCHEDULE")
	_ = viper.BindEnv("RENEW_RATE_LIMIT")
	_ = viper.BindEnv("RENEW_RATE_WINDOW_SECONDS")

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if config.JWTSecret == "" {
		err = errors.New("JWT_SECRET must be set")
		return
	}
	// The renewal signature check keys an HMAC with this secret; an empty
	// value would make forged confirmations trivially verifiable.
	if config.RazorpayPaymentSecret == "" {
		err = errors.New("RAZORPAY_PAYMENT_SECRET must be set")
	}
	return
}
