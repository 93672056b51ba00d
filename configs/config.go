package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PlatformClientKey    string
	PlatformClientSecret string
	PlatformRedirectURI  string
	PlatformAPIBaseURL   string
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	R2                   R2
	SecretKey            string
	CookieName           string
	PublishTimeout       time.Duration
	PublishReconcileIn   time.Duration
	SignedURLTTL         time.Duration
	SignedURLBuffer      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PlatformClientKey:    getEnv("PLATFORM_CLIENT_KEY", ""),
		PlatformClientSecret: getEnv("PLATFORM_CLIENT_SECRET", ""),
		PlatformRedirectURI:  getEnv("PLATFORM_REDIRECT_URI", ""),
		PlatformAPIBaseURL:   getEnv("PLATFORM_API_BASE_URL", "https://open.tiktokapis.com"),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:    getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", ""),
		PublishTimeout:     getEnvSeconds("PUBLISH_TIMEOUT_SECONDS", 30*time.Second),
		PublishReconcileIn: getEnvSeconds("PUBLISH_RECONCILE_SECONDS", 30*time.Minute),
		SignedURLTTL:       getEnvSeconds("SIGNED_URL_TTL_SECONDS", time.Hour),
		SignedURLBuffer:    getEnvSeconds("SIGNED_URL_BUFFER_SECONDS", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
