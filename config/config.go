// Package config loads server configuration from the environment.
// A .env file is honored when present; every value has a usable default
// except the JWT secret, which must be set outside local development.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv            string
	Addr              string
	DBPath            string
	JwtSecret         string
	SessionTTLMinutes int
	AllowedOrigins    string
	DataDir           string

	// ResetAdminPassword reissues the admin password on startup when true.
	ResetAdminPassword bool
	// AdminPasswordOutDir overrides where the generated admin password
	// file is written; defaults to DataDir.
	AdminPasswordOutDir string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:              getEnv("APP_ENV", "local"),
		Addr:                getEnv("APP_ADDR", ":8080"),
		DBPath:              getEnv("DB_PATH", "attendance.db"),
		JwtSecret:           os.Getenv("JWT_SECRET"),
		SessionTTLMinutes:   getEnvInt("SESSION_TTL_MINUTES", 480),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080"),
		DataDir:             getEnv("DATA_DIR", "."),
		ResetAdminPassword:  os.Getenv("RESET_ADMIN_PASSWORD") == "1",
		AdminPasswordOutDir: os.Getenv("ADMIN_PASSWORD_OUT_DIR"),
	}

	if cfg.AdminPasswordOutDir == "" {
		cfg.AdminPasswordOutDir = cfg.DataDir
	}

	if cfg.JwtSecret == "" {
		if cfg.AppEnv != "local" {
			return cfg, errors.New("missing env: JWT_SECRET")
		}
		// Local development only. A random secret would invalidate
		// sessions on every restart, which is worse for a dev loop.
		cfg.JwtSecret = "local-dev-secret"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
