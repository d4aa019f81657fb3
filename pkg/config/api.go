package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	MigrationsDir   string
	JWTSecret       string
	TokenTTL        time.Duration
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
// JWTSecret may be empty here; the entrypoint is responsible for
// provisioning an explicit secret before wiring services.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:     GetString("APP_ENV", "development"),
		Addr:            GetString("API_ADDR", ":4000"),
		DatabaseURL:     GetString("DATABASE_URL", "postgres://taskboard:taskboard@db:5432/taskboard?sslmode=disable"),
		MigrationsDir:   GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:       GetString("JWT_SECRET", ""),
		TokenTTL:        time.Duration(GetInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		CORSOrigins:     GetStrings("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout: time.Duration(GetInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}
