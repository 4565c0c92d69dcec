package config

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: "./migrations",
		Slack: SlackConfig{
			Token:     getEnv("SLACK_BOT_TOKEN"),
			ChannelID: getEnv("SLACK_CHANNEL_ID"),
		},
		Port: getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: os.Getenv("TURSO_PRIMARY_URL"),
			AuthToken:  os.Getenv("TURSO_AUTH_TOKEN"),
		},
		ProjectID: getEnv("GCP_PROJECT"),
		AdminIDs:  splitList(os.Getenv("ADMIN_IDS")),
	}
	return cfg
}

// splitList parses a comma separated env value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
