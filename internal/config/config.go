package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	HeartbeatSeconds         int
	LivenessMultiplier       int
	RoomIdleSeconds          int
	RoomSweepSeconds         int
	MaxPlayersPerRoom        int
	AllowHostGuess           bool
	SendBufferSize           int
	ReconnectAttempts        int
	ReconnectBackoffMillis   int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	OpenAIAPIKey             string
	OpenAIImageModel         string
	OpenAIImageSize          string
}

func Default() Config {
	return Config{
		HeartbeatSeconds:         15,
		LivenessMultiplier:       3,
		RoomIdleSeconds:          1800,
		RoomSweepSeconds:         60,
		MaxPlayersPerRoom:        12,
		AllowHostGuess:           false,
		SendBufferSize:           64,
		ReconnectAttempts:        5,
		ReconnectBackoffMillis:   2000,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		OpenAIImageModel:         "gpt-image-1",
		OpenAIImageSize:          "1024x1024",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("HEARTBEAT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.HeartbeatSeconds = value
		}
	}
	if raw := os.Getenv("LIVENESS_MULTIPLIER"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LivenessMultiplier = value
		}
	}
	if raw := os.Getenv("ROOM_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoomIdleSeconds = value
		}
	}
	if raw := os.Getenv("ROOM_SWEEP_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoomSweepSeconds = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS_PER_ROOM"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.MaxPlayersPerRoom = value
		}
	}
	if raw := os.Getenv("ALLOW_HOST_GUESS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.AllowHostGuess = value
		}
	}
	if raw := os.Getenv("SEND_BUFFER_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SendBufferSize = value
		}
	}
	if raw := os.Getenv("RECONNECT_ATTEMPTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconnectAttempts = value
		}
	}
	if raw := os.Getenv("RECONNECT_BACKOFF_MILLIS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconnectBackoffMillis = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if raw := os.Getenv("OPENAI_IMAGE_MODEL"); raw != "" {
		cfg.OpenAIImageModel = raw
	}
	if raw := os.Getenv("OPENAI_IMAGE_SIZE"); raw != "" {
		cfg.OpenAIImageSize = raw
	}
	return cfg
}
