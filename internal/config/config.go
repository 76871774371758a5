package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	DatabaseURL    string
	SessionSecret  string
	SessionTTL     time.Duration
	ContestWindow  time.Duration
	ContestGrace   time.Duration
	WinThreshold   int
	TurnsPerPlayer int
	ClipDuration   int
	MaxPlayers     int
	MetricsEnabled bool
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.SessionSecret = getenv("SESSION_SECRET", "dev-only-secret")
	c.SessionTTL = time.Duration(getint("SESSION_TTL_HOURS", 24)) * time.Hour
	c.ContestWindow = time.Duration(getint("CONTEST_WINDOW_SECONDS", 15)) * time.Second
	c.ContestGrace = time.Duration(getint("CONTEST_GRACE_SECONDS", 2)) * time.Second
	c.WinThreshold = getint("WIN_THRESHOLD", 10)
	c.TurnsPerPlayer = getint("TURNS_PER_PLAYER", 5)
	c.ClipDuration = getint("CLIP_DURATION_SECONDS", 15)
	c.MaxPlayers = getint("MAX_PLAYERS", 10)
	c.MetricsEnabled = getenv("METRICS_ENABLED", "true") == "true"
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
