// internal/config/config.go
//
// Process configuration loaded from the environment (and .env when present).
//
// Environment variables (defaults in brackets):
//   PORT [5175]                     HTTP listen port
//   LOG_LEVEL [info]                zerolog level
//   DB_PATH [./data/app.db]         SQLite file
//   JWT_SECRET [dev_secret_change_me]
//   JWT_EXPIRES_DAYS [14]
//   COOKIE_NAME [diferencias_token]
//   CLIENT_ORIGIN [http://localhost:5173]
//   APP_ENV [development]           anything but "production" enables the editor
//   LEVELS_DIR []                   empty uses the embedded levels
//   DAILY_SALT [local_dev_salt]
//   SAVE_DEBOUNCE_MS [200]
//   DEFAULT_TIME_LIMIT [120]        seconds, when a level sets none
//   ROUND_SWEEP_SECONDS [60]        how often stale rounds are evicted (0 disables)
//   ROUND_FINISHED_TTL_MIN [10]     finished rounds older than this are evicted
//   ROUND_IDLE_TTL_MIN [60]         rounds with no activity for this long are evicted

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is read once in main and passed down explicitly.
type Config struct {
	Port             string
	LogLevel         string
	DBPath           string
	JWTSecret        string
	JWTTTL           time.Duration
	CookieName       string
	ClientOrigin     string
	Env              string
	DevMode          bool
	LevelsDir        string
	DailySalt        string
	SaveDebounce     time.Duration
	DefaultTimeLimit int
	RoundSweep       time.Duration
	RoundFinishedTTL time.Duration
	RoundIdleTTL     time.Duration
}

// Load reads .env (if any) and the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	env := getEnv("APP_ENV", "development")
	return Config{
		Port:             getEnv("PORT", "5175"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DBPath:           getEnv("DB_PATH", "./data/app.db"),
		JWTSecret:        getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTTTL:           time.Duration(getEnvInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:       getEnv("COOKIE_NAME", "diferencias_token"),
		ClientOrigin:     getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Env:              env,
		DevMode:          env != "production",
		LevelsDir:        getEnv("LEVELS_DIR", ""),
		DailySalt:        getEnv("DAILY_SALT", "local_dev_salt"),
		SaveDebounce:     time.Duration(getEnvInt("SAVE_DEBOUNCE_MS", 200)) * time.Millisecond,
		DefaultTimeLimit: getEnvInt("DEFAULT_TIME_LIMIT", 120),
		RoundSweep:       time.Duration(getEnvInt("ROUND_SWEEP_SECONDS", 60)) * time.Second,
		RoundFinishedTTL: time.Duration(getEnvInt("ROUND_FINISHED_TTL_MIN", 10)) * time.Minute,
		RoundIdleTTL:     time.Duration(getEnvInt("ROUND_IDLE_TTL_MIN", 60)) * time.Minute,
	}
}

// Production reports whether cookies should be Secure.
func (c Config) Production() bool { return c.Env == "production" }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses k as an int, falling back to def on absence or error.
func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("config: not an integer, using default")
		return def
	}
	return n
}
