package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		if log != nil {
			log.Debug("env var unset, using fallback", "key", key, "fallback", fallback)
		}
		return fallback
	}
	return val
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		if log != nil {
			log.Warn("env var is not an int, using fallback", "key", key, "value", val)
		}
		return fallback
	}
	return n
}

func GetEnvAsBool(key string, fallback bool, log *logger.Logger) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		if log != nil {
			log.Warn("env var is not a bool, using fallback", "key", key, "value", val)
		}
		return fallback
	}
	return b
}
