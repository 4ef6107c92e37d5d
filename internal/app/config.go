package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagelift/pagelift-backend/internal/platform/envutil"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type Config struct {
	ListenAddr      string
	ServiceName     string
	OTLPEndpoint    string
	AllowedOrigins  []string
	DefaultLanguage string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	JWTSecretKey string
	TokenTTL     time.Duration

	SnapshotCompressThreshold int
	RetentionKeep             int
}

// fileConfig is the optional YAML overlay. Environment variables win over
// file values.
type fileConfig struct {
	ListenAddr      string   `yaml:"listen_addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	DefaultLanguage string   `yaml:"default_language"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	RetentionKeep   int      `yaml:"retention_keep"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("config file loaded", "path", path)
	}

	listenAddr := envutil.GetEnv("LISTEN_ADDR", orDefault(fc.ListenAddr, ":8080"), log)
	defaultLanguage := envutil.GetEnv("DEFAULT_LANGUAGE", orDefault(fc.DefaultLanguage, "en"), log)

	origins := fc.AllowedOrigins
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	cacheTTL := fc.CacheTTLSeconds
	if cacheTTL <= 0 {
		cacheTTL = 3600
	}
	cacheTTL = envutil.GetEnvAsInt("RENDER_CACHE_TTL", cacheTTL, log)

	retentionKeep := fc.RetentionKeep
	if retentionKeep <= 0 {
		retentionKeep = 20
	}
	retentionKeep = envutil.GetEnvAsInt("VERSION_RETENTION_KEEP", retentionKeep, log)

	return Config{
		ListenAddr:      listenAddr,
		ServiceName:     envutil.GetEnv("SERVICE_NAME", "pagelift-backend", log),
		OTLPEndpoint:    envutil.GetEnv("OTLP_ENDPOINT", "", log),
		AllowedOrigins:  origins,
		DefaultLanguage: defaultLanguage,

		DBDriver: envutil.GetEnv("DB_DRIVER", "postgres", log),
		DBDSN:    envutil.GetEnv("DB_DSN", "", log),

		RedisAddr:     envutil.GetEnv("REDIS_ADDR", "", log),
		RedisPassword: envutil.GetEnv("REDIS_PASSWORD", "", log),
		CacheTTL:      time.Duration(cacheTTL) * time.Second,

		JWTSecretKey: envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		TokenTTL:     time.Duration(envutil.GetEnvAsInt("TOKEN_TTL", 43200, log)) * time.Second,

		SnapshotCompressThreshold: envutil.GetEnvAsInt("SNAPSHOT_COMPRESS_THRESHOLD", 0, log),
		RetentionKeep:             retentionKeep,
	}, nil
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
