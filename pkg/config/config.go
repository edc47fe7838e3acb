package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Institution InstitutionConfig
	Solver      SolverConfig
	Breaks      BreaksConfig
	Generation  GenerationConfig
	QueryCache  QueryCacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// InstitutionConfig feeds the interchange document header.
type InstitutionConfig struct {
	University string
	Faculty    string
}

// SolverConfig locates the external timetabling solver and its staging layout.
// WorkDir is the base under which each job gets an isolated subdirectory; the
// solver writes its subgroup timetable at OutputRelPath relative to the run
// directory.
type SolverConfig struct {
	Binary         string
	WorkDir        string
	OutputRelPath  string
	Timeout        time.Duration
	StagingRetries int
}

// BreaksConfig parameterises the static break-time constraint injected into
// every generated document.
type BreaksConfig struct {
	Day   string
	Hours []string
}

// GenerationConfig tunes the background generation queue.
type GenerationConfig struct {
	Workers    int
	BufferSize int
}

// QueryCacheConfig governs cached schedule payload lookups.
type QueryCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Institution = InstitutionConfig{
		University: v.GetString("INSTITUTION_NAME"),
		Faculty:    v.GetString("INSTITUTION_FACULTY"),
	}

	cfg.Solver = SolverConfig{
		Binary:         v.GetString("SOLVER_BINARY"),
		WorkDir:        v.GetString("SOLVER_WORK_DIR"),
		OutputRelPath:  v.GetString("SOLVER_OUTPUT_PATH"),
		Timeout:        parseDuration(v.GetString("SOLVER_TIMEOUT"), 10*time.Minute),
		StagingRetries: v.GetInt("SOLVER_STAGING_RETRIES"),
	}

	cfg.Breaks = BreaksConfig{
		Day:   v.GetString("BREAK_DAY"),
		Hours: splitAndTrim(v.GetString("BREAK_HOURS")),
	}

	cfg.Generation = GenerationConfig{
		Workers:    v.GetInt("GENERATION_WORKERS"),
		BufferSize: v.GetInt("GENERATION_BUFFER"),
	}

	cfg.QueryCache = QueryCacheConfig{
		Enabled: v.GetBool("ENABLE_QUERY_CACHE"),
		TTL:     parseDuration(v.GetString("QUERY_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("INSTITUTION_NAME", "Escuela Politécnica Nacional")
	v.SetDefault("INSTITUTION_FACULTY", "Facultad de Ingeniería de Sistemas")

	v.SetDefault("SOLVER_BINARY", "fet-cl")
	v.SetDefault("SOLVER_WORK_DIR", "./fet")
	v.SetDefault("SOLVER_OUTPUT_PATH", "timetables/input/input_subgroups.xml")
	v.SetDefault("SOLVER_TIMEOUT", "10m")
	v.SetDefault("SOLVER_STAGING_RETRIES", 3)

	v.SetDefault("BREAK_DAY", "Jueves")
	v.SetDefault("BREAK_HOURS", "11:00-12:00,12:00-13:00")

	v.SetDefault("GENERATION_WORKERS", 1)
	v.SetDefault("GENERATION_BUFFER", 4)

	v.SetDefault("ENABLE_QUERY_CACHE", false)
	v.SetDefault("QUERY_CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
