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

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Solver    SolverConfig
	Allocator AllocatorConfig
	Export    ExportConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig tunes the two-phase timetable search. The soft-constraint
// weights are deliberately configuration, not code: the relative importance of
// load balance vs. teacher time preference vs. room travel is a policy choice.
type SolverConfig struct {
	RepairIterations    int
	MaxReassign         int
	Parallelism         int
	SolveTimeout        time.Duration
	LoadBalanceWeight   float64
	TimePrefWeight      float64
	RoomChangeWeight    float64
	RoomChangeThreshold int
}

// AllocatorConfig governs the enrollment event queue.
type AllocatorConfig struct {
	EventWorkers int
	EventBuffer  int
	EventRetries int
}

// ExportConfig gates schedule/roster export endpoints.
type ExportConfig struct {
	Enabled bool
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

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		RepairIterations:    v.GetInt("SOLVER_REPAIR_ITERATIONS"),
		MaxReassign:         v.GetInt("SOLVER_MAX_REASSIGN"),
		Parallelism:         v.GetInt("SOLVER_PARALLELISM"),
		SolveTimeout:        parseDuration(v.GetString("SOLVER_TIMEOUT"), 30*time.Second),
		LoadBalanceWeight:   v.GetFloat64("SOLVER_LOAD_BALANCE_WEIGHT"),
		TimePrefWeight:      v.GetFloat64("SOLVER_TIME_PREF_WEIGHT"),
		RoomChangeWeight:    v.GetFloat64("SOLVER_ROOM_CHANGE_WEIGHT"),
		RoomChangeThreshold: v.GetInt("SOLVER_ROOM_CHANGE_THRESHOLD"),
	}

	cfg.Allocator = AllocatorConfig{
		EventWorkers: v.GetInt("ALLOCATOR_EVENT_WORKERS"),
		EventBuffer:  v.GetInt("ALLOCATOR_EVENT_BUFFER"),
		EventRetries: v.GetInt("ALLOCATOR_EVENT_RETRIES"),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
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
	v.SetDefault("DB_NAME", "heronix_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	// Empty list means allow any origin.
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_REPAIR_ITERATIONS", 400)
	v.SetDefault("SOLVER_MAX_REASSIGN", 3)
	v.SetDefault("SOLVER_PARALLELISM", 4)
	v.SetDefault("SOLVER_TIMEOUT", "30s")
	v.SetDefault("SOLVER_LOAD_BALANCE_WEIGHT", 1.0)
	v.SetDefault("SOLVER_TIME_PREF_WEIGHT", 2.0)
	v.SetDefault("SOLVER_ROOM_CHANGE_WEIGHT", 0.5)
	v.SetDefault("SOLVER_ROOM_CHANGE_THRESHOLD", 2)

	v.SetDefault("ALLOCATOR_EVENT_WORKERS", 2)
	v.SetDefault("ALLOCATOR_EVENT_BUFFER", 64)
	v.SetDefault("ALLOCATOR_EVENT_RETRIES", 3)

	v.SetDefault("ENABLE_EXPORTS", false)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
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
