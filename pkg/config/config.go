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
	Generator GeneratorConfig
	Activity  ActivityConfig
	Views     ViewsConfig
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

// GeneratorConfig drives the timetable construction engine.
type GeneratorConfig struct {
	Days             []string
	StartTime        string
	EndTime          string
	PeriodDuration   int
	Mode             string
	BranchingLimit   int
	PerDaySubjectCap int
	Seed             int64
}

// ActivityConfig governs activity backfill and student plan diversification.
type ActivityConfig struct {
	Catalog        []string
	Strategy       string
	DailyNoRepeat  bool
	WeeklyNoRepeat bool
	WeeklyVariety  bool
	OracleURL      string
	OracleTimeout  time.Duration
}

// ViewsConfig tunes the read-side cache for timetable projections.
type ViewsConfig struct {
	CacheTTL time.Duration
}

// ExportConfig toggles file export endpoints.
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Generator = GeneratorConfig{
		Days:             splitAndTrim(v.GetString("TIMETABLE_DAYS")),
		StartTime:        v.GetString("TIMETABLE_START_TIME"),
		EndTime:          v.GetString("TIMETABLE_END_TIME"),
		PeriodDuration:   v.GetInt("TIMETABLE_PERIOD_MINUTES"),
		Mode:             v.GetString("TIMETABLE_MODE"),
		BranchingLimit:   v.GetInt("TIMETABLE_BRANCHING_LIMIT"),
		PerDaySubjectCap: v.GetInt("TIMETABLE_PER_DAY_SUBJECT_CAP"),
		Seed:             v.GetInt64("TIMETABLE_SEED"),
	}

	cfg.Activity = ActivityConfig{
		Catalog:        splitAndTrim(v.GetString("ACTIVITY_CATALOG")),
		Strategy:       v.GetString("ACTIVITY_STRATEGY"),
		DailyNoRepeat:  v.GetBool("ACTIVITY_DAILY_NO_REPEAT"),
		WeeklyNoRepeat: v.GetBool("ACTIVITY_WEEKLY_NO_REPEAT"),
		WeeklyVariety:  v.GetBool("ACTIVITY_WEEKLY_VARIETY"),
		OracleURL:      v.GetString("ACTIVITY_ORACLE_URL"),
		OracleTimeout:  parseDuration(v.GetString("ACTIVITY_ORACLE_TIMEOUT"), 3*time.Second),
	}

	cfg.Views = ViewsConfig{
		CacheTTL: parseDuration(v.GetString("VIEWS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORT"),
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
	v.SetDefault("DB_NAME", "campusgrid_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_DAYS", "Monday,Tuesday,Wednesday,Thursday,Friday")
	v.SetDefault("TIMETABLE_START_TIME", "08:00")
	v.SetDefault("TIMETABLE_END_TIME", "16:00")
	v.SetDefault("TIMETABLE_PERIOD_MINUTES", 60)
	v.SetDefault("TIMETABLE_MODE", "STRICT_WEEKLY_CAPS")
	v.SetDefault("TIMETABLE_BRANCHING_LIMIT", 5)
	v.SetDefault("TIMETABLE_PER_DAY_SUBJECT_CAP", 1)
	v.SetDefault("TIMETABLE_SEED", 0)

	v.SetDefault("ACTIVITY_CATALOG", "Reading,Clubs,Sports,Library,Mentorship")
	v.SetDefault("ACTIVITY_STRATEGY", "balanced")
	v.SetDefault("ACTIVITY_DAILY_NO_REPEAT", true)
	v.SetDefault("ACTIVITY_WEEKLY_NO_REPEAT", false)
	v.SetDefault("ACTIVITY_WEEKLY_VARIETY", false)
	v.SetDefault("ACTIVITY_ORACLE_URL", "")
	v.SetDefault("ACTIVITY_ORACLE_TIMEOUT", "3s")

	v.SetDefault("VIEWS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_EXPORT", true)
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
