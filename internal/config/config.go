package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/ClearHead/internal/behavior"
	"github.com/MikeSquared-Agency/ClearHead/internal/estimate"
	"github.com/MikeSquared-Agency/ClearHead/internal/scoring"
	"github.com/MikeSquared-Agency/ClearHead/internal/task"
)

// Model artifact backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Model    ModelConfig         `yaml:"model"`
	Database DatabaseConfig      `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Hermes   HermesConfig        `yaml:"hermes"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Behavior BehaviorConfig      `yaml:"behavior"`
	Keywords KeywordsConfig      `yaml:"keywords"`
	Scoring  scoring.Adjustments `yaml:"scoring"`
	Logging  LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	MetricsPort    int      `yaml:"metrics_port"`
	AdminToken     string   `yaml:"admin_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ModelConfig struct {
	Backend string `yaml:"backend"`
	// Path is the file path for the file backend and the key otherwise.
	Path    string `yaml:"path"`
	Samples int    `yaml:"samples"`
	Seed    uint64 `yaml:"seed"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type HourWeightsConfig struct {
	Base      float64 `yaml:"base"`
	Peak      float64 `yaml:"peak"`
	LowEnergy float64 `yaml:"low_energy"`
}

type EnergyBandConfig struct {
	Hours []int `yaml:"hours"`
	Level int   `yaml:"level"`
}

type BehaviorConfig struct {
	PeakHours           []int              `yaml:"peak_hours"`
	LowEnergyHours      []int              `yaml:"low_energy_hours"`
	PreferredCategories []string           `yaml:"preferred_categories"`
	AvoidedCategories   []string           `yaml:"avoided_categories"`
	OptimalTaskLength   float64            `yaml:"optimal_task_length"`
	ComplexityThreshold float64            `yaml:"complexity_threshold"`
	FirstHour           int                `yaml:"first_hour"`
	LastHour            int                `yaml:"last_hour"`
	HourWeights         HourWeightsConfig  `yaml:"hour_weights"`
	EnergyBands         []EnergyBandConfig `yaml:"energy_bands"`
	DefaultEnergy       int                `yaml:"default_energy"`
}

type KeywordsConfig struct {
	Complex []string `yaml:"complex"`
	Simple  []string `yaml:"simple"`
	Routine []string `yaml:"routine"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	kw := estimate.DefaultKeywords()
	cfg := &Config{
		Server: ServerConfig{
			Port:           8700,
			MetricsPort:    8701,
			AllowedOrigins: []string{"*"},
		},
		Model: ModelConfig{
			Backend: BackendFile,
			Path:    "clearhead_model.json",
			Samples: 2000,
			Seed:    42,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Metrics: MetricsConfig{
			Job: "clearhead_batch",
		},
		Behavior: behaviorFromProfile(behavior.DefaultProfile()),
		Keywords: KeywordsConfig{
			Complex: kw.Complex,
			Simple:  kw.Simple,
			Routine: kw.Routine,
		},
		Scoring: scoring.DefaultAdjustments(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLEARHEAD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CLEARHEAD_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("CLEARHEAD_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("CLEARHEAD_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("CLEARHEAD_MODEL_BACKEND"); v != "" {
		cfg.Model.Backend = v
	}
	if v := os.Getenv("CLEARHEAD_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("CLEARHEAD_MODEL_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Model.Samples = n
		}
	}
	if v := os.Getenv("CLEARHEAD_MODEL_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Model.Seed = n
		}
	}
	if v := os.Getenv("CLEARHEAD_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CLEARHEAD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CLEARHEAD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CLEARHEAD_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("CLEARHEAD_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("CLEARHEAD_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("CLEARHEAD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLEARHEAD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the sections that are not validated on conversion.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendFile, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}
	if c.Model.Backend == BackendPostgres && c.Database.URL == "" {
		return errors.New("model backend postgres requires database.url")
	}
	if c.Model.Path == "" {
		return errors.New("model.path must be set")
	}
	if c.Model.Samples < 2 {
		return fmt.Errorf("model.samples must be at least 2, got %d", c.Model.Samples)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if _, err := c.Profile(); err != nil {
		return err
	}
	return nil
}

// Profile converts the behavior section into a validated profile.
// Category names match case-insensitively and must belong to the fixed
// enumeration.
func (c *Config) Profile() (behavior.Profile, error) {
	b := c.Behavior
	preferred, err := parseCategories(b.PreferredCategories)
	if err != nil {
		return behavior.Profile{}, fmt.Errorf("behavior.preferred_categories: %w", err)
	}
	avoided, err := parseCategories(b.AvoidedCategories)
	if err != nil {
		return behavior.Profile{}, fmt.Errorf("behavior.avoided_categories: %w", err)
	}
	bands := make([]behavior.EnergyBand, len(b.EnergyBands))
	for i, eb := range b.EnergyBands {
		bands[i] = behavior.EnergyBand{Hours: eb.Hours, Level: eb.Level}
	}

	p := behavior.Profile{
		PeakHours:           b.PeakHours,
		LowEnergyHours:      b.LowEnergyHours,
		PreferredCategories: preferred,
		AvoidedCategories:   avoided,
		OptimalTaskLength:   b.OptimalTaskLength,
		ComplexityThreshold: b.ComplexityThreshold,
		FirstHour:           b.FirstHour,
		LastHour:            b.LastHour,
		HourWeights: behavior.HourWeights{
			Base:      b.HourWeights.Base,
			Peak:      b.HourWeights.Peak,
			LowEnergy: b.HourWeights.LowEnergy,
		},
		EnergyBands:   bands,
		DefaultEnergy: b.DefaultEnergy,
	}
	if err := p.Validate(); err != nil {
		return behavior.Profile{}, fmt.Errorf("behavior: %w", err)
	}
	return p, nil
}

func (c *Config) EstimateKeywords() estimate.Keywords {
	return estimate.Keywords{
		Complex: lowerAll(c.Keywords.Complex),
		Simple:  lowerAll(c.Keywords.Simple),
		Routine: lowerAll(c.Keywords.Routine),
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func behaviorFromProfile(p behavior.Profile) BehaviorConfig {
	bands := make([]EnergyBandConfig, len(p.EnergyBands))
	for i, b := range p.EnergyBands {
		bands[i] = EnergyBandConfig{Hours: b.Hours, Level: b.Level}
	}
	return BehaviorConfig{
		PeakHours:           p.PeakHours,
		LowEnergyHours:      p.LowEnergyHours,
		PreferredCategories: categoryNames(p.PreferredCategories),
		AvoidedCategories:   categoryNames(p.AvoidedCategories),
		OptimalTaskLength:   p.OptimalTaskLength,
		ComplexityThreshold: p.ComplexityThreshold,
		FirstHour:           p.FirstHour,
		LastHour:            p.LastHour,
		HourWeights: HourWeightsConfig{
			Base:      p.HourWeights.Base,
			Peak:      p.HourWeights.Peak,
			LowEnergy: p.HourWeights.LowEnergy,
		},
		EnergyBands:   bands,
		DefaultEnergy: p.DefaultEnergy,
	}
}

func parseCategories(names []string) ([]task.Category, error) {
	out := make([]task.Category, 0, len(names))
	for _, n := range names {
		c := task.ParseCategory(n)
		if !task.KnownCategory(c) {
			return nil, fmt.Errorf("unknown category %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

func categoryNames(cs []task.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
