package config

import (
	"errors"
	"fmt"
	"os"

	"keramika/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Studio     StudioConfig     `yaml:"studio"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"` // read, book, admin
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// StudioConfig carries the business parameters of the studio: independent
// per-technique capacity pools, day-dependent operating hours and the
// rolling horizon for session generation.
type StudioConfig struct {
	HorizonDays int `yaml:"horizon_days"`

	// Capacities maps technique name to its maximum headcount per slot.
	Capacities map[string]int `yaml:"capacities"`

	// Hours maps weekday (0 = Sunday .. 6 = Saturday) to opening hours.
	// A missing weekday means the studio is closed that day.
	Hours map[int]DayHours `yaml:"hours"`

	// IntroExceptions are the fixed introductory-class slots offered to
	// small potter's-wheel groups outside the weekly rules.
	IntroExceptions []IntroException `yaml:"intro_exceptions"`
}

type DayHours struct {
	Open  string `yaml:"open"`  // "HH:MM"
	Close string `yaml:"close"` // "HH:MM"
}

type IntroException struct {
	DayOfWeek int    `yaml:"day_of_week"`
	Time      string `yaml:"time"`
}

type NotifyConfig struct {
	TelegramBotToken string  `yaml:"telegram_bot_token"`
	ManagerChatIDs   []int64 `yaml:"manager_chat_ids"`
	MailFrom         string  `yaml:"mail_from"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	for technique, capacity := range c.Studio.Capacities {
		if !models.ValidTechnique(technique) {
			return fmt.Errorf("unknown technique in capacities: %s", technique)
		}
		if capacity <= 0 {
			return fmt.Errorf("capacity for %s must be positive", technique)
		}
	}

	for day, hours := range c.Studio.Hours {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid weekday in hours: %d", day)
		}
		if hours.Open == "" || hours.Close == "" {
			return fmt.Errorf("weekday %d needs both open and close times", day)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Studio.HorizonDays == 0 {
		c.Studio.HorizonDays = models.DefaultHorizonDays
	}
	if c.Studio.Capacities == nil {
		c.Studio.Capacities = map[string]int{
			models.TechniquePottersWheel: 6,
			models.TechniqueHandModeling: 12,
			models.TechniquePainting:     10,
		}
	}
	if c.Studio.Hours == nil {
		c.Studio.Hours = map[int]DayHours{
			0: {Open: "11:00", Close: "18:00"},
			1: {Open: "10:00", Close: "21:00"},
			2: {Open: "10:00", Close: "21:00"},
			3: {Open: "10:00", Close: "21:00"},
			4: {Open: "10:00", Close: "21:00"},
			5: {Open: "10:00", Close: "22:00"},
			6: {Open: "10:00", Close: "22:00"},
		}
	}
	if len(c.Studio.IntroExceptions) == 0 {
		c.Studio.IntroExceptions = []IntroException{
			{DayOfWeek: 2, Time: "19:00"},
			{DayOfWeek: 3, Time: "11:00"},
		}
	}
}
