package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrConfigFileNotFound = errors.New("config file not found")

// searchPaths are tried in order when no explicit file is given.
var searchPaths = []string{
	"parla.toml",
	"config/parla.toml",
	"/etc/parla/parla.toml",
}

type Config struct {
	Server    Server    `koanf:"server"`
	Translate Translate `koanf:"translate"`
	Redis     Redis     `koanf:"redis"`
	Backend   Backend   `koanf:"backend"`
	Engine    Engine    `koanf:"engine"`
	Debug     Debug     `koanf:"debug"`

	// GeneratedSecret is set when no JWT secret was configured and a
	// random one is in use.
	GeneratedSecret bool `koanf:"-"`
	// Source is the config file that was loaded, if any.
	Source string `koanf:"-"`
}

type Server struct {
	Port            int      `koanf:"port"`
	DataPath        string   `koanf:"data_path"`
	DBPath          string   `koanf:"db_path"`
	JWTSecret       string   `koanf:"jwt_secret"`
	AdminUsername   string   `koanf:"admin_username"`
	AdminPassword   string   `koanf:"admin_password"`
	CORSOrigins     []string `koanf:"cors_origins"`
	RateLimit       int      `koanf:"rate_limit"`
	RateWindow      int      `koanf:"rate_window"` // seconds
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
	ShutdownTimeout int      `koanf:"shutdown_timeout"` // seconds
}

// Translate selects and configures the translation engines. Engines
// without a key are not registered.
type Translate struct {
	Engine      string `koanf:"engine"`
	DeepLKey    string `koanf:"deepl_key"`
	OpenAIKey   string `koanf:"openai_key"`
	OpenAIModel string `koanf:"openai_model"`
	GeminiKey   string `koanf:"gemini_key"`
	GeminiModel string `koanf:"gemini_model"`
}

// Redis configures the translation cache. An empty Addr disables it.
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	TTL      int    `koanf:"ttl"` // hours
}

// Backend is where the caption engine sends translate and save requests.
type Backend struct {
	URL      string `koanf:"url"`
	Token    string `koanf:"token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Timeout  int    `koanf:"timeout"` // seconds
}

// Engine holds the caption engine's timings, in milliseconds.
type Engine struct {
	PollInterval int `koanf:"poll_interval"`
	MaxAttempts  int `koanf:"max_attempts"`
	ResumeDelay  int `koanf:"resume_delay"`
	SettleDelay  int `koanf:"settle_delay"`
}

type Debug struct {
	LogLevel string `koanf:"log_level"`
}

func defaults() Config {
	return Config{
		Server: Server{
			Port:            8080,
			DataPath:        "/data",
			AdminUsername:   "admin",
			AdminPassword:   "admin",
			CORSOrigins:     []string{"*"},
			RateLimit:       120,
			RateWindow:      60,
			MaxBodyBytes:    64 << 10,
			ShutdownTimeout: 10,
		},
		Translate: Translate{
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.0-flash",
		},
		Redis: Redis{TTL: 24},
		Backend: Backend{
			URL:     "http://localhost:8080/api",
			Timeout: 30,
		},
		Engine: Engine{
			PollInterval: 500,
			MaxAttempts:  20,
			ResumeDelay:  300,
			SettleDelay:  1000,
		},
		Debug: Debug{LogLevel: "info"},
	}
}

// Load reads .env, then the TOML file at path (or the first file found in
// the search paths when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	k := koanf.New(".")

	candidates := searchPaths
	if path != "" {
		candidates = []string{path}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		cfg.Source = p
		break
	}
	if path != "" && cfg.Source == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyEnv(&cfg)

	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = cfg.Server.DataPath + "/parla.db"
	}

	// JWT secret: require explicit setting or generate random
	if cfg.Server.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate JWT secret: %w", err)
		}
		cfg.Server.JWTSecret = hex.EncodeToString(b)
		cfg.GeneratedSecret = true
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Server.Port = v
	}
	cfg.Server.DataPath = getEnv("DATA_PATH", cfg.Server.DataPath)
	cfg.Server.DBPath = getEnv("DB_PATH", cfg.Server.DBPath)
	cfg.Server.JWTSecret = getEnv("JWT_SECRET", cfg.Server.JWTSecret)
	cfg.Server.AdminUsername = getEnv("ADMIN_USERNAME", cfg.Server.AdminUsername)
	cfg.Server.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.Server.AdminPassword)

	// CORS origins: comma-separated list or "*"
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		cfg.Server.CORSOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}

	cfg.Translate.Engine = getEnv("TRANSLATE_ENGINE", cfg.Translate.Engine)
	cfg.Translate.DeepLKey = getEnv("DEEPL_API_KEY", cfg.Translate.DeepLKey)
	cfg.Translate.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.Translate.OpenAIKey)
	cfg.Translate.GeminiKey = getEnv("GEMINI_API_KEY", cfg.Translate.GeminiKey)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Backend.URL = getEnv("PARLA_BACKEND_URL", cfg.Backend.URL)
	cfg.Backend.Token = getEnv("PARLA_TOKEN", cfg.Backend.Token)

	cfg.Debug.LogLevel = getEnv("LOG_LEVEL", cfg.Debug.LogLevel)
}

func (s Server) RateWindowDuration() time.Duration {
	return time.Duration(s.RateWindow) * time.Second
}

func (s Server) ShutdownDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func (r Redis) TTLDuration() time.Duration { return time.Duration(r.TTL) * time.Hour }

func (b Backend) TimeoutDuration() time.Duration { return time.Duration(b.Timeout) * time.Second }

func (e Engine) PollIntervalDuration() time.Duration {
	return time.Duration(e.PollInterval) * time.Millisecond
}

func (e Engine) ResumeDelayDuration() time.Duration {
	return time.Duration(e.ResumeDelay) * time.Millisecond
}

func (e Engine) SettleDelayDuration() time.Duration {
	return time.Duration(e.SettleDelay) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
