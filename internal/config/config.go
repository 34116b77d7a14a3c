// Package config layers flags, environment, an optional YAML file and
// defaults into one Config shared by every binary.
package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrMissingAPIKey = errors.New("missing LLM API key (set GROQ_API_KEY, OPENAI_API_KEY or KRISHI_LLM_API_KEY)")

type Config struct {
	Log     string        `mapstructure:"log"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	LLM     LLMConfig     `mapstructure:"llm"`
	STT     STTConfig     `mapstructure:"stt"`
	TTS     TTSConfig     `mapstructure:"tts"`
	DataGov DataGovConfig `mapstructure:"datagov"`
	Schemes SchemesConfig `mapstructure:"schemes"`
	Disease DiseaseConfig `mapstructure:"disease"`
	Agent   AgentConfig   `mapstructure:"agent"`
	IPC     IPCConfig     `mapstructure:"ipc"`
	Bus     BusConfig     `mapstructure:"bus"`
}

type ProxyConfig struct {
	Addr    string        `mapstructure:"addr"` // SOCKS5 host:port, empty = direct
	Timeout time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

type STTConfig struct {
	Engine    string `mapstructure:"engine"` // remote | local
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	ModelPath string `mapstructure:"model_path"` // whisper.cpp ggml model for the local engine
	Language  string `mapstructure:"language"`
	Prompt    string `mapstructure:"prompt"`
}

type TTSConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	Voice        string  `mapstructure:"voice"`
	Instructions string  `mapstructure:"instructions"`
	Speed        float64 `mapstructure:"speed"`
	Chime        string  `mapstructure:"chime"`
}

type DataGovConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
	Limit  int    `mapstructure:"limit"`
}

type SchemesConfig struct {
	Catalog    string        `mapstructure:"catalog"`
	ListingURL string        `mapstructure:"listing_url"`
	Delay      time.Duration `mapstructure:"delay"`
}

type DiseaseConfig struct {
	Endpoint string `mapstructure:"endpoint"` // empty disables the disease tool
}

type AgentConfig struct {
	SystemPrompt     string        `mapstructure:"system_prompt"`
	MaxParallelTools int           `mapstructure:"max_parallel_tools"`
	TurnTimeout      time.Duration `mapstructure:"turn_timeout"`
}

type IPCConfig struct {
	Socket string `mapstructure:"socket"`
}

type BusConfig struct {
	URL       string        `mapstructure:"url"`
	Name      string        `mapstructure:"name"`
	Reconnect time.Duration `mapstructure:"reconnect"`
}

var defaults = map[string]any{
	"log":                      "info",
	"proxy.addr":               "",
	"proxy.timeout":            2 * time.Minute,
	"llm.base_url":             "https://api.groq.com/openai/v1",
	"llm.api_key":              "",
	"llm.model":                "openai/gpt-oss-120b",
	"llm.temperature":          0.5,
	"llm.max_retries":          2,
	"stt.engine":               "remote",
	"stt.base_url":             "",
	"stt.api_key":              "",
	"stt.model":                "whisper-large-v3",
	"stt.model_path":           "models/ggml-medium.bin",
	"stt.language":             "",
	"stt.prompt":               "",
	"tts.enabled":              true,
	"tts.base_url":             "https://api.openai.com/v1",
	"tts.api_key":              "",
	"tts.model":                "gpt-4o-mini-tts",
	"tts.voice":                "alloy",
	"tts.instructions":         "Speak in %s with a warm, clear and unhurried voice, like a helpful village extension officer.",
	"tts.speed":                0.0,
	"tts.chime":                "",
	"datagov.api_key":          "",
	"datagov.url":              "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070",
	"datagov.limit":            1000,
	"schemes.catalog":          "scheme.json",
	"schemes.listing_url":      "https://www.myscheme.gov.in/search/category/Agriculture,Rural%20%26%20Environment",
	"schemes.delay":            2 * time.Second,
	"disease.endpoint":         "",
	"agent.system_prompt":      "",
	"agent.max_parallel_tools": 4,
	"agent.turn_timeout":       90 * time.Second,
	"ipc.socket":               "/tmp/krishi.sock",
	"bus.url":                  "ws://localhost:8092/ws",
	"bus.name":                 "krishi",
	"bus.reconnect":            3 * time.Second,
}

// provider keys are honoured as-is, after the KRISHI_ prefixed names
var envAliases = map[string][]string{
	"llm.api_key":     {"KRISHI_LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"},
	"stt.api_key":     {"KRISHI_STT_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"},
	"tts.api_key":     {"KRISHI_TTS_API_KEY", "OPENAI_API_KEY"},
	"datagov.api_key": {"KRISHI_DATAGOV_API_KEY", "DATA_GOV_API"},
}

// flag name -> config key, for flags that override config values
var flagKeys = map[string]string{
	"log":   "log",
	"proxy": "proxy.addr",
}

// RegisterFlags adds the flags every binary shares.
func RegisterFlags(fs *cli.FlagSet) {
	fs.StringP("env", "e", ".env", "Env file path")
	fs.StringP("config", "c", "", "Config file path (YAML)")
	fs.StringP("log", "l", "info", "Log level")
	fs.StringP("proxy", "p", "", "SOCKS5 proxy address")
}

// Load reads the .env file and config file named by the flags in fs, then
// resolves every setting. fs must have been parsed.
func Load(fs *cli.FlagSet) (Config, error) {
	if envFile, _ := fs.GetString("env"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetEnvPrefix("krishi")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, err
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		log.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.fill()
	return cfg, nil
}

// fill derives settings that default to other settings.
func (c *Config) fill() {
	if c.STT.BaseURL == "" {
		c.STT.BaseURL = c.LLM.BaseURL
	}
	if c.STT.APIKey == "" {
		c.STT.APIKey = c.LLM.APIKey
	}
	// A key is only shared with the host it was issued for.
	if c.TTS.APIKey == "" && sameEndpoint(c.TTS.BaseURL, c.LLM.BaseURL) {
		c.TTS.APIKey = c.LLM.APIKey
	}
}

func sameEndpoint(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

// Validate reports settings a turn cannot run without.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.STT.Engine {
	case "remote", "local":
	default:
		return fmt.Errorf("unknown stt engine %q (want remote or local)", c.STT.Engine)
	}
	if c.Agent.MaxParallelTools < 1 {
		return fmt.Errorf("agent.max_parallel_tools must be at least 1, got %d", c.Agent.MaxParallelTools)
	}
	return nil
}

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// LogLevel maps the configured name to a slog level, defaulting to info.
func (c Config) LogLevel() log.Level {
	if l, ok := logLevelMap[strings.ToLower(c.Log)]; ok {
		return l
	}
	return log.LevelInfo
}
