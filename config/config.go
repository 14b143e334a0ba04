package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/mhsanaei/xui-gateway/domain"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	envConfigFile = "XUI_GATEWAY_CONFIG"
	envDebug      = "XUI_GATEWAY_DEBUG"
	envLogLevel   = "XUI_GATEWAY_LOG_LEVEL"
	envLogFolder  = "XUI_GATEWAY_LOG_FOLDER"
	envHost       = "XUI_GATEWAY_HOST"
	envPort       = "XUI_GATEWAY_PORT"
	envCertFile   = "XUI_GATEWAY_CERT_FILE"
	envKeyFile    = "XUI_GATEWAY_KEY_FILE"
	envAPIKey     = "XUI_GATEWAY_API_KEY"
	envMetrics    = "XUI_GATEWAY_METRICS"
	envSweep      = "XUI_GATEWAY_ORPHAN_SWEEP"
	envPrune      = "XUI_GATEWAY_ORPHAN_PRUNE"

	envBaseURL   = "XUI_BASE_URL"
	envUsername  = "XUI_USERNAME"
	envPassword  = "XUI_PASSWORD"
	envTimeout   = "XUI_TIMEOUT"
	envVerifySSL = "XUI_VERIFY_SSL"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func isDebug() bool {
	return os.Getenv(envDebug) == "true"
}

// ServerConfig describes the REST listener.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	APIKey   string `toml:"api_key"`
	Metrics  bool   `toml:"metrics"`
}

// Addr returns host:port for net.Listen.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PanelConfig describes how to reach the 3x-ui panel.
type PanelConfig struct {
	BaseURL   string `toml:"base_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Timeout   int    `toml:"timeout"`
	VerifySSL bool   `toml:"verify_ssl"`
}

// RequestTimeout is the per-request timeout applied to every panel call.
func (c PanelConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type JobConfig struct {
	OrphanSweep string `toml:"orphan_sweep"`
	OrphanPrune bool   `toml:"orphan_prune"`
}

type Config struct {
	Debug     bool           `toml:"debug"`
	LogLevel  LogLevel       `toml:"log_level"`
	LogFolder string         `toml:"log_folder"`
	Server    ServerConfig   `toml:"server"`
	Panel     PanelConfig    `toml:"panel"`
	Database  DatabaseConfig `toml:"database"`
	Jobs      JobConfig      `toml:"jobs"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:  Info,
		LogFolder: "/var/log",
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Metrics: true,
		},
		Panel: PanelConfig{
			Timeout:   30,
			VerifySSL: true,
		},
		Database: *GetDefaultDatabaseConfig(),
	}
}

// Load builds the configuration from defaults, the optional TOML file,
// a .env file in the working directory and the process environment.
// Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to read .env")
	}
	cfg := Default()
	if path := os.Getenv(envConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if cfg.Debug {
		cfg.LogLevel = Debug
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to read config file %s", path)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return domain.Wrap(domain.ErrInvalidConfiguration, err, "failed to parse config file %s", path)
	}
	return nil
}

func (c *Config) loadEnv() error {
	var err error
	setBool(envDebug, &c.Debug, &err)
	if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
		c.LogLevel = LogLevel(strings.ToLower(v))
	}
	setString(envLogFolder, &c.LogFolder)

	setString(envHost, &c.Server.Host)
	setInt(envPort, &c.Server.Port, &err)
	setString(envCertFile, &c.Server.CertFile)
	setString(envKeyFile, &c.Server.KeyFile)
	setString(envAPIKey, &c.Server.APIKey)
	setBool(envMetrics, &c.Server.Metrics, &err)

	setString(envBaseURL, &c.Panel.BaseURL)
	setString(envUsername, &c.Panel.Username)
	setString(envPassword, &c.Panel.Password)
	setSeconds(envTimeout, &c.Panel.Timeout, &err)
	setBool(envVerifySSL, &c.Panel.VerifySSL, &err)

	setString(envSweep, &c.Jobs.OrphanSweep)
	setBool(envPrune, &c.Jobs.OrphanPrune, &err)

	c.Database.loadEnv(&err)
	return err
}

// Validate reports the first problem that would prevent the gateway from
// starting.
func (c *Config) Validate() error {
	if c.Panel.BaseURL == "" {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s is required", envBaseURL)
	}
	u, err := url.Parse(c.Panel.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s must be an absolute http(s) URL, got %q", envBaseURL, c.Panel.BaseURL)
	}
	if c.Panel.Username == "" {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s is required", envUsername)
	}
	if c.Panel.Password == "" {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s is required", envPassword)
	}
	if c.Panel.Timeout <= 0 {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s must be positive", envTimeout)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s must be between 1 and 65535", envPort)
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return domain.NewError(domain.ErrInvalidConfiguration, "%s and %s must be set together", envCertFile, envKeyFile)
	}
	switch c.LogLevel {
	case Debug, Info, Notice, Warn, Error:
	default:
		return domain.NewError(domain.ErrInvalidConfiguration, "unknown log level %q", c.LogLevel)
	}
	if err := c.Database.ValidateConfig(); err != nil {
		return domain.Wrap(domain.ErrInvalidConfiguration, err, "invalid database configuration")
	}
	return nil
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int, errp *error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		keepFirst(errp, domain.Wrap(domain.ErrInvalidConfiguration, err, "%s must be an integer", key))
		return
	}
	*dst = n
}

func setBool(key string, dst *bool, errp *error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		keepFirst(errp, domain.Wrap(domain.ErrInvalidConfiguration, err, "%s must be a boolean", key))
		return
	}
	*dst = b
}

// setSeconds accepts either a plain number of seconds or a Go duration.
func setSeconds(key string, dst *int, errp *error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		keepFirst(errp, domain.Wrap(domain.ErrInvalidConfiguration, err, "%s must be seconds or a duration", key))
		return
	}
	*dst = int(d / time.Second)
}

func keepFirst(errp *error, err error) {
	if *errp == nil {
		*errp = err
	}
}
