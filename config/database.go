package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseType represents the type of database
type DatabaseType string

const (
	DatabaseTypeSQLite     DatabaseType = "sqlite"
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeMySQL      DatabaseType = "mysql"
)

// DatabaseConfig holds the metadata store configuration.
// Host, Port, Name, User, Password and SSLMode apply to the network backends.
type DatabaseConfig struct {
	Type     DatabaseType `toml:"type"`
	Path     string       `toml:"path"`
	Host     string       `toml:"host"`
	Port     int          `toml:"port"`
	Name     string       `toml:"name"`
	User     string       `toml:"user"`
	Password string       `toml:"password"`
	SSLMode  string       `toml:"sslmode"`
	TimeZone string       `toml:"timezone"`
	Echo     bool         `toml:"echo"`
}

// GetDSN returns the data source name for the database. Credentials are
// escaped, so passwords may hold spaces, quotes or separators.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case DatabaseTypePostgreSQL:
		query := url.Values{}
		if c.SSLMode != "" {
			query.Set("sslmode", c.SSLMode)
		}
		if c.TimeZone != "" {
			query.Set("TimeZone", c.TimeZone)
		}
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:     "/" + c.Name,
			RawQuery: query.Encode(),
		}
		return dsn.String()
	case DatabaseTypeMySQL:
		dsn := mysql.NewConfig()
		dsn.User = c.User
		dsn.Passwd = c.Password
		dsn.Net = "tcp"
		dsn.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		dsn.DBName = c.Name
		dsn.ParseTime = true
		dsn.Loc = time.UTC
		dsn.Params = map[string]string{"charset": "utf8mb4"}
		return dsn.FormatDSN()
	default:
		return c.Path
	}
}

// GetDefaultDatabaseConfig returns default database configuration
func GetDefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:     DatabaseTypeSQLite,
		Path:     getDefaultSQLitePath(),
		Host:     "localhost",
		Name:     "xui_gateway",
		User:     "xui_gateway",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}
}

func getDefaultSQLitePath() string {
	if isDebug() {
		return "db/" + GetName() + ".db"
	}
	return "/etc/" + GetName() + "/" + GetName() + ".db"
}

func (c *DatabaseConfig) defaultPort() int {
	switch c.Type {
	case DatabaseTypePostgreSQL:
		return 5432
	case DatabaseTypeMySQL:
		return 3306
	}
	return 0
}

func (c *DatabaseConfig) loadEnv(errp *error) {
	if v := os.Getenv("XUI_GATEWAY_DB_TYPE"); v != "" {
		c.Type = DatabaseType(v)
	}
	setString("XUI_GATEWAY_DB_PATH", &c.Path)
	setString("XUI_GATEWAY_DB_HOST", &c.Host)
	setInt("XUI_GATEWAY_DB_PORT", &c.Port, errp)
	setString("XUI_GATEWAY_DB_NAME", &c.Name)
	setString("XUI_GATEWAY_DB_USER", &c.User)
	setString("XUI_GATEWAY_DB_PASSWORD", &c.Password)
	setString("XUI_GATEWAY_DB_SSLMODE", &c.SSLMode)
	setBool("XUI_GATEWAY_DB_ECHO", &c.Echo, errp)
	if c.Port == 0 {
		c.Port = c.defaultPort()
	}
}

// ValidateConfig validates the database configuration
func (c *DatabaseConfig) ValidateConfig() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.Path == "" {
			return fmt.Errorf("SQLite path cannot be empty")
		}
	case DatabaseTypePostgreSQL, DatabaseTypeMySQL:
		if c.Host == "" {
			return fmt.Errorf("%s host cannot be empty", c.Type)
		}
		if c.Name == "" {
			return fmt.Errorf("%s database name cannot be empty", c.Type)
		}
		if c.User == "" {
			return fmt.Errorf("%s username cannot be empty", c.Type)
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("%s port must be between 1 and 65535", c.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

func (c *DatabaseConfig) IsSQLite() bool {
	return c.Type == DatabaseTypeSQLite
}

// EnsureDirectoryExists ensures the directory for SQLite database exists
func (c *DatabaseConfig) EnsureDirectoryExists() error {
	if c.Type == DatabaseTypeSQLite {
		dir := filepath.Dir(c.Path)
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
