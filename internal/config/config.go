package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	AppPort string

	StoreDriver    string
	StoreSerialize bool

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	PostgresDSN string
	SQLitePath  string

	MongoURI        string
	MongoDB         string
	MongoCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempTTLSecs int

	ReconcileEnabled    bool
	ReconcileTZ         string
	ReconcileBatchLimit int

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"APP_PORT":                "8080",
	"STORE_DRIVER":            DriverMySQL,
	"STORE_SERIALIZE":         false,
	"MYSQL_HOST":              "mysql",
	"MYSQL_PORT":              "3306",
	"MYSQL_DB":                "timeaway",
	"MYSQL_USER":              "timeaway",
	"MYSQL_PASS":              "timeaway",
	"POSTGRES_DSN":            "",
	"SQLITE_PATH":             "timeaway.db",
	"MONGO_URI":               "mongodb://localhost:27017",
	"MONGO_DB":                "timeaway",
	"MONGO_COLLECTION":        "requests",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"IDEMPOTENCY_TTL_SECONDS": 300,
	"RECONCILE_ENABLED":       true,
	"RECONCILE_TZ":            "Local",
	"RECONCILE_BATCH_LIMIT":   0,
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "text",
}

// Load reads defaults, then an optional .env in the working directory, then
// the process environment. Later sources win.
func Load() (*Config, error) { return load(".env") }

func load(envFiles ...string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, val := range vals {
			v.SetDefault(strings.ToUpper(k), val)
		}
	}
	v.AutomaticEnv()

	return &Config{
		AppPort:             v.GetString("APP_PORT"),
		StoreDriver:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		StoreSerialize:      v.GetBool("STORE_SERIALIZE"),
		MySQLHost:           v.GetString("MYSQL_HOST"),
		MySQLPort:           v.GetString("MYSQL_PORT"),
		MySQLDB:             v.GetString("MYSQL_DB"),
		MySQLUser:           v.GetString("MYSQL_USER"),
		MySQLPass:           v.GetString("MYSQL_PASS"),
		PostgresDSN:         v.GetString("POSTGRES_DSN"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDB:             v.GetString("MONGO_DB"),
		MongoCollection:     v.GetString("MONGO_COLLECTION"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		IdempTTLSecs:        v.GetInt("IDEMPOTENCY_TTL_SECONDS"),
		ReconcileEnabled:    v.GetBool("RECONCILE_ENABLED"),
		ReconcileTZ:         v.GetString("RECONCILE_TZ"),
		ReconcileBatchLimit: v.GetInt("RECONCILE_BATCH_LIMIT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
	}, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.StoreDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDB == "" || c.MongoCollection == "" {
			return errors.New("missing Mongo config (MONGO_URI/DB/COLLECTION)")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want mysql, postgres, sqlite or mongo)", c.StoreDriver)
	}
	if c.RedisAddr != "" && c.IdempTTLSecs <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_SECONDS must be positive, got %d", c.IdempTTLSecs)
	}
	if c.ReconcileBatchLimit < 0 {
		return fmt.Errorf("RECONCILE_BATCH_LIMIT must not be negative, got %d", c.ReconcileBatchLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the relational drivers.
func (c *Config) DSN() string {
	switch c.StoreDriver {
	case DriverPostgres:
		return c.PostgresDSN
	case DriverSQLite:
		return c.SQLitePath
	default:
		return c.MySQLDSN()
	}
}

// SerializeStore reports whether store access goes through one mutex.
// SQLite always does.
func (c *Config) SerializeStore() bool {
	return c.StoreSerialize || c.StoreDriver == DriverSQLite
}

// Location resolves RECONCILE_TZ; "" and "Local" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.ReconcileTZ == "" || c.ReconcileTZ == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReconcileTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_TZ %q: %w", c.ReconcileTZ, err)
	}
	return loc, nil
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}
