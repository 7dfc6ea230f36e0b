package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/openincident/beacon/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultPeersFile is the default name of the JSON file containing the
	// peers to register at startup.
	DefaultPeersFile = "peers.json"

	// DefaultSchemaFile is the default name of the JSON file containing the
	// local namespace schema definition.
	DefaultSchemaFile = "schema.json"

	// DefaultBadgerFile is the default name of the folder containing the
	// Badger database.
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultCoreDomain  = "https://schemas.openincident.net"
	DefaultLocalDomain = "http://127.0.0.1:8000"
	DefaultNamespace   = "local"
	DefaultMoniker     = "beacon"
	DefaultPageSize    = 20
	DefaultTimeout     = 10 * time.Second
	DefaultCacheSize   = 10000
	DefaultStore       = false
)

// Config contains all the configuration properties of a beacon node.
type Config struct {
	// DataDir is the top-level directory containing beacon configuration and
	// data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile is an optional path to a file where logs are written in
	// addition to stderr.
	LogFile string `mapstructure:"log-file"`

	// ServiceAddr is the address:port of the HTTP API service.
	ServiceAddr string `mapstructure:"service-listen"`

	// CoreDomain is the domain under which the shared core vocabulary,
	// context, and validation schema are published. Every node in a
	// federation uses the same core domain.
	CoreDomain string `mapstructure:"core-domain"`

	// LocalDomain is the domain under which this node publishes its own
	// documents: the local namespace schemas, the outbox, and the URIs
	// assigned to locally authored incidents.
	LocalDomain string `mapstructure:"local-domain"`

	// Namespace is the name of this node's local schema namespace, layered
	// on top of the core namespace.
	Namespace string `mapstructure:"namespace"`

	// Moniker defines the friendly name of this node. It is used as the
	// preferredUsername of the actor document.
	Moniker string `mapstructure:"moniker"`

	// Store activates persistent storage. When false, an in-memory store is
	// used and all data is lost on shutdown.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing the Badger database files.
	DatabaseDir string `mapstructure:"db"`

	// PageSize is the fixed number of items per outbox page served by this
	// node.
	PageSize int `mapstructure:"page-size"`

	// Timeout bounds the duration of a single page fetch during a pull.
	Timeout time.Duration `mapstructure:"timeout"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		ServiceAddr: DefaultServiceAddr,
		CoreDomain:  DefaultCoreDomain,
		LocalDomain: DefaultLocalDomain,
		Namespace:   DefaultNamespace,
		Moniker:     DefaultMoniker,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		PageSize:    DefaultPageSize,
		Timeout:     DefaultTimeout,
		CacheSize:   DefaultCacheSize,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. The in-memory store is selected.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level beacon directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitly
// set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// PeersFile returns the full path of the file containing the startup peers.
func (c *Config) PeersFile() string {
	return filepath.Join(c.DataDir, DefaultPeersFile)
}

// SchemaFile returns the full path of the file containing the local
// namespace schema definition.
func (c *Config) SchemaFile() string {
	return filepath.Join(c.DataDir, DefaultSchemaFile)
}

// Logger returns a formatted logrus Entry, with prefix set to "beacon".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, l := range logrus.AllLevels {
				pathMap[l] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				new(logrus.JSONFormatter),
			))
		}
	}
	return c.logger.WithField("prefix", "beacon")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir returns the default directory name for top-level beacon
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".beacon")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Beacon")
		} else {
			return filepath.Join(home, ".beacon")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel converts a string to a logrus Level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
