// Package config reads the settings of the converter service from an optional YAML file and from
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/store"
)

// Keys of all settings. They double as environment variable names.
const (
	KeyPort          = "PORT"
	KeyDBDriver      = "DBDRIVER"
	KeyDBHost        = "DBHOST"
	KeyDBUser        = "DBUSER"
	KeyDBPassword    = "DBPWD"
	KeyDBName        = "DBNAME"
	KeyDBPath        = "DBPATH"
	KeyGinLogging    = "GIN_LOGGING"
	KeyGinMode       = "GIN_MODE"
	KeyOwnerId       = "OWNER_ID"
	KeyMaxFileSize   = "MAX_FILE_SIZE"
	KeyEncodings     = "ENCODINGS"
	KeyRetentionDays = "RETENTION_DAYS"
)

// DefaultMaxFileSize is the largest upload accepted unless configured otherwise.
const DefaultMaxFileSize = 20 * 1024 * 1024

// Config holds the settings of the service.
type Config struct {
	Port          string
	DBDriver      string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPath        string
	GinLogging    bool
	GinMode       string
	OwnerId       int64
	MaxFileSize   int64
	Encodings     []string
	RetentionDays int
}

// Load reads the configuration. If file is empty, contacts-converter.yaml is looked up in the
// working directory and in ~/.config/contacts-converter; a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDBDriver, store.DriverMySQL)
	v.SetDefault(KeyDBHost, "localhost:3306")
	v.SetDefault(KeyDBName, "contacts")
	v.SetDefault(KeyDBPath, "contacts.db")
	v.SetDefault(KeyGinLogging, "on")
	v.SetDefault(KeyMaxFileSize, DefaultMaxFileSize)
	v.SetDefault(KeyEncodings, "utf-8,latin1")
	v.SetDefault(KeyRetentionDays, 30)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("contacts-converter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "contacts-converter"))
		}
	}
	for _, key := range []string{
		KeyPort, KeyDBDriver, KeyDBHost, KeyDBUser, KeyDBPassword, KeyDBName, KeyDBPath,
		KeyGinLogging, KeyGinMode, KeyOwnerId, KeyMaxFileSize, KeyEncodings, KeyRetentionDays,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return &Config{
		Port:          v.GetString(KeyPort),
		DBDriver:      v.GetString(KeyDBDriver),
		DBHost:        v.GetString(KeyDBHost),
		DBUser:        v.GetString(KeyDBUser),
		DBPassword:    v.GetString(KeyDBPassword),
		DBName:        v.GetString(KeyDBName),
		DBPath:        v.GetString(KeyDBPath),
		GinLogging:    !strings.EqualFold(v.GetString(KeyGinLogging), "off"),
		GinMode:       v.GetString(KeyGinMode),
		OwnerId:       v.GetInt64(KeyOwnerId),
		MaxFileSize:   v.GetInt64(KeyMaxFileSize),
		Encodings:     splitList(v.Get(KeyEncodings)),
		RetentionDays: v.GetInt(KeyRetentionDays),
	}, nil
}

// Validate checks that the configuration can be used to start the service.
func (c *Config) Validate() error {
	var errs []error
	if c.OwnerId <= 0 {
		errs = append(errs, fmt.Errorf("%s must be a positive user id", KeyOwnerId))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("%s %q is not a valid port", KeyPort, c.Port))
	}
	if c.DBDriver != store.DriverMySQL && c.DBDriver != store.DriverSQLite {
		errs = append(errs, fmt.Errorf("%s %q is not supported", KeyDBDriver, c.DBDriver))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMaxFileSize))
	}
	if len(c.Encodings) == 0 {
		errs = append(errs, fmt.Errorf("%s must name at least one encoding", KeyEncodings))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRetentionDays))
	}
	return errors.Join(errs...)
}

// DSN returns the data source name for the configured database driver.
func (c *Config) DSN() string {
	if c.DBDriver == store.DriverSQLite {
		return store.SQLiteDSN(c.DBPath)
	}
	return store.MySQLDSN(c.DBUser, c.DBPassword, c.DBHost, c.DBName)
}

// IsRelease returns true if gin runs in release mode.
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// splitList accepts a comma separated string from the environment as well as a YAML list.
func splitList(value any) []string {
	var items []string
	switch v := value.(type) {
	case string:
		items = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	case []string:
		items = v
	}
	result := []string{}
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
