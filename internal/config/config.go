// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config holds the CLI configuration, merged from flags, environment and an
// optional .env file, in that order of precedence.
type Config struct {
	ArtifactoryURL  string        `validate:"required"`
	Credentials     Credentials   `validate:"-"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	MetricsTextfile string
	LogLevel        string `validate:"omitempty,oneof=debug info warn error"`
	LogFile         string
}

// flagKeys maps persistent CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"url":              KeyURL,
	"user":             KeyUsername,
	"password":         KeyPassword,
	"timeout":          KeyRequestTimeout,
	"metrics-textfile": KeyMetricsTextfile,
	"log-level":        KeyLogLevel,
	"log-file":         KeyLogFile,
}

// Load reads configFile (a dotenv file, optional), the environment and the
// given flags, and validates the result. Credentials are not validated here
// because not every command uses the admin account; see ValidateCredentials.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, DefaultLogFile)

	if flags != nil {
		for flagName, key := range flagKeys {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag '%s': %w", flagName, err)
			}
		}
	}

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			var cfgErr viper.ConfigFileNotFoundError
			if !errors.As(err, &cfgErr) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	appConfig := &Config{
		ArtifactoryURL: v.GetString(KeyURL),
		Credentials: Credentials{
			Username: v.GetString(KeyUsername),
			Password: v.GetString(KeyPassword),
		},
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		MetricsTextfile: v.GetString(KeyMetricsTextfile),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFile:         v.GetString(KeyLogFile),
	}

	if err := validate.Struct(appConfig); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return appConfig, nil
}

// ValidateCredentials checks that the admin account is fully configured.
func (c *Config) ValidateCredentials() error {
	if err := validate.Struct(c.Credentials); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	return nil
}
