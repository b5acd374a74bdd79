package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

// Profile holds the command-line tool's settings.
//
// Values come from a YAML profile file and can be overridden by environment
// variables with the ARCHIVE_ prefix, e.g. ARCHIVE_LOGGING_LEVEL=debug.
type Profile struct {
	// Format and Compression select what the reader recognises.
	Format      string `mapstructure:"format" validate:"required"`
	Compression string `mapstructure:"compression"`
	Options     string `mapstructure:"options"`

	// ReadSize is the number of bytes requested from the input per callback.
	ReadSize int `mapstructure:"read_size" validate:"gt=0"`

	// Output selects the listing encoder.
	Output string `mapstructure:"output" validate:"oneof=text json yaml cbor"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls the tool's zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// ReadConfig builds a read session configuration around reader.
func (p *Profile) ReadConfig(reader archive.ReaderFunc) archive.ReadConfig {
	return archive.ReadConfig{
		Reader:      reader,
		Format:      p.Format,
		Compression: p.Compression,
		Options:     p.Options,
	}
}

// LoadProfile loads the profile at path. An empty path searches the default
// location; a missing default profile yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	setupViper(v, path)

	if err := readProfileFile(v); err != nil {
		return nil, err
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindConfiguration, err, "failed to unmarshal profile")
	}
	p.Logging.Level = strings.ToLower(p.Logging.Level)
	p.Output = strings.ToLower(p.Output)

	if err := check(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// setupViper registers defaults, environment overrides and the profile file.
func setupViper(v *viper.Viper, path string) {
	v.SetDefault("format", "all")
	v.SetDefault("compression", "all")
	v.SetDefault("options", "")
	v.SetDefault("read_size", 64*1024)
	v.SetDefault("output", "text")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("ARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.AddConfigPath(profileDir())
	v.SetConfigName("profile")
	v.SetConfigType("yaml")
}

func readProfileFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errors.Wrap(errors.PhaseConstruct, errors.KindConfiguration, err, "failed to read profile")
	}
	return nil
}

// profileDir returns $XDG_CONFIG_HOME/archive-runtime, falling back to
// ~/.config/archive-runtime and then the working directory.
func profileDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "archive-runtime")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "archive-runtime")
}

// DefaultProfilePath returns where LoadProfile looks when given no path.
func DefaultProfilePath() string {
	return filepath.Join(profileDir(), "profile.yaml")
}
