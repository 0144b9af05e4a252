// Package config loads the procmem settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"procmem/memory"
	"procmem/process"
)

const (
	App       = "procmem"
	EnvPrefix = "PROCMEM"
)

var ErrInvalidValue = errors.New("invalid config value")

type Config struct {
	// Access is the rights requested when attaching.
	Access process.AccessRights `mapstructure:"access"`
	// BytesPerLine is the width of hex dumps.
	BytesPerLine int  `mapstructure:"bytes_per_line"`
	Color        bool `mapstructure:"color"`
	Debug        bool `mapstructure:"debug"`
	// MaxRead caps the size of a single read.
	MaxRead int `mapstructure:"max_read"`
}

// Dir returns $HOME/.procmem, or a directory under the temp dir when there is no home.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, "."+App)
}

// New returns a viper instance with the procmem defaults, search path and environment
// binding. A non-empty file replaces the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	v.SetDefault("access", "read,write,query")
	v.SetDefault("bytes_per_line", 16)
	v.SetDefault("color", false)
	v.SetDefault("debug", false)
	v.SetDefault("max_read", 1<<20)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(App)
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing file in the search path is not an error; a missing
// file given explicitly is.
func Load(file string) (*Config, error) {
	return Decode(New(file))
}

// Decode reads v's config file, if any, and decodes the settings.
func Decode(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	conf := &Config{}
	hook := mapstructure.DecodeHookFuncType(accessRightsHook)
	if err := v.Unmarshal(conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if c.BytesPerLine < 1 || c.BytesPerLine > 64 {
		return fmt.Errorf("%w: bytes_per_line %d is outside 1..64", ErrInvalidValue, c.BytesPerLine)
	}
	if c.MaxRead < 1 || c.MaxRead > memory.MaxReadSize {
		return fmt.Errorf("%w: max_read %d is outside 1..%d", ErrInvalidValue, c.MaxRead, memory.MaxReadSize)
	}
	if c.Access == 0 {
		return fmt.Errorf("%w: access is empty", ErrInvalidValue)
	}
	return nil
}

// accessRightsHook decodes "read,write", "all" or a number into process.AccessRights.
func accessRightsHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(process.AccessRights(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	rights, err := process.ParseAccessRights(data.(string))
	if err != nil {
		return nil, fmt.Errorf("%w: access: %v", ErrInvalidValue, err)
	}
	return rights, nil
}
