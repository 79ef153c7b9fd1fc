// Package config loads scanprov settings from flags, environment and an
// optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// Name is the config file base name, without extension.
	Name      = "scanprov"
	EnvPrefix = "SCANPROV"
)

var envKeys = strings.NewReplacer(".", "_")

type Log struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

type Session struct {
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" validate:"gte=0"`
	StopPoll    time.Duration `mapstructure:"stop_poll" validate:"gt=0"`
	CloseDelay  time.Duration `mapstructure:"close_delay" validate:"gte=0"`
}

type Negotiate struct {
	WakeSettle  time.Duration `mapstructure:"wake_settle" validate:"gte=0"`
	DisplayTest string        `mapstructure:"display_test"`
}

type Barcode struct {
	Auto      bool          `mapstructure:"auto"`
	AutoDelay time.Duration `mapstructure:"auto_delay" validate:"gte=0"`
}

type Save struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// Config is the resolved configuration.
type Config struct {
	Port         string    `mapstructure:"port"`
	Variant      string    `mapstructure:"variant"`
	VariantsFile string    `mapstructure:"variants_file"`
	Encoding     string    `mapstructure:"encoding" validate:"encoding"`
	Log          Log       `mapstructure:"log"`
	Session      Session   `mapstructure:"session"`
	Negotiate    Negotiate `mapstructure:"negotiate"`
	Barcode      Barcode   `mapstructure:"barcode"`
	Save         Save      `mapstructure:"save"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("variant", "")
	v.SetDefault("variants_file", "")
	v.SetDefault("encoding", "utf-8")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", logging.DefaultFile())
	v.SetDefault("log.max_size_mb", 1)
	v.SetDefault("log.max_backups", 2)

	v.SetDefault("session.read_timeout", 100*time.Millisecond)
	v.SetDefault("session.stop_timeout", time.Second)
	v.SetDefault("session.stop_poll", 50*time.Millisecond)
	v.SetDefault("session.close_delay", 100*time.Millisecond)

	v.SetDefault("negotiate.wake_settle", 100*time.Millisecond)
	v.SetDefault("negotiate.display_test", "変更bpsで表示テスト")

	v.SetDefault("barcode.auto", true)
	v.SetDefault("barcode.auto_delay", 50*time.Millisecond)

	v.SetDefault("save.dir", ".")
}

// New returns a viper instance with defaults and environment binding. An
// explicit file must exist; otherwise scanprov.toml is looked up in the
// user config directory and the working directory, and may be absent.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}

	v.SetConfigName(Name)
	v.SetConfigType("toml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", Name))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("encoding", func(fl validator.FieldLevel) bool {
		_, err := codec.NewDecoder(fl.Field().String())
		return err == nil
	})
	return val
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
