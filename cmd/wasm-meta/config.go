package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-metadata/metadata"
)

const (
	envPrefix        = "WASM_META"
	defaultLogLevel  = "warn"
	defaultLogFormat = "console"
)

type config struct {
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`
	Didc            string `mapstructure:"didc"`
	MaxInputSize    int64  `mapstructure:"max-input-size"`
	KeepNameSection bool   `mapstructure:"keep-name-section"`
}

func (c config) options() metadata.Options {
	return metadata.Options{
		KeepNameSection:     c.KeepNameSection,
		MaxDecompressedSize: c.MaxInputSize,
	}
}

// bindConfig makes every flag also settable as WASM_META_<FLAG> and from
// the config file. Flags win over the environment, which wins over the
// file.
func bindConfig(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
}

func loadConfig(v *viper.Viper) (config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.MaxInputSize < 0 {
		return config{}, fmt.Errorf("max-input-size must not be negative, got %d", cfg.MaxInputSize)
	}
	return cfg, nil
}

func newLogger(cfg config, w io.Writer) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}

	var enc zapcore.Encoder
	switch cfg.LogFormat {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console", "":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.TimeKey = ""
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("log-format: unknown format %q", cfg.LogFormat)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}
