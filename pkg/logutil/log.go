// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
	defaultMaxSize    = 300 // MB
	defaultMaxDays    = 0
	defaultMaxBackups = 0

	constFieldComponentKey = "component"
)

// Config serializes log related config in toml/json.
type Config struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log format, one of text or json.
	Format string `toml:"format" json:"format"`
	// Log filename, leave empty to log to stderr.
	File string `toml:"file" json:"file"`
	// Max size for a single file, in MB.
	FileMaxSize int `toml:"max-size" json:"max-size"`
	// Max log keep days, default is never deleting.
	FileMaxDays int `toml:"max-days" json:"max-days"`
	// Maximum number of old log files to retain.
	FileMaxBackups int `toml:"max-backups" json:"max-backups"`
	// SamplingInitial and SamplingThereafter enable zap sampling when both
	// are positive.
	SamplingInitial    int `toml:"sampling-initial" json:"sampling-initial"`
	SamplingThereafter int `toml:"sampling-thereafter" json:"sampling-thereafter"`
}

// NewDefaultConfig returns the default log config.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Adjust()
	return cfg
}

// Adjust adjusts config
func (cfg *Config) Adjust() {
	if len(cfg.Level) == 0 {
		cfg.Level = defaultLogLevel
	}
	if len(cfg.Format) == 0 {
		cfg.Format = defaultLogFormat
	}
	if cfg.FileMaxSize == 0 {
		cfg.FileMaxSize = defaultMaxSize
	}
	if cfg.FileMaxDays == 0 {
		cfg.FileMaxDays = defaultMaxDays
	}
	if cfg.FileMaxBackups == 0 {
		cfg.FileMaxBackups = defaultMaxBackups
	}
}

// InitLogger initializes the global logger. Diagnostics go to stderr unless a
// log file is configured, so that artifacts written to stdout stay clean.
func InitLogger(cfg *Config) error {
	cfg.Adjust()
	logCfg := &log.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File: log.FileLogConfig{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSize,
			MaxDays:    cfg.FileMaxDays,
			MaxBackups: cfg.FileMaxBackups,
		},
	}
	if cfg.SamplingInitial > 0 && cfg.SamplingThereafter > 0 {
		logCfg.Sampling = &zap.SamplingConfig{
			Initial:    cfg.SamplingInitial,
			Thereafter: cfg.SamplingThereafter,
		}
	}

	var (
		lg    *zap.Logger
		props *log.ZapProperties
		err   error
	)
	if len(cfg.File) == 0 {
		stderr := zapcore.Lock(os.Stderr)
		lg, props, err = log.InitLoggerWithWriteSyncer(logCfg, stderr, stderr)
	} else {
		lg, props, err = log.InitLogger(logCfg)
	}
	if err != nil {
		return cerror.WrapError(cerror.ErrInvalidConfig, err, "log")
	}
	log.ReplaceGlobals(lg, props)
	return nil
}

// SetLogLevel changes the level of the global logger.
func SetLogLevel(level string) error {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return cerror.WrapError(cerror.ErrInvalidConfig, err, "log level "+level)
	}
	if log.GetLevel() == lv {
		return nil
	}
	log.SetLevel(lv)
	return nil
}

// NewLogger4Component returns a logger tagged with the component name.
func NewLogger4Component(component string, fields ...zap.Field) *zap.Logger {
	return log.L().With(append([]zap.Field{
		zap.String(constFieldComponentKey, component),
	}, fields...)...)
}

// ZapErrorFilter wraps zap.Error, if err is in given filterErrors, it will be
// set to nil.
func ZapErrorFilter(err error, filterErrors ...error) zap.Field {
	cause := errors.Cause(err)
	for _, ferr := range filterErrors {
		if cause == ferr {
			return zap.Error(nil)
		}
	}
	return zap.Error(err)
}
