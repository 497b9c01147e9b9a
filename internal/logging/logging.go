// internal/logging/logging.go

// Package logging 建立全程式共用的 zap logger。
// development / local 使用 console 編碼與 Debug 等級；其餘環境使用 JSON 與 Info 等級。
// 所有 log 都寫到 stderr，stdout 留給 console 指令的畫面輸出。
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment 決定 logger 的基本設定。
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentDevelopment Environment = "development"
	EnvironmentLocal       Environment = "local"
)

// Config 為 logger 的初始化參數。Level 空白時依 Environment 決定。
type Config struct {
	Environment Environment `yaml:"environment"`
	Level       string      `yaml:"level"`
}

func (c Config) validate() error {
	switch c.Environment {
	case EnvironmentProduction, EnvironmentDevelopment, EnvironmentLocal:
		return nil
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
}

func (c Config) development() bool {
	return c.Environment == EnvironmentDevelopment || c.Environment == EnvironmentLocal
}

// New 建立 logger，並回傳可在執行期調整的等級。
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	if err := cfg.validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log config: %w", err)
	}

	level, err := resolveLevel(cfg)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	var base zap.Config
	if cfg.development() {
		base = zap.NewDevelopmentConfig()
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		base = zap.NewProductionConfig()
		base.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	base.Level = level
	base.DisableStacktrace = true
	base.OutputPaths = []string{"stderr"}
	base.ErrorOutputPaths = []string{"stderr"}

	logger, err := base.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, level, nil
}

func resolveLevel(cfg Config) (zap.AtomicLevel, error) {
	if strings.TrimSpace(cfg.Level) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(cfg.Level); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", cfg.Level, err)
		}
		return zap.NewAtomicLevelAt(parsed), nil
	}
	if cfg.development() {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
}
