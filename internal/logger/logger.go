package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevel()

// Init replaces zap's global logger. Code logs through zap.L(). An empty lvl keeps
// the environment's default: info in production and staging, debug elsewhere.
func Init(environment, lvl string) error {
	var conf zap.Config
	switch environment {
	case "production", "staging":
		conf = zap.NewProductionConfig()
	default:
		conf = zap.NewDevelopmentConfig()
	}

	level.SetLevel(conf.Level.Level())
	if err := SetLevel(lvl); err != nil {
		return err
	}
	conf.Level = level

	l, err := conf.Build()
	if err != nil {
		return fmt.Errorf("conf.Build -> %w", err)
	}

	zap.ReplaceGlobals(l)

	return nil
}

// SetLevel changes the level of the logger built by Init while it runs. An empty
// lvl leaves it unchanged.
func SetLevel(lvl string) error {
	if lvl == "" {
		return nil
	}

	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("zapcore.ParseLevel -> %w", err)
	}
	level.SetLevel(parsed)

	return nil
}

func Level() zapcore.Level {
	return level.Level()
}
