package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter adapts zerolog.Logger to our Logger interface
type ZerologAdapter struct {
	logger *zerolog.Logger
}

// New returns a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &ZerologAdapter{logger: &l}
}

// NewConsole returns a human readable Logger on stderr, used by long running commands.
func NewConsole(level zerolog.Level) Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return New(w, level)
}

// NewFile opens (and truncates) dir/name and logs into it.
func NewFile(dir, name string, level zerolog.Level) (Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}
