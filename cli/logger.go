package cli

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santiagomed/architect/logger"
)

var (
	log  logger.Logger = logger.NewNullLogger()
	once sync.Once
)

// InitLogger points the CLI logger at ~/.architect/architect.log. The file is
// truncated on every invocation.
func InitLogger() {
	once.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return
		}
		l, _, err := logger.NewFile(filepath.Join(homeDir, ".architect"), "architect.log", zerolog.DebugLevel)
		if err != nil {
			return
		}
		log = l
	})
}

// GetLogger returns the logger instance
func GetLogger() logger.Logger {
	return log
}
