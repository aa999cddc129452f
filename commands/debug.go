package commands

import (
	"fmt"
	"log/slog"
)

var (
	// logLevel is the level of the process logger; /debug flips it.
	logLevel *slog.LevelVar
	// levelBeforeDebug is restored when debug mode is switched off
	levelBeforeDebug slog.Level
)

// SetLogLevel hands the logger's level variable to the /debug command
func SetLogLevel(level *slog.LevelVar) {
	logLevel = level
	levelBeforeDebug = slog.LevelInfo
}

func init() {
	Register(&Command{
		Name:        "/debug",
		Description: "Toggle debug logging",
		Hidden:      true,
		Handler: func(args []string) bool {
			if logLevel == nil {
				fmt.Println("Debug logging is not available")
				return false
			}

			if logLevel.Level() == slog.LevelDebug {
				logLevel.Set(levelBeforeDebug)
				fmt.Println("Debug mode: OFF")
			} else {
				levelBeforeDebug = logLevel.Level()
				logLevel.Set(slog.LevelDebug)
				fmt.Println("Debug mode: ON")
			}
			return false
		},
	})
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	return logLevel != nil && logLevel.Level() == slog.LevelDebug
}
