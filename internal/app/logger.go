package app

import (
	"log/slog"

	"delivery-dispatch/internal/logx"
)

// NewLogger builds the process-wide JSON logger.
func NewLogger() logx.Logger {
	return logx.NewJSON(slog.LevelInfo)
}
