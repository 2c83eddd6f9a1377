// Package logger は slog ロガーの共通セットアップを提供します。
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault は標準出力へ書き込むテキスト形式のロガーを作成します。
func NewDefault(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
