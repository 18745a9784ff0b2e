// Package logger はJSON構造化ログのセットアップを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// developmentではDEBUGレベルまで、それ以外ではINFOレベル以上を出力する。
func Setup(w io.Writer, appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, appEnv string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, appEnv)
	slog.SetDefault(logger)
	return logger
}
