package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/marketplace/internal/lib/logger/handlers/slogpretty"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// имена процессов, которые пишут в общий поток логов
const (
	ServiceAPI    = "api"
	ServiceWorker = "outbox-worker"
)

// SetupLogger создаёт логгер процесса service для окружения env.
// Локально вывод цветной, в dev/prod JSON в stdout.
func SetupLogger(env, service string) *slog.Logger {
	return New(os.Stdout, env, service)
}

// New пишет в out; каждая запись несёт атрибуты service и env
func New(out io.Writer, env, service string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case EnvLocal:
		color.NoColor = false
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
		}
		handler = opts.NewPrettyHandler(out)
	case EnvDev:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
