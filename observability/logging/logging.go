package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// attrRenames maps slog's built-in record keys onto the field names the log
// collector expects.
var attrRenames = map[string]string{
	slog.TimeKey:    "timestamp",
	slog.LevelKey:   "severity",
	slog.MessageKey: "message",
}

func renameAttr(_ []string, attr slog.Attr) slog.Attr {
	renamed, ok := attrRenames[attr.Key]
	if !ok {
		return attr
	}
	if attr.Key == slog.LevelKey {
		return slog.String(renamed, strings.ToUpper(attr.Value.String()))
	}
	attr.Key = renamed
	return attr
}

// Setup installs a JSON handler as the process default and returns a logger
// tagged with the service name and, when provided, the environment. The
// minimum level can be changed through SWAPROUTER_LOG_LEVEL (debug, info,
// warn, error).
func Setup(service, env string) *slog.Logger {
	level := slog.LevelInfo
	if raw := strings.TrimSpace(os.Getenv("SWAPROUTER_LOG_LEVEL")); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level = slog.LevelInfo
		}
	}

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	tagged := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameAttr,
	}).WithAttrs(attrs)

	logger := slog.New(tagged)
	slog.SetDefault(logger)

	// Route the stdlib logger through the same handler so dependencies that
	// still use package log emit the same JSON shape.
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(slog.NewLogLogger(tagged, level).Writer())

	return logger
}
