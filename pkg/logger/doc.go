// Package logger builds configured slog.Logger instances with JSON or text
// output plus attribute helpers for the identifiers this service logs on
// nearly every line (notification id, worker id, channel, priority).
package logger
