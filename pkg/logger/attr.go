package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under the key
// "notification_id". If id is nil, it returns an empty Attr.
func NotificationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("notification_id", id)
}

// WorkerID records the worker identifier under the key "worker_id".
func WorkerID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("worker_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(ch any) slog.Attr {
	if ch == nil {
		return slog.Attr{}
	}
	return slog.Any("channel", ch)
}

// Priority records the priority tier under the key "priority".
func Priority(p any) slog.Attr {
	if p == nil {
		return slog.Attr{}
	}
	return slog.Any("priority", p)
}
