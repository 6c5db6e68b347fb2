package identity

import (
	"context"
	"log/slog"
)

// DefaultHandlerName is the name data-quality reports are logged under.
const DefaultHandlerName = "DBMerger"

// ErrorHandler collects data-quality problems found while resolving
// identities. It logs every report and never aborts; callers inspect Count
// to decide whether a run failed.
type ErrorHandler struct {
	name     string
	level    slog.Level
	logger   *slog.Logger
	messages []string
}

// NewErrorHandler creates a handler logging at level. logger may be nil.
func NewErrorHandler(name string, level slog.Level, logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{name: name, level: level, logger: logger}
}

// DefaultErrorHandler logs at warn level under DefaultHandlerName.
func DefaultErrorHandler() *ErrorHandler {
	return NewErrorHandler(DefaultHandlerName, slog.LevelWarn, nil)
}

// Name returns the handler name.
func (h *ErrorHandler) Name() string { return h.name }

// HandleError records and logs message.
func (h *ErrorHandler) HandleError(ctx context.Context, message string) {
	h.messages = append(h.messages, message)
	h.logger.Log(ctx, h.level, message, "handler", h.name)
}

// Count returns the number of reports so far.
func (h *ErrorHandler) Count() int { return len(h.messages) }

// Messages returns the reports in order.
func (h *ErrorHandler) Messages() []string {
	return append([]string(nil), h.messages...)
}

// Reset forgets all reports.
func (h *ErrorHandler) Reset() { h.messages = nil }
