package notify

import "log/slog"

// Notifier is the sink for all user-visible diagnostics. Implementations
// must not block callers meaningfully.
type Notifier interface {
	// LogInfo records an informational message in the event log.
	LogInfo(msg string)

	// LogError records an error message in the event log.
	LogError(msg string)

	// LogErrorBalloon records an error message and additionally surfaces
	// it as a transient notification.
	LogErrorBalloon(msg string)
}

// SlogNotifier writes notifications through a slog.Logger.
type SlogNotifier struct {
	logger *slog.Logger
}

// Compile-time interface check
var _ Notifier = (*SlogNotifier)(nil)

// NewSlogNotifier creates a Notifier backed by the given logger.
// A nil logger falls back to slog.Default().
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) LogInfo(msg string) {
	n.logger.Info(msg)
}

func (n *SlogNotifier) LogError(msg string) {
	n.logger.Error(msg)
}

func (n *SlogNotifier) LogErrorBalloon(msg string) {
	n.logger.Error(msg, "balloon", true)
}
