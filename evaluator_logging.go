package props

import (
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes one expression evaluation.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Property string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogEvaluatorLogger logs successful evaluations at Debug and failures at
// Warn.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []any{
			"engine", event.Engine,
			"expr", event.Expr,
			"property", event.Property,
			"duration", event.Duration,
		}
		if event.Err != nil {
			logger.Warn("props: expression failed", append(attrs, "error", event.Err)...)
			return
		}
		logger.Debug("props: expression evaluated", attrs...)
	})
}
