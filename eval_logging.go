package lazyconf

import "time"

// EvalLogEvent describes one default-expression evaluation for logging.
type EvalLogEvent struct {
	Engine   string
	Expr     string
	Field    string
	Scope    string
	Duration time.Duration
	Err      error
}

// EvalLogger records evaluation events.
type EvalLogger interface {
	LogEvaluation(EvalLogEvent)
}

// EvalLoggerFunc adapts a plain function to EvalLogger.
type EvalLoggerFunc func(EvalLogEvent)

// LogEvaluation implements EvalLogger.
func (f EvalLoggerFunc) LogEvaluation(event EvalLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvalLogger struct{}

func (noopEvalLogger) LogEvaluation(EvalLogEvent) {}
