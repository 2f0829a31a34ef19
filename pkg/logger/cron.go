package logger

import "go.uber.org/zap"

// CronLogger adapts a zap logger to cron.Logger.
type CronLogger struct {
	l *zap.SugaredLogger
}

func NewCronLogger(l *zap.Logger) CronLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return CronLogger{l: l.Sugar()}
}

// Info is routed to debug level; cron reports every job start and finish.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
