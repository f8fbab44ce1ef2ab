package pipeline

import (
	"io"
	"log"

	"github.com/banshee-data/lodexport/internal/monitoring"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
	redirected  bool
)

// SetLogWriters configures the three logging streams for the pipeline package.
// Pass nil for any writer to disable that stream. Until it is called, ops
// goes to monitoring.Logf, diag to monitoring.Debugf and trace nowhere.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[pipeline] ", ops)
	diagLogger = newLogger("[pipeline] ", diag)
	traceLogger = newLogger("[pipeline] ", trace)
	redirected = true
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs run summaries and failures.
func opsf(format string, args ...interface{}) {
	if !redirected {
		monitoring.Logf("[pipeline] "+format, args...)
		return
	}
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// diagf logs per-source detail.
func diagf(format string, args ...interface{}) {
	if !redirected {
		monitoring.Debugf("[pipeline] "+format, args...)
		return
	}
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef logs per-stage timings.
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
