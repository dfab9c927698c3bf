// Package vreport is the message-reporting surface of the configurator.
// Interactive behavior is an explicit construction-time option instead of
// process-global state: in silent mode messages degrade to log-only output
// with no blocking UI.
package vreport

import "log"

// Sink receives user-visible messages. A GUI implementation would show
// dialog boxes; non-interactive frontends can discard them since every
// message is also logged.
type Sink interface {
	Information(title, text string)
	Critical(title, text string)
}

// Options configures a Reporter.
type Options struct {
	// Silent suppresses interactive prompts; messages are logged only.
	Silent bool

	// Sink receives messages when not silent. May be nil.
	Sink Sink

	// Logger receives every message. Defaults to the standard logger.
	Logger *log.Logger
}

// Reporter logs every message and forwards it to the interactive sink
// unless running silent.
type Reporter struct {
	silent bool
	sink   Sink
	logger *log.Logger
}

// New creates a reporter from options.
func New(opts Options) *Reporter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reporter{
		silent: opts.Silent,
		sink:   opts.Sink,
		logger: logger,
	}
}

// Information reports an informational message.
func (r *Reporter) Information(title, text string) {
	r.logger.Printf("INFO: %s: %s", title, text)
	if !r.silent && r.sink != nil {
		r.sink.Information(title, text)
	}
}

// Critical reports a failure message.
func (r *Reporter) Critical(title, text string) {
	r.logger.Printf("CRITICAL: %s: %s", title, text)
	if !r.silent && r.sink != nil {
		r.sink.Critical(title, text)
	}
}
