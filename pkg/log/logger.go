package log

// Logger receives protocol events from connections and their streams.
//
// Log is called synchronously on the goroutine doing the I/O, so it must
// be safe for concurrent use and should not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) {
	f(event)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
