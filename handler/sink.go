// Package handler implements the named byte-stream sinks that
// firing attribute-programs write to: one OS process per declared
// name=command pair, fed over its standard input.
package handler

//go:generate mockgen -source=sink.go -destination=mock_sink.go -package=handler

// Sink is a named stream that receives two lines per firing — the
// owning object's DN, then the attribute-program's text — each
// terminated by '\n', followed by a flush.
type Sink interface {
	// Name returns the program name this sink was declared under.
	Name() string

	// Fire writes dn and attr as two newline-terminated lines and
	// flushes the underlying stream.
	Fire(dn string, attr string) error

	// Close releases the underlying resource. Called once, at
	// environment close.
	Close() error
}
