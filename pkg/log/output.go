package log

import (
	"io"
	"os"
)

// ConsoleOutput writes formatted entries to stderr, or to W when set.
type ConsoleOutput struct {
	W io.Writer
}

// NewConsoleOutput returns an output writing to stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{W: os.Stderr} }

// NewWriterOutput returns an output writing to w.
func NewWriterOutput(w io.Writer) *ConsoleOutput { return &ConsoleOutput{W: w} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	w := o.W
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }

// NewNop returns a logger that discards all entries.
func NewNop() Logger {
	return NewLogger(WithLevel(FatalLevel), WithOutput(NullOutput{}))
}
