package repl

// Terminal receives relayed device output and engine error lines. The
// engine calls it from its relay goroutine; implementations must be
// safe for that.
type Terminal interface {
	// Write appends text to the terminal without a trailing newline.
	Write(text string)
	// WriteLine appends text followed by a newline.
	WriteLine(text string)
}

// Editor is a text buffer the convenience file helpers read from and
// write into, typically backed by an editor widget or a local file.
type Editor interface {
	// Content returns the buffer's current text.
	Content() string
	// SetContent replaces the buffer's text.
	SetContent(text string)
}

// nopTerminal discards all output. Used when no terminal is configured.
type nopTerminal struct{}

func (nopTerminal) Write(string)     {}
func (nopTerminal) WriteLine(string) {}
