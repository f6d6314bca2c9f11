package repl

// Control bytes understood by the remote interpreter's REPL. These are
// fixed by the firmware and are not configurable.
const (
	// CtrlRawMode enters raw mode: subsequent input is buffered instead
	// of executed line by line.
	CtrlRawMode byte = 0x01

	// CtrlExitRaw leaves raw mode for the normal interactive prompt.
	CtrlExitRaw byte = 0x02

	// CtrlInterrupt interrupts the currently running program.
	CtrlInterrupt byte = 0x03

	// CtrlEndOfData ends raw-mode input; the remote executes the
	// buffered program and echoes okMarker. The same byte delimits the
	// remote's output sections.
	CtrlEndOfData byte = 0x04
)

// okMarker is echoed by the remote after it accepts raw-mode input.
const okMarker = "OK"
