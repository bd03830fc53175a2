package updater

import "time"

// Progress phases.
const (
	PhaseHashing  = "hashing"
	PhaseErasing  = "erasing"
	PhaseWriting  = "writing"
	PhaseComplete = "complete"
)

// Progress contains information about a long-running updater operation.
// Passed to ProgressCallback while hashing and staging.
type Progress struct {
	// Phase describes the current operation phase:
	//   "hashing"  - Streaming the staged image through a digest
	//   "erasing"  - Erasing DFU flash
	//   "writing"  - Writing DFU flash
	//   "complete" - Operation completed successfully
	Phase string

	// BytesDone is the number of bytes processed so far
	BytesDone int

	// TotalBytes is the number of bytes the operation will process
	TotalBytes int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the operation started
	ElapsedTime time.Duration
}

// ProgressCallback is called during hashing and staging to report progress.
// Implementations should return quickly; the flash sequence waits for them.
//
// Example:
//
//	u := updater.New(dfu, state,
//	    updater.WithProgressCallback(func(p updater.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the updater.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	u := updater.New(dfu, state, updater.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

func percentage(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
