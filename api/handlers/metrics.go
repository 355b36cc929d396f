package handlers

import "time"

// WorkflowMetrics records workflow operation outcomes. Implemented by the
// metrics collector; handlers treat a nil recorder as disabled.
type WorkflowMetrics interface {
	// RecordCompile records one definition call.
	RecordCompile(status string, steps int, duration time.Duration)
	// RecordExecution records one finished run.
	RecordExecution(status string, steps, imagesProduced int, duration time.Duration)
}
