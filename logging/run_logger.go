package logging

import (
	"fmt"
	"time"
)

// RunLogger brackets a single CLI invocation with start and end lines and
// tags everything logged in between with the command and run ID.
type RunLogger struct {
	logger  *Logger
	command string
	runID   string
	started time.Time
}

// NewRunLogger tags logger with command and runID for the rest of the run
func NewRunLogger(logger *Logger, command, runID string) *RunLogger {
	logger.SetCommand(command)
	logger.SetRunID(runID)
	return &RunLogger{logger: logger, command: command, runID: runID, started: time.Now()}
}

// LogRunStart records what the run operates on
func (rl *RunLogger) LogRunStart(target string) {
	rl.logger.Info("run", fmt.Sprintf("Starting %s against '%s'", rl.command, target), map[string]interface{}{
		"target": target,
	})
}

// LogRunEnd records the outcome and elapsed time of the run
func (rl *RunLogger) LogRunEnd(err error) {
	elapsed := time.Since(rl.started)
	if err != nil {
		rl.logger.Error("run", fmt.Sprintf("%s failed after %v", rl.command, elapsed), err)
		return
	}
	rl.logger.Info("run", fmt.Sprintf("%s completed in %v", rl.command, elapsed))
}

// LogPhase marks the start of a step within the run
func (rl *RunLogger) LogPhase(phase, description string) {
	rl.logger.Info("run", description, map[string]interface{}{"phase": phase})
}

// GenerateRunID returns a time-based run ID
func GenerateRunID() string {
	return fmt.Sprintf("R%d", time.Now().Unix())
}
