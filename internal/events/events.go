// Package events carries notifications emitted by the pipeline.
package events

import "time"

// RunCompleted is sent when a pipeline run finishes.
type RunCompleted struct {
	Trigger          string        // "scheduled" or "manual"
	UserID           string        // set when a manual run was scoped to one tenant
	StartedAt        time.Time     // when the run began
	Duration         time.Duration // how long the run took
	DocumentsCreated int
	Extracted        int
	AssetsCreated    int
	DocumentsDeleted int
	Errors           []string // non-fatal errors from every stage
}
