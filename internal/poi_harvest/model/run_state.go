package model

import "time"

// RunState is the persisted progress of one run. Entities only ever grow
// between snapshots of the same run.
type RunState struct {
	RunID            string      `json:"runId"`
	Timestamp        time.Time   `json:"timestamp"`
	TotalEntities    int         `json:"totalEntities"`
	CurrentPartition string      `json:"currentPartition"`
	CurrentCategory  string      `json:"currentCategory"`
	Cursor           string      `json:"cursor,omitempty"` // key of the last item of the completed prefix
	Completed        int         `json:"completed"`
	Usage            UsageReport `json:"usageReport"`
	Entities         []Entity    `json:"entities"`
}

type UsageError struct {
	Partition string    `json:"partition"`
	Label     string    `json:"label"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageReport is additive: counts and errors only accumulate.
type UsageReport struct {
	TotalCalls       int            `json:"totalCalls"`
	Duration         float64        `json:"duration"` // seconds
	CallsByPartition map[string]int `json:"callsByPartition"`
	CallsByCategory  map[string]int `json:"callsByCategory"`
	ErrorCount       int            `json:"errorCount"`
	Errors           []UsageError   `json:"errors"`
}
