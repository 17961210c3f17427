package domain

import "time"

// Stage is one step of a crawl run's state machine.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageFetching   Stage = "fetching"
	StageFiltering  Stage = "filtering"
	StageScraping   Stage = "scraping"
	StageExtracting Stage = "extracting"
	StagePersisting Stage = "persisting"
	StageNotifying  Stage = "notifying"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// TerminalStage reports whether s ends a run.
func TerminalStage(s Stage) bool {
	return s == StageCompleted || s == StageFailed
}

// CrawlRun is the transient state of the active (or last finished)
// crawl run. It is owned and written exclusively by the orchestrator;
// readers always receive a copy. It is not persisted across restarts.
type CrawlRun struct {
	// RunID uniquely identifies this run
	RunID string `json:"run_id"`
	// IsRunning is true between start and terminal stage
	IsRunning bool `json:"is_running"`
	// Stage the run is currently in
	Stage Stage `json:"stage"`
	// Progress within the current batch operation
	Progress int `json:"progress"`
	// Total size of the current batch operation
	Total int `json:"total"`
	// Message is the last human-readable status line
	Message string `json:"message"`
	// StartedAt is when the run began
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the run reached a terminal stage
	CompletedAt time.Time `json:"completed_at,omitempty"`
	// LastError holds the error text when Stage is failed
	LastError string `json:"last_error,omitempty"`
}
