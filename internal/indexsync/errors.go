package indexsync

import (
	"fmt"
)

// Stage names the step of a sync pass or query that failed
type Stage string

const (
	StageLock     Stage = "lock"
	StageSnapshot Stage = "snapshot"
	StageList     Stage = "list"
	StageFetch    Stage = "fetch"
	StageApply    Stage = "apply"
	StageRefresh  Stage = "refresh"
	StageSearch   Stage = "search"
	StageLinks    Stage = "links"
)

// ValidationError rejects a request before any remote or index work happens
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failure of the remote storage, the extraction service or the index
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(stage Stage, err error) error {
	return &UpstreamError{Stage: stage, Err: err}
}
