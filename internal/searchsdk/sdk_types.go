package searchsdk

import "time"

// Result is one matching file resolved to its shared link
type Result struct {
	Link string `json:"link"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// SyncReport describes one sync pass on the server
type SyncReport struct {
	PassID        string    `json:"pass_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Indexed       int       `json:"indexed"`
	Listed        int       `json:"listed"`
	Excluded      int       `json:"excluded"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	Unchanged     int       `json:"unchanged"`
	FetchedBytes  int64     `json:"fetched_bytes"`
	ExtractFailed int64     `json:"extract_failed"`
	Error         string    `json:"error,omitempty"`
}
