package api

const (
	// Generic request/server errors
	CodeInvalidRequest   = "E_INVALID_REQUEST"    // bad or invalid request
	CodeRateLimited      = "E_RATE_LIMITED"       // rate limit exceeded
	CodeInternalError    = "E_INTERNAL_ERROR"     // internal server error
	CodeNotFound         = "E_NOT_FOUND"          // route or resource not found
	CodeMethodNotAllowed = "E_METHOD_NOT_ALLOWED" // route exists with another method

	// Sync errors
	CodeSyncNotRun = "E_SYNC_NOT_RUN" // no sync pass has completed yet
)

// MsgInternalError is the only detail a client sees for upstream failures
const MsgInternalError = "internal server error"
