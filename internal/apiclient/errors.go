package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

const maxErrorBody = 512

// StatusError is returned when the remote API answered with a non-2xx status
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// HandleError folds the transport error and the response status into a single error.
func HandleError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("%s: http request: %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return nil
}

// IsStatus reports whether err is a StatusError with the given status code
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == code
	}
	return false
}

// IsNotFound reports whether err is a 404 StatusError
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
