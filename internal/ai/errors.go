package ai

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept on APIError.
const maxErrorBody = 4 << 10

// APIError captures error details from a vendor HTTP response.
type APIError struct {
	Service    string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s api error: %s", e.Service, e.Status)
	}
	return fmt.Sprintf("%s api error: %s: %s", e.Service, e.Status, e.Body)
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
}

// newAPIError drains and closes resp.Body.
func newAPIError(service string, resp *http.Response) *APIError {
	defer resp.Body.Close()
	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(errBody)),
	}
}
