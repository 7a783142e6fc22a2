package vault

import "fmt"

// APIError is a failed vault call. It carries the response verbatim so an
// operator can diagnose the failure without reproducing the request.
type APIError struct {
	Op         string // human-readable operation name, e.g. "create folder"
	StatusCode int
	Status     string // reason phrase as returned, e.g. "403 Forbidden"
	Body       string // raw response body
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.Body == "" {
		return fmt.Sprintf("vault: %s: %s", e.Op, status)
	}
	return fmt.Sprintf("vault: %s: %s: %s", e.Op, status, e.Body)
}

// AuthError is a failed token exchange. It is fatal: nothing else can run
// without a credential.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return "vault: authentication failed: " + e.Body
	}
	return fmt.Sprintf("vault: authentication failed: HTTP %d: %s", e.StatusCode, e.Body)
}
