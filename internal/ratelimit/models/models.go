package models

import "time"

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassRead covers lookups, policy reads and quotes.
	ClassRead EndpointClass = "read"
	// ClassWrite covers register, renew and admin mutations.
	ClassWrite EndpointClass = "write"
)

// Limit is the budget of one class: Requests per sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult is the outcome of one admission check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds and only set when Allowed is false.
	RetryAfter int
}

// RateLimitExceededResponse is the API response when rate limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// BucketKey namespaces a client identifier by class.
func BucketKey(class EndpointClass, client string) string {
	return string(class) + ":" + client
}
