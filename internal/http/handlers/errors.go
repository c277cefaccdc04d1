// Package handlers defines the error codes returned in ErrorResponse.Code.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Dispatcher-specific:
	ErrCodeOrderRejected = "order_rejected"   // validation refused the order
	ErrCodeUnavailable   = "unavailable"      // the command queue is closed
	ErrCodeTimeout       = "dispatch_timeout" // no reply before the request deadline
)
