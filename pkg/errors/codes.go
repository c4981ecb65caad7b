package errors

import "net/http"

// Code is the stable machine readable error identifier returned to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
)

// Metadata is how a code surfaces over HTTP. With ExposeMessage the error's
// own message replaces PublicMessage in the response.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

// clientFacing builds metadata for 4xx codes, whose messages are written for
// the caller and safe to return.
func clientFacing(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, ExposeMessage: true}
}

// Meta resolves the HTTP behaviour of c. Unknown codes behave as
// CodeInternal.
func (c Code) Meta() Metadata {
	switch c {
	case CodeValidation:
		return clientFacing(http.StatusBadRequest, "validation failed", true)
	case CodeUnauthorized:
		return clientFacing(http.StatusUnauthorized, "authentication required", false)
	case CodeForbidden:
		return clientFacing(http.StatusForbidden, "access denied", false)
	case CodeNotFound:
		return clientFacing(http.StatusNotFound, "resource not found", false)
	case CodeConflict:
		return clientFacing(http.StatusConflict, "conflict detected", false)
	case CodeStateConflict:
		return clientFacing(http.StatusUnprocessableEntity, "state transition disallowed", true)
	case CodeIdempotency:
		return clientFacing(http.StatusConflict, "idempotency key reused", true)
	case CodeRateLimit:
		return clientFacing(http.StatusTooManyRequests, "rate limit exceeded", false)
	case CodeInsufficientStock:
		return clientFacing(http.StatusConflict, "insufficient stock", true)
	case CodeConcurrencyConflict:
		return Metadata{HTTPStatus: http.StatusConflict, Retryable: true, PublicMessage: "inventory changed concurrently, retry the request"}
	case CodeDependency:
		return Metadata{HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true}
	}
	return Metadata{HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"}
}

func MetadataFor(code Code) Metadata {
	return code.Meta()
}
