package enums

import "fmt"

// RequestStatus maps to the request_status enum in Postgres.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusFulfilled RequestStatus = "fulfilled"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusFulfilled,
}

// IsValid checks whether the status matches the canonical enum.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether a linked request in this status keeps
// stock in the reserved bucket.
func (s RequestStatus) HoldsReservation() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// IsSettled reports whether the status is terminal.
func (s RequestStatus) IsSettled() bool {
	return s == RequestStatusRejected || s == RequestStatusFulfilled
}

// ParseRequestStatus converts raw strings into RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
