package domain

import "github.com/google/uuid"

// RequestContext carries the per-request identity that service calls need.
// Handlers build it once from the authenticated token and pass it explicitly;
// nothing in the service layer reads ambient request state.
type RequestContext struct {
	RequestID uuid.UUID
	UserID    int64
}

// NewRequestContext mints a RequestContext with a fresh trace id.
func NewRequestContext(userID int64) RequestContext {
	return RequestContext{RequestID: uuid.New(), UserID: userID}
}
