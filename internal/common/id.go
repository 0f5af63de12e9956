package common

import (
	"github.com/google/uuid"
)

// NewCorrelationID generates a unique id for one tool invocation
// Format: call_<uuid>
func NewCorrelationID() string {
	return "call_" + uuid.New().String()
}
