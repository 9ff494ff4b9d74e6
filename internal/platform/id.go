package platform

import (
	"github.com/google/uuid"
)

// NewID returns a new random identifier for audit rows and other
// service-generated records.
func NewID() string {
	return uuid.New().String()
}
