package application

import "github.com/google/uuid"

// newID is the default id generator for services.
func newID() string {
	return uuid.NewString()
}
