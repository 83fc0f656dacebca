package uid

import "github.com/google/uuid"

// New generates a random (v4) identifier.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id is a UUID in canonical form.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
