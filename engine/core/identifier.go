package core

import "github.com/google/uuid"

// Identifier names a tracked engine object for its whole lifetime.
type Identifier = uuid.UUID

// InvalidIdentifier is the zero identifier, never handed out.
var InvalidIdentifier = uuid.Nil

// NewIdentifier returns a fresh random identifier.
func NewIdentifier() Identifier {
	return uuid.New()
}

// ShortIdentifier is the first block of the textual form, used in log lines.
func ShortIdentifier(id Identifier) string {
	return id.String()[:8]
}
