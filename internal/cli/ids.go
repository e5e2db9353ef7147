package cli

import "github.com/google/uuid"

// IDGenerator produces run IDs that correlate a command's log records with
// its JSON response.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 run IDs.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

func generatorOrDefault(g IDGenerator) IDGenerator {
	if g == nil {
		return UUIDv7Generator{}
	}
	return g
}
