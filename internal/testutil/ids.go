package testutil

// FixedIDGenerator generates the same run ID every time.
//
// The CLI stamps every response with a run ID; swapping in a fixed one makes
// command output byte-identical across runs so it can be compared verbatim.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed run ID generator.
// If id is empty, Generate() returns "test-run-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements cli.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
