// Package id provides identifier generation for ptyhost.
//
// Two kinds of IDs exist:
//   - Session IDs: random UUIDv4 strings. Their leading characters feed the
//     multiplexer session name, so they must carry entropy from the first byte.
//   - Descriptor IDs: prefixed ULIDs for persisted session descriptors, which
//     sort by creation time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a live terminal session
type SessionID string

// DescriptorID identifies a persisted session descriptor
type DescriptorID string

// DescriptorPrefix marks descriptor IDs in logs and storage.
const DescriptorPrefix = "desc"

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a random session ID
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewDescriptorID generates a new descriptor ID
func NewDescriptorID() DescriptorID {
	return DescriptorID(Default().GenerateWithPrefix(DescriptorPrefix))
}

func (id SessionID) String() string    { return string(id) }
func (id DescriptorID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
