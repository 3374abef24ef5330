// Package id generates the identifiers attached to descriptors and probe
// runs.
//
// IDs are prefixed ULIDs ("fd_01J...", "run_01J..."): sortable by creation
// time and easy to pick out of logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DescriptorID identifies one Descriptor instance
type DescriptorID string

// RunID identifies one fdprobe run
type RunID string

const (
	DescriptorPrefix = "fd"
	RunPrefix        = "run"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
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

// NewDescriptorID generates a new descriptor ID
func NewDescriptorID() DescriptorID {
	return DescriptorID(Default().GenerateWithPrefix(DescriptorPrefix))
}

// NewRunID generates a new probe run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

func (id DescriptorID) String() string { return string(id) }
func (id RunID) String() string        { return string(id) }

// Time returns the creation time encoded in the ID, or the zero time if the
// ID is malformed
func (id DescriptorID) Time() time.Time {
	t, err := Timestamp(string(id))
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID, with or without a prefix
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from an ID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
