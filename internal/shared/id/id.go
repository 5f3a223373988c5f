// Package id generates operation identifiers.
//
// IDs are prefixed ULIDs ("op_01J..."): lexicographically sortable by creation time, so
// log lines for consecutive operations sort in the order the operations started.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OpID identifies one service operation in logs.
type OpID string

// OpPrefix is the prefix of every OpID.
const OpPrefix = "op"

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
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

// NewOpID generates a new operation ID.
func NewOpID() OpID {
	return OpID(Default().GenerateWithPrefix(OpPrefix))
}

func (id OpID) String() string { return string(id) }
