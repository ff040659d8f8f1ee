// Package id mints trade identifiers for the journal. Identifiers are
// ULIDs, so rows created within the same millisecond still sort in
// generation order under the journal's primary key.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var gen = newGenerator()

func newGenerator() *generator {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(seed)), 0),
	}
}

// New returns the next trade identifier.
func New() string {
	gen.mu.Lock()
	defer gen.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), gen.entropy).String()
}
