// Package uid generates DICOM unique identifiers
package uid

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/handlers"
)

// MaxLength of a UI value
const MaxLength = 64

// UUIDRoot prefixes UIDs derived from a UUID (PS3.5 B.2)
const UUIDRoot = "2.25"

// Generator hands out UIDs
type Generator interface {
	UID() (string, error)
}

// UUIDGenerator derives each UID from a random version 4 UUID
type UUIDGenerator struct{}

func (UUIDGenerator) UID() (string, error) {
	return FromUUID(uuid.New())
}

// FromUUID renders u as 2.25.<u as a decimal integer>
func FromUUID(u uuid.UUID) (string, error) {
	n := new(big.Int).SetBytes(u[:])
	return finish(UUIDRoot + "." + n.String())
}

// New returns a UUID derived UID, panicking only if the UUID source fails
func New() string {
	u, err := UUIDGenerator{}.UID()
	if err != nil {
		panic(err)
	}
	return u
}

// Hash derives a stable UID from the JSON form of value, so the same input
// always maps to the same UID
func Hash(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", dcmerr.New(dcmerr.DataHandlerInvalidData, "hashing %T: %v", value, err)
	}
	sum := md5.Sum(raw)
	u, err := uuid.FromBytes(sum[:])
	if err != nil {
		return "", dcmerr.New(dcmerr.DataHandlerInvalidData, "hashing %T: %v", value, err)
	}
	return FromUUID(u)
}

// SerialGenerator builds root.department.model.serial.time.counter UIDs for
// a device that owns a registered root
type SerialGenerator struct {
	mu       sync.Mutex
	prefix   string
	lastTime string
	counter  uint32
	now      func() time.Time
}

// NewSerialGenerator validates root and fixes the device part of the UIDs
func NewSerialGenerator(root string, departmentID, modelID, serial uint32) (*SerialGenerator, error) {
	prefix, err := handlers.NormalizeUID(fmt.Sprintf("%s.%d.%d.%d", strings.TrimSuffix(root, "."), departmentID, modelID, serial))
	if err != nil {
		return nil, err
	}
	return &SerialGenerator{prefix: prefix, now: time.Now}, nil
}

// NewRandomGenerator is a SerialGenerator whose serial is random, for
// devices without a serial number
func NewRandomGenerator(root string, departmentID, modelID uint32) (*SerialGenerator, error) {
	return NewSerialGenerator(root, departmentID, modelID, rand.Uint32())
}

func (g *SerialGenerator) UID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	stamp := g.now().UTC().Format("20060102150405")
	if stamp != g.lastTime {
		g.lastTime = stamp
		g.counter = 0
	}
	g.counter++
	return finish(fmt.Sprintf("%s.%s.%d", g.prefix, stamp, g.counter))
}

func finish(u string) (string, error) {
	n, err := handlers.NormalizeUID(u)
	if err != nil {
		return "", err
	}
	if len(n) > MaxLength {
		return "", dcmerr.New(dcmerr.DataHandlerInvalidData, "uid %q longer than %d characters", n, MaxLength)
	}
	return n, nil
}
