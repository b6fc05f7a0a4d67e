package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

type idGeneratorKind int

const (
	idGeneratorUnset idGeneratorKind = iota
	idGeneratorSequential
	idGeneratorXID
)

var idGeneratorMutex sync.Mutex
var idGeneratorInUse idGeneratorKind
var idGenerator IDGenerator

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// UseSequentialIDGenerator configures the ID generator to generate IDs in
// sequential. Sequential IDs keep replayed runs comparable. Selecting the
// generator kind already in use is a no-op.
func UseSequentialIDGenerator() {
	useIDGenerator(idGeneratorSequential)
}

// UseXIDGenerator configures the ID generator to generate globally unique
// xid strings. The IDs generated will not be deterministic anymore.
func UseXIDGenerator() {
	useIDGenerator(idGeneratorXID)
}

func useIDGenerator(kind idGeneratorKind) {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInUse == kind {
		return
	}

	if idGeneratorInUse != idGeneratorUnset {
		log.Panic("cannot change id generator type after using it")
	}

	switch kind {
	case idGeneratorSequential:
		idGenerator = &sequentialIDGenerator{}
	case idGeneratorXID:
		idGenerator = &xidGenerator{}
	}

	idGeneratorInUse = kind
}

// GetIDGenerator returns the ID generator used in the current simulation.
// The sequential generator is the default.
func GetIDGenerator() IDGenerator {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInUse == idGeneratorUnset {
		idGenerator = &sequentialIDGenerator{}
		idGeneratorInUse = idGeneratorSequential
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)
	return id
}

type xidGenerator struct {
}

func (g xidGenerator) Generate() string {
	return xid.New().String()
}
