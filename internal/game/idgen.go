package game

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints unique ids for rooms and disposes of them once a
// room is reaped, so ids can eventually be recycled by a smarter
// implementation without the registry knowing about it.
type IDGenerator interface {
	Generate() string
	Dispose(id string)
}

// UUIDGenerator is the default IDGenerator: random UUIDs, tracked just
// long enough to guarantee the registry never hands out a live id twice.
type UUIDGenerator struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{ids: make(map[string]struct{})}
}

func (g *UUIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		id := uuid.NewString()
		if _, taken := g.ids[id]; !taken {
			g.ids[id] = struct{}{}
			return id
		}
	}
}

func (g *UUIDGenerator) Dispose(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, id)
}
