package game

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the process-wide mapping from room id to room (C6). It
// creates rooms on demand and reaps finished ones; listing never blocks
// on a controller (spec.md §4.3).
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Controller

	lib      SongLibrary
	sessions SessionDirectory
	timers   TimerService
	log      zerolog.Logger
	idgen    IDGenerator
	cfg      func() RoomConfiguration
}

func NewRegistry(lib SongLibrary, sessions SessionDirectory, timers TimerService, idgen IDGenerator, defaultConfig func() RoomConfiguration, log zerolog.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]*Controller),
		lib:      lib,
		sessions: sessions,
		timers:   timers,
		idgen:    idgen,
		cfg:      defaultConfig,
		log:      log,
	}
}

// Create mints a fresh room id, starts its controller and registers it.
// Used by the "create room" HTTP route, independent of any WebSocket.
func (r *Registry) Create() *Controller {
	id := r.idgen.Generate()
	return r.insert(id)
}

// GetOrCreate returns the room for id, creating it if this is the first
// time anyone has referenced it (spec.md §4.3's get-or-create
// semantics, used by the WebSocket upgrade path).
func (r *Registry) GetOrCreate(id string) *Controller {
	r.mu.RLock()
	c, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rooms[id]; ok {
		return c
	}
	return r.insertLocked(id)
}

// Get performs a non-creating lookup: unlike GetOrCreate it never spins
// up a room. None of the HTTP routes call it.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rooms[id]
	return c, ok
}

func (r *Registry) insert(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(id)
}

func (r *Registry) insertLocked(id string) *Controller {
	c := NewController(id, r.cfg(), r.lib, r.sessions, r.timers, r.log)
	r.rooms[id] = c
	go c.Run()
	go r.reapWhenDone(id, c)
	return c
}

func (r *Registry) reapWhenDone(id string, c *Controller) {
	<-c.Done()
	r.mu.Lock()
	if current, ok := r.rooms[id]; ok && current == c {
		delete(r.rooms, id)
	}
	r.mu.Unlock()
	r.idgen.Dispose(id)
}

// List returns a snapshot summary of every live room, for "GET /room".
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.rooms))
	for _, c := range r.rooms {
		out = append(out, c.Summary())
	}
	return out
}

// Len reports the number of live rooms; mostly useful for tests/metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
