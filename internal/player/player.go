// Package player holds player records: identity, homeworld, resource
// stocks, mine levels, and the homeworld build queue.
package player

import (
	"time"

	"github.com/google/uuid"

	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Build job kinds accepted on the homeworld command channel.
const (
	BuildMine     = "mine"
	BuildShip     = "ship"
	BuildResearch = "research"
)

// BuildJob is one queued homeworld construction task.
type BuildJob struct {
	ID       uint64 `json:"id"`
	Kind     string `json:"kind"`
	Resource int    `json:"resource,omitempty"` // mine jobs: which mine to level
	Class    string `json:"class,omitempty"`    // ship jobs: class name
	DoneTick uint64 `json:"done_tick"`
}

// Player is one registered participant.
type Player struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Homeworld universe.HexCoord `json:"homeworld"`

	// Stocks is the homeworld resource stockpile, fed by passive mine
	// production and fleet deliveries.
	Stocks [universe.NumResources]float64 `json:"stocks"`

	// MineLevels drive passive production per resource.
	MineLevels [universe.NumResources]int `json:"mine_levels"`

	ResearchLevel int        `json:"research_level"`
	BuildQueue    []BuildJob `json:"build_queue,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	nextJobID uint64
}

// QueueJob appends a build job and returns it.
func (p *Player) QueueJob(kind string, resource int, class string, doneTick uint64) BuildJob {
	p.nextJobID++
	job := BuildJob{
		ID:       p.nextJobID,
		Kind:     kind,
		Resource: resource,
		Class:    class,
		DoneTick: doneTick,
	}
	p.BuildQueue = append(p.BuildQueue, job)
	return job
}

// CancelJob removes a queued job by id. Returns false when absent.
func (p *Player) CancelJob(id uint64) bool {
	for i, job := range p.BuildQueue {
		if job.ID == id {
			p.BuildQueue = append(p.BuildQueue[:i], p.BuildQueue[i+1:]...)
			return true
		}
	}
	return false
}

// Registry owns all player records.
type Registry struct {
	players map[string]*Player
	byName  map[string]string // name → id

	dirty map[string]bool
}

// NewRegistry creates an empty player registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
		byName:  make(map[string]string),
	}
}

// Create registers a new player with starting mine levels.
func (r *Registry) Create(name string, homeworld universe.HexCoord) *Player {
	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		Homeworld: homeworld,
		CreatedAt: time.Now().UTC(),
	}
	for i := range p.MineLevels {
		p.MineLevels[i] = 1
	}
	r.players[p.ID] = p
	r.byName[name] = p.ID
	r.MarkDirty(p.ID)
	return p
}

// Install places a loaded player into the registry during boot.
func (r *Registry) Install(p *Player) {
	r.players[p.ID] = p
	r.byName[p.Name] = p.ID
	for _, job := range p.BuildQueue {
		if job.ID > p.nextJobID {
			p.nextJobID = job.ID
		}
	}
}

// Get returns a player by id, or nil.
func (r *Registry) Get(id string) *Player {
	return r.players[id]
}

// GetByName returns a player by display name, or nil.
func (r *Registry) GetByName(name string) *Player {
	if id, ok := r.byName[name]; ok {
		return r.players[id]
	}
	return nil
}

// All returns every registered player.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	return len(r.players)
}

// MarkDirty queues a player for the next persistence batch.
func (r *Registry) MarkDirty(id string) {
	if r.dirty == nil {
		r.dirty = make(map[string]bool)
	}
	r.dirty[id] = true
}

// TakeDirty returns players awaiting persistence and clears the queue.
func (r *Registry) TakeDirty() []*Player {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make([]*Player, 0, len(r.dirty))
	for id := range r.dirty {
		if p, ok := r.players[id]; ok {
			out = append(out, p)
		}
	}
	r.dirty = nil
	return out
}
