package quest

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds every quest definition declared at process start. Names are
// unique; a collision is fatal at registration, not at runtime.
type Registry struct {
	mu     sync.RWMutex
	quests map[string]*Definition
	first  string
	debug  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		quests: make(map[string]*Definition),
	}
}

// Register validates and adds a definition. A duplicate name or a structural
// defect is a DefinitionError.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.quests[def.Name]; exists {
		return &DefinitionError{Quest: def.Name, Reason: "duplicate quest name"}
	}
	r.quests[def.Name] = def
	return nil
}

// RegisterFirst registers def as the entry quest started when a new game
// begins.
func (r *Registry) RegisterFirst(def *Definition) error {
	if err := r.Register(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.first = def.Name
	return nil
}

// RegisterDebug registers def as the internal testing quest. It must carry
// the Reserved difficulty so it stays out of player-visible listings.
func (r *Registry) RegisterDebug(def *Definition) error {
	if def.Difficulty != DifficultyReserved {
		return &DefinitionError{Quest: def.Name, Reason: "debug quest must be reserved difficulty"}
	}
	if err := r.Register(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = def.Name
	return nil
}

// Get returns the definition with the given name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.quests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return def, nil
}

// First returns the entry quest.
func (r *Registry) First() (*Definition, error) {
	r.mu.RLock()
	name := r.first
	r.mu.RUnlock()

	if name == "" {
		return nil, fmt.Errorf("%w: no first quest registered", ErrNotFound)
	}
	return r.Get(name)
}

// Debug returns the internal testing quest.
func (r *Registry) Debug() (*Definition, error) {
	r.mu.RLock()
	name := r.debug
	r.mu.RUnlock()

	if name == "" {
		return nil, fmt.Errorf("%w: no debug quest registered", ErrNotFound)
	}
	return r.Get(name)
}

// Playable returns every definition a player may see, sorted by name.
// Reserved quests are excluded.
func (r *Registry) Playable() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []*Definition
	for _, def := range r.quests {
		if def.Difficulty == DifficultyReserved {
			continue
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}
