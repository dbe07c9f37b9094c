package perception

import "sync"

// Tier identifies the search stage that produced an observation.
type Tier string

// Search tiers, cheapest first. A tracker tries them in order and the
// first tier to clear its threshold wins.
const (
	// TierHeuristic is a match inside the ROI around the last known position.
	TierHeuristic Tier = "heuristic"

	// TierPyramid is a coarse match on the downscaled frame, refined at
	// full resolution.
	TierPyramid Tier = "pyramid"

	// TierFullScan is an exhaustive full-resolution match.
	TierFullScan Tier = "full_scan"

	// TierNotFound means no tier cleared its threshold this cycle.
	TierNotFound Tier = "not_found"
)

// Observation is the result of tracking one template for one cycle.
//
// Observations are value types and are replaced wholesale on every cycle;
// they are never partially merged. When Found is false, X/Y/Score carry
// zero values and Tier is TierNotFound.
type Observation struct {
	// Name of the template this observation belongs to.
	Name string `json:"name"`

	// X, Y are the top-left screen coordinates of the match.
	X int `json:"x"`
	Y int `json:"y"`

	// Width, Height are the template dimensions at full resolution.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Found reports whether the template was located this cycle.
	Found bool `json:"found"`

	// Score is the normalized match score in [0,1]; higher is better.
	Score float64 `json:"score"`

	// Tier identifies which search stage produced this observation.
	Tier Tier `json:"tier"`
}

// Store is a thread-safe table of the most recent observation per template.
//
// One Store exists per process. It is constructed in the entry point and
// injected into the tracking service (writer) and the script runner
// (reader) — there is no package-level instance.
type Store struct {
	mu       sync.Mutex
	entities map[string]Observation
}

// NewStore creates an empty perception store.
func NewStore() *Store {
	return &Store{
		entities: make(map[string]Observation),
	}
}

// Update replaces the observation for obs.Name in full.
// Stale data persists only as the last successful observation until it is
// overwritten or marked not-found by a later cycle.
func (s *Store) Update(obs Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[obs.Name] = obs
}

// Get returns the current observation for a template name.
// The second return value is false if the template has never been observed.
func (s *Store) Get(name string) (Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.entities[name]
	return obs, ok
}

// All returns a copy of every observation, found or not.
// The returned map is owned by the caller; mutating it never affects the store.
func (s *Store) All() map[string]Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Observation, len(s.entities))
	for name, obs := range s.entities {
		out[name] = obs
	}
	return out
}

// Found returns a copy of the observations whose template is currently
// visible on screen. Policies read through this method.
func (s *Store) Found() map[string]Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Observation)
	for name, obs := range s.entities {
		if obs.Found {
			out[name] = obs
		}
	}
	return out
}

// Len returns the number of templates that have been observed at least once.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}
