package importer

import (
	"github.com/sells-group/directory-cli/internal/cityname"
	"github.com/sells-group/directory-cli/internal/model"
)

// Outcome tags the result of resolving a city name for one row.
type Outcome int

const (
	// OutcomeMatched means the city already exists and its id is known.
	OutcomeMatched Outcome = iota
	// OutcomePending means the city is queued for batch creation.
	OutcomePending
	// OutcomeRejected means the city is unknown and creation is disabled.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomePending:
		return "pending"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Resolver maps normalized city names to ids for one state and collects
// the names that still need to be created.
type Resolver struct {
	rules   *cityname.Rules
	ids     map[string]string
	pending []string
	queued  map[string]bool
}

// NewResolver indexes the existing cities by normalized name.
func NewResolver(rules *cityname.Rules, cities []model.City) *Resolver {
	r := &Resolver{
		rules:  rules,
		ids:    make(map[string]string, len(cities)),
		queued: make(map[string]bool),
	}
	for _, c := range cities {
		key := rules.Normalize(c.Name)
		if _, ok := r.ids[key]; !ok {
			r.ids[key] = c.ID
		}
	}
	return r
}

// Resolve classifies an already-normalized city name.
func (r *Resolver) Resolve(name string, autoCreate bool) Outcome {
	if _, ok := r.ids[name]; ok {
		return OutcomeMatched
	}
	if !autoCreate {
		return OutcomeRejected
	}
	if !r.queued[name] {
		r.queued[name] = true
		r.pending = append(r.pending, name)
	}
	return OutcomePending
}

// Pending returns the queued names in first-seen order.
func (r *Resolver) Pending() []string {
	return r.pending
}

// Merge records ids for newly created cities.
func (r *Resolver) Merge(cities []model.City) {
	for _, c := range cities {
		r.ids[r.rules.Normalize(c.Name)] = c.ID
	}
}

// Lookup returns the id for a normalized name.
func (r *Resolver) Lookup(name string) (string, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Known returns the number of distinct normalized names with an id.
func (r *Resolver) Known() int {
	return len(r.ids)
}
