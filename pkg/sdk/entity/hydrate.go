package entity

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
)

// Graph materialises the records of one response into linked entities.
// It owns the construction cache for that response: every entity built or
// hydrated is recorded by type and id before its relations are walked, so a
// record referenced twice (or cyclically) resolves to a single instance.
// A Graph is used by one request and then discarded.
type Graph struct {
	registry *Registry
	included wire.Index
	built    map[wire.Key]Entity
	onSkip   func(*apierr.Error)
}

// NewGraph creates a graph over the given included index. A nil registry
// falls back to DefaultRegistry.
func NewGraph(registry *Registry, included wire.Index) *Graph {
	if registry == nil {
		registry = DefaultRegistry
	}
	if included == nil {
		included = wire.Index{}
	}
	return &Graph{
		registry: registry,
		included: included,
		built:    make(map[wire.Key]Entity),
	}
}

// OnSkip sets the hook invoked for every record skipped during the walk,
// e.g. because its type is not registered
func (g *Graph) OnSkip(fn func(*apierr.Error)) *Graph {
	g.onSkip = fn
	return g
}

// Cached returns the instance already materialised for a record identity
func (g *Graph) Cached(key wire.Key) (Entity, bool) {
	e, ok := g.built[key]
	return e, ok
}

// Len returns the number of instances in the construction cache
func (g *Graph) Len() int {
	return len(g.built)
}

// Hydrate fills target from rec and resolves its relations against the
// included index. A type mismatch fails before target is touched.
func (g *Graph) Hydrate(target Entity, rec *wire.Record) error {
	if err := checkRecord(target, rec); err != nil {
		return err
	}

	if _, ok := g.built[rec.Key()]; !ok {
		g.built[rec.Key()] = target
	}
	g.fill(target, rec)
	return nil
}

// Materialize returns the instance for rec, constructing and hydrating a new
// one through the registry unless the record was already materialised
func (g *Graph) Materialize(rec *wire.Record) (Entity, error) {
	if e, ok := g.built[rec.Key()]; ok {
		return e, nil
	}

	e, ok := g.registry.NewInstance(rec.Type)
	if !ok {
		return nil, unknownType(rec.Type, rec.ID)
	}
	if err := g.Hydrate(e, rec); err != nil {
		return nil, err
	}
	return e, nil
}

func (g *Graph) fill(target Entity, rec *wire.Record) {
	base := target.core()

	base.Relations().Clear()
	// checkRecord guarantees the id is either unset or equal
	_ = base.assignID(rec.ID)
	if rec.Attributes != nil {
		base.replaceAttributes(rec.Attributes)
	}

	names := make([]string, 0, len(rec.Relationships))
	for name := range rec.Relationships {
		names = append(names, name)
	}
	sort.Strings(names)

	// an entity referenced under several relationship names is listed once
	seen := make(map[wire.Key]bool)
	for _, name := range names {
		for _, ref := range rec.Relationships[name].References {
			if seen[ref.Key()] {
				continue
			}
			if related := g.resolve(ref); related != nil {
				seen[ref.Key()] = true
				base.Relations().Append(related)
			}
		}
	}
}

// resolve returns the instance for a reference, or nil when the reference
// cannot be materialised
func (g *Graph) resolve(ref wire.Reference) Entity {
	if ref.ID == "" || ref.Type == "" {
		return nil
	}
	if e, ok := g.built[ref.Key()]; ok {
		return e
	}

	// Relations that were not expanded into the included set stay unresolved
	rec, ok := g.included.Lookup(ref)
	if !ok {
		return nil
	}

	e, ok := g.registry.NewInstance(ref.Type)
	if !ok {
		g.skip(unknownType(ref.Type, ref.ID))
		return nil
	}

	g.built[ref.Key()] = e
	if err := checkRecord(e, rec); err != nil {
		delete(g.built, ref.Key())
		g.skip(apierr.From(err))
		return nil
	}
	g.fill(e, rec)
	return e
}

func (g *Graph) skip(err *apierr.Error) {
	if g.onSkip != nil {
		g.onSkip(err)
	}
}

func checkRecord(target Entity, rec *wire.Record) error {
	if rec == nil {
		return apierr.New(apierr.KindMalformedPayload, "Runtime Error", "runtime tried to hydrate from an empty record")
	}
	if target.Type() != rec.Type {
		return apierr.Newf(apierr.KindTypeMismatch, "Runtime Error",
			"type mismatch, cannot set %s from data type %s", target.Type(), rec.Type)
	}
	if rec.ID == "" {
		return apierr.Newf(apierr.KindMalformedPayload, "Runtime Error",
			"record of type %s has no id", rec.Type)
	}
	if base := target.core(); base.HasID() && base.id != rec.ID {
		return apierr.Wrap(apierr.KindRuntime, ErrIDReassigned, "Runtime Error",
			fmt.Sprintf("cannot hydrate %s %s from record %s", target.Type(), base.id, rec.ID))
	}
	return nil
}

func unknownType(typeKey, id string) *apierr.Error {
	return apierr.Newf(apierr.KindUnknownType, "Runtime Error",
		"runtime could not create a new instance of object type %s (id %s)", typeKey, id)
}

// Hydrate fills a single entity from a record using a fresh graph over included
func Hydrate(target Entity, rec *wire.Record, included []*wire.Record, registry *Registry) error {
	return NewGraph(registry, wire.NewIndex(included)).Hydrate(target, rec)
}
