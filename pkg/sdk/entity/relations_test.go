package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelations_FetchedVersusEmpty(t *testing.T) {
	r := NewRelations()

	assert.False(t, r.Fetched("person"))
	assert.Empty(t, r.Get("person", nil))

	r.Put("person", nil)
	assert.True(t, r.Fetched("person"))
	assert.Empty(t, r.Get("person", nil))
	assert.Equal(t, 0, r.Len("person"))
}

func TestRelations_AppendGroupsByType(t *testing.T) {
	r := NewRelations()
	bob := &person{Base: NewBase("9")}
	ann := &person{Base: NewBase("10")}
	c := &comment{Base: NewBase("c1")}

	r.Append(bob)
	r.Append(c)
	r.Append(ann)

	assert.Equal(t, []Entity{bob, ann}, r.Get("person", nil))
	assert.Equal(t, []Entity{c}, r.Get("comment", nil))
	assert.ElementsMatch(t, []string{"person", "comment"}, r.Types())
}

func TestRelations_PutCopiesList(t *testing.T) {
	r := NewRelations()
	list := []Entity{&person{Base: NewBase("1")}}
	r.Put("person", list)

	list[0] = &person{Base: NewBase("2")}
	assert.Equal(t, "1", MustID(r.First("person", nil)))
}

func TestRelations_GetWithPredicate(t *testing.T) {
	r := NewRelations()
	for _, id := range []string{"1", "2", "3"} {
		r.Append(&person{Base: NewBase(id)})
	}

	got := r.Get("person", func(e Entity) bool { return MustID(e) != "2" })
	require.Len(t, got, 2)
	assert.Equal(t, "1", MustID(got[0]))
	assert.Equal(t, "3", MustID(got[1]))

	assert.Equal(t, "3", MustID(r.First("person", func(e Entity) bool { return MustID(e) == "3" })))
	assert.Nil(t, r.First("person", func(Entity) bool { return false }))
}

func TestRelations_PanickingPredicateSkipsCandidate(t *testing.T) {
	r := NewRelations()
	r.Append(&person{Base: NewBase("1")})
	r.Append(&person{})
	r.Append(&person{Base: NewBase("3")})

	// MustID panics for the id-less candidate; only that one is dropped
	got := r.Get("person", func(e Entity) bool { return MustID(e) != "" })
	assert.Len(t, got, 2)
}

func TestRelations_GetAppendsToDst(t *testing.T) {
	r := NewRelations()
	bob := &person{Base: NewBase("9")}
	r.Append(bob)

	existing := []Entity{&comment{Base: NewBase("c1")}}
	got := r.Get("person", nil, existing...)
	assert.Len(t, got, 2)
	assert.Same(t, bob, got[1])
}

func TestRelations_Clear(t *testing.T) {
	r := NewRelations()
	r.Append(&person{Base: NewBase("9")})
	r.Append(&comment{Base: NewBase("c1")})
	r.Put("article", nil)

	r.Clear("person")
	assert.False(t, r.Fetched("person"))
	assert.True(t, r.Fetched("comment"))

	r.Clear()
	assert.Empty(t, r.Types())
}

func TestGetAs(t *testing.T) {
	r := NewRelations()
	r.Append(&person{Base: NewBase("9")})
	r.Append(&person{Base: NewBase("10")})

	people := GetAs[*person](r, "person", func(p *person) bool { return MustID(p) == "10" })
	require.Len(t, people, 1)
	assert.Equal(t, "10", MustID(people[0]))

	assert.Empty(t, GetAs[*comment](r, "person", nil))
}
