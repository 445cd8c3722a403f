package entity

import (
	"testing"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleWithAuthor = `{
	"data": {
		"id": "1",
		"type": "article",
		"attributes": {"title": "A"},
		"relationships": {"author": {"data": {"id": "9", "type": "person"}}}
	},
	"included": [{"id": "9", "type": "person", "attributes": {"name": "Bob"}}]
}`

func hydrateRoot(t *testing.T, reg *Registry, target Entity, body string) *Graph {
	t.Helper()
	env := decodeEnvelope(t, body)
	g := NewGraph(reg, wire.NewIndex(env.Included))
	require.NoError(t, g.Hydrate(target, env.Data.Records[0]))
	return g
}

func TestHydrate_EndToEndExample(t *testing.T) {
	reg := testRegistry(t)
	a := &article{}

	hydrateRoot(t, reg, a, articleWithAuthor)

	assert.Equal(t, "1", MustID(a))
	assert.Equal(t, "A", a.Attributes()["title"])

	authors := a.Relations().Get("person", nil)
	require.Len(t, authors, 1)
	assert.IsType(t, &person{}, authors[0])
	assert.Equal(t, "Bob", authors[0].Attributes()["name"])
	assert.Equal(t, "9", MustID(authors[0]))
}

func TestHydrate_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	a := &article{}

	hydrateRoot(t, reg, a, articleWithAuthor)
	firstAttrs := map[string]interface{}(a.Attributes())
	firstAttrsCopy := make(map[string]interface{}, len(firstAttrs))
	for k, v := range firstAttrs {
		firstAttrsCopy[k] = v
	}

	hydrateRoot(t, reg, a, articleWithAuthor)

	assert.Equal(t, firstAttrsCopy, map[string]interface{}(a.Attributes()))
	authors := a.Relations().Get("person", nil)
	require.Len(t, authors, 1, "re-hydration must not duplicate relations")
	assert.Equal(t, "Bob", authors[0].Attributes()["name"])
	assert.Equal(t, []string{"person"}, a.Relations().Types())
}

func TestHydrate_CycleSafety(t *testing.T) {
	reg := testRegistry(t)
	body := `{
		"data": {
			"id": "A", "type": "article",
			"relationships": {"author": {"data": {"id": "B", "type": "person"}}}
		},
		"included": [{
			"id": "B", "type": "person",
			"relationships": {"articles": {"data": [{"id": "A", "type": "article"}]}}
		}]
	}`

	root := &article{}
	g := hydrateRoot(t, reg, root, body)

	assert.Equal(t, 2, g.Len())

	b := root.Relations().First("person", nil)
	require.NotNil(t, b)
	back := b.Relations().Get("article", nil)
	require.Len(t, back, 1)
	assert.Same(t, root, back[0])
}

func TestHydrate_SharedReferenceBuiltOnce(t *testing.T) {
	reg := testRegistry(t)
	body := `{
		"data": {
			"id": "1", "type": "article",
			"relationships": {
				"author": {"data": {"id": "9", "type": "person"}},
				"comments": {"data": [{"id": "c1", "type": "comment"}, {"id": "c2", "type": "comment"}]}
			}
		},
		"included": [
			{"id": "9", "type": "person", "attributes": {"name": "Bob"}},
			{"id": "c1", "type": "comment", "relationships": {"author": {"data": {"id": "9", "type": "person"}}}},
			{"id": "c2", "type": "comment", "relationships": {"author": {"data": {"id": "9", "type": "person"}}}}
		]
	}`

	a := &article{}
	hydrateRoot(t, reg, a, body)

	author := a.Relations().First("person", nil)
	comments := a.Relations().Get("comment", nil)
	require.Len(t, comments, 2)
	for _, c := range comments {
		assert.Same(t, author, c.Relations().First("person", nil))
	}
}

func TestHydrate_ReferenceUnderSeveralNamesListedOnce(t *testing.T) {
	reg := testRegistry(t)
	body := `{
		"data": {
			"id": "1", "type": "article",
			"relationships": {
				"author": {"data": {"id": "9", "type": "person"}},
				"editor": {"data": {"id": "9", "type": "person"}},
				"reviewers": {"data": [{"id": "9", "type": "person"}, {"id": "10", "type": "person"}]}
			}
		},
		"included": [
			{"id": "9", "type": "person", "attributes": {"name": "Bob"}},
			{"id": "10", "type": "person", "attributes": {"name": "Ann"}}
		]
	}`

	a := &article{}
	hydrateRoot(t, reg, a, body)

	people := a.Relations().Get("person", nil)
	require.Len(t, people, 2)
	assert.Equal(t, "9", MustID(people[0]))
	assert.Equal(t, "10", MustID(people[1]))
}

func TestHydrate_TypeMismatchLeavesEntityUntouched(t *testing.T) {
	reg := testRegistry(t)
	a := &article{Base: NewBase("1")}
	a.Attributes()["title"] = "prior"
	bob := &person{Base: NewBase("9")}
	a.Relations().Append(bob)

	err := NewGraph(reg, nil).Hydrate(a, record(t, `{"id":"1","type":"person","attributes":{"name":"x"}}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrTypeMismatch)
	assert.Equal(t, Attributes{"title": "prior"}, a.Attributes())
	assert.Same(t, bob, a.Relations().First("person", nil))
}

func TestHydrate_IDIsImmutable(t *testing.T) {
	a := &article{Base: NewBase("1")}
	a.Attributes()["title"] = "prior"

	err := NewGraph(testRegistry(t), nil).Hydrate(a, record(t, `{"id":"2","type":"article","attributes":{"title":"new"}}`))

	assert.ErrorIs(t, err, ErrIDReassigned)
	assert.Equal(t, "1", MustID(a))
	assert.Equal(t, "prior", a.Attributes()["title"])
}

func TestHydrate_MissingIDIsMalformed(t *testing.T) {
	err := NewGraph(testRegistry(t), nil).Hydrate(&article{}, record(t, `{"type":"article"}`))
	assert.ErrorIs(t, err, apierr.ErrMalformedPayload)

	err = NewGraph(testRegistry(t), nil).Hydrate(&article{}, nil)
	assert.ErrorIs(t, err, apierr.ErrMalformedPayload)
}

func TestHydrate_AttributesReplacedNotMerged(t *testing.T) {
	a := &article{}
	a.Attributes()["stale"] = true

	require.NoError(t, NewGraph(testRegistry(t), nil).Hydrate(a, record(t, `{"id":"1","type":"article","attributes":{"title":"A"}}`)))
	assert.Equal(t, Attributes{"title": "A"}, a.Attributes())
}

func TestHydrate_AbsentAttributesKeepExisting(t *testing.T) {
	a := &article{}
	a.Attributes()["title"] = "kept"

	require.NoError(t, NewGraph(testRegistry(t), nil).Hydrate(a, record(t, `{"id":"1","type":"article"}`)))
	assert.Equal(t, "kept", a.Attributes()["title"])
}

func TestHydrate_ClearsStaleRelations(t *testing.T) {
	a := &article{}
	a.Relations().Put("comment", []Entity{&comment{Base: NewBase("old")}})

	require.NoError(t, NewGraph(testRegistry(t), nil).Hydrate(a, record(t, `{"id":"1","type":"article"}`)))
	assert.False(t, a.Relations().Fetched("comment"))
}

func TestHydrate_ReferenceNotIncludedIsSkipped(t *testing.T) {
	a := &article{}
	rec := record(t, `{"id":"1","type":"article","relationships":{"author":{"data":{"id":"9","type":"person"}}}}`)

	require.NoError(t, NewGraph(testRegistry(t), nil).Hydrate(a, rec))
	assert.False(t, a.Relations().Fetched("person"))
}

func TestHydrate_UnknownTypeSkipsOneRecord(t *testing.T) {
	body := `{
		"data": {
			"id": "1", "type": "article",
			"relationships": {
				"author": {"data": {"id": "9", "type": "person"}},
				"widgets": {"data": [{"id": "w1", "type": "widget"}]}
			}
		},
		"included": [
			{"id": "9", "type": "person", "attributes": {"name": "Bob"}},
			{"id": "w1", "type": "widget"}
		]
	}`
	env := decodeEnvelope(t, body)

	var skipped []*apierr.Error
	g := NewGraph(testRegistry(t), wire.NewIndex(env.Included)).OnSkip(func(err *apierr.Error) {
		skipped = append(skipped, err)
	})

	a := &article{}
	require.NoError(t, g.Hydrate(a, env.Data.Records[0]))

	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], apierr.ErrUnknownType)
	assert.Len(t, a.Relations().Get("person", nil), 1)
	assert.False(t, a.Relations().Fetched("widget"))
}

func TestGraph_Materialize(t *testing.T) {
	env := decodeEnvelope(t, `{
		"data": [
			{"id": "1", "type": "article", "relationships": {"related": {"data": {"id": "2", "type": "article"}}}},
			{"id": "2", "type": "article", "attributes": {"title": "second"}},
			{"id": "3", "type": "widget"}
		]
	}`)
	g := NewGraph(testRegistry(t), wire.NewIndex(env.Included, env.Data.Records))

	first := &article{}
	require.NoError(t, g.Hydrate(first, env.Data.Records[0]))

	second, err := g.Materialize(env.Data.Records[1])
	require.NoError(t, err)
	assert.Same(t, first.Relations().First("article", nil), second)
	assert.Equal(t, "second", second.Attributes()["title"])

	_, err = g.Materialize(env.Data.Records[2])
	assert.ErrorIs(t, err, apierr.ErrUnknownType)
}

func TestHydrate_PackageHelper(t *testing.T) {
	env := decodeEnvelope(t, articleWithAuthor)
	a := &article{}

	require.NoError(t, Hydrate(a, env.Data.Records[0], env.Included, testRegistry(t)))
	assert.Equal(t, 1, a.Relations().Len("person"))
}
