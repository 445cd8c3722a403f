package entity

import (
	"encoding/json"
	"testing"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
	"github.com/stretchr/testify/require"
)

type article struct{ Base }

func (*article) Type() string { return "article" }

type person struct{ Base }

func (*person) Type() string { return "person" }

type comment struct{ Base }

func (*comment) Type() string { return "comment" }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register("article", func() Entity { return &article{} }))
	require.NoError(t, reg.Register("person", func() Entity { return &person{} }))
	require.NoError(t, reg.Register("comment", func() Entity { return &comment{} }))
	return reg
}

func decodeEnvelope(t *testing.T, body string) *wire.Envelope {
	t.Helper()
	env, err := wire.Decode([]byte(body))
	require.NoError(t, err)
	return env
}

func record(t *testing.T, body string) *wire.Record {
	t.Helper()
	var rec wire.Record
	require.NoError(t, json.Unmarshal([]byte(body), &rec))
	return &rec
}
