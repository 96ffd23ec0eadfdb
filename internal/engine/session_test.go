package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("s1", "s2")

	assert.Equal(t, "s1", g.Generate())
	assert.Equal(t, "s2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestEngine_SessionFromGenerator(t *testing.T) {
	f := newFixture(t, WithSessionGenerator(NewFixedGenerator("fixed-1")))

	assert.Equal(t, "fixed-1", f.e.Session().ID)
	f.process()
	assert.Equal(t, "fixed-1", f.journal.Cycles()[0].Session)
}
