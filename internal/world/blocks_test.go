package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnregisteredIDFallsBackToAir(t *testing.T) {
	reg := DefaultRegistry()
	for id := int(SeaLantern) + 1; id < 256; id++ {
		def := reg.Lookup(BlockID(id))
		assert.Equal(t, Air, def.ID)
		assert.Equal(t, CategoryAir, def.Category)
	}

	var nilReg *Registry
	assert.Equal(t, "air", nilReg.Lookup(Stone).Name)
}

func TestDefaultRegistryCoversConstants(t *testing.T) {
	reg := DefaultRegistry()
	for id := Air; id <= SeaLantern; id++ {
		assert.True(t, reg.Registered(id), "id %d", id)
		assert.Equal(t, id, reg.Lookup(id).ID)
	}
}

func TestReplaceableBlocks(t *testing.T) {
	reg := DefaultRegistry()
	cases := map[BlockID]bool{
		Air:       true,
		Water:     true,
		TallGrass: true,
		OakLeaves: false,
		OakLog:    false,
		Stone:     false,
	}
	for id, want := range cases {
		assert.Equal(t, want, reg.IsReplaceable(id), reg.Lookup(id).Name)
	}
}

func TestOpaque(t *testing.T) {
	reg := DefaultRegistry()
	assert.True(t, reg.Lookup(Stone).Opaque())
	assert.False(t, reg.Lookup(OakLeaves).Opaque())
	assert.False(t, reg.Lookup(Water).Opaque())
	assert.False(t, reg.Lookup(Poppy).Opaque())
}
