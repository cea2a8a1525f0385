package world

// BlockID is the per-voxel identifier stored in chunk volumes.
type BlockID uint8

const (
	Air BlockID = iota
	Stone
	Dirt
	Grass
	Sand
	Gravel
	Bedrock
	Water
	Snow
	Ice
	Sandstone
	RedSand
	RedSandstone
	Terracotta
	Clay
	OakLog
	OakLeaves
	SpruceLog
	SpruceLeaves
	JungleLog
	JungleLeaves
	AcaciaLog
	AcaciaLeaves
	BirchLog
	BirchLeaves
	Cactus
	DeadBush
	TallGrass
	Fern
	Poppy
	Dandelion
	BlueOrchid
	Seagrass
	SeaLantern
)

// Category groups blocks by how generation and meshing treat them.
type Category uint8

const (
	CategoryAir Category = iota
	CategoryTerrain
	CategoryFluid
	CategoryLog
	CategoryLeaves
	CategoryPlant
	CategoryLight
)

func (c Category) String() string {
	switch c {
	case CategoryAir:
		return "air"
	case CategoryTerrain:
		return "terrain"
	case CategoryFluid:
		return "fluid"
	case CategoryLog:
		return "log"
	case CategoryLeaves:
		return "leaves"
	case CategoryPlant:
		return "plant"
	case CategoryLight:
		return "light"
	default:
		return "unknown"
	}
}

// Tiles holds atlas tile indices for the three face groups of a cube.
type Tiles struct {
	Top    int
	Side   int
	Bottom int
}

func uniform(tile int) Tiles {
	return Tiles{Top: tile, Side: tile, Bottom: tile}
}

// BlockDefinition is the static description of one block id.
type BlockDefinition struct {
	ID          BlockID
	Name        string
	Category    Category
	Solid       bool
	Transparent bool
	Fluid       bool
	Sprite      bool
	LightLevel  int
	Tiles       Tiles
	Color       string
	// Rotatable allows side faces to take a hashed UV rotation.
	Rotatable bool
}

// Opaque reports whether the block fully hides whatever is behind it.
func (d BlockDefinition) Opaque() bool {
	return d.Solid && !d.Transparent && !d.Fluid && !d.Sprite
}

// Registry is an immutable id to definition table. The zero value resolves
// every id to air.
type Registry struct {
	defs [256]BlockDefinition
	set  [256]bool
}

var airDefinition = BlockDefinition{ID: Air, Name: "air", Category: CategoryAir, Transparent: true, Color: "#000000"}

// NewRegistry builds a registry from the provided definitions. Later
// definitions with the same id replace earlier ones. Air is always present.
func NewRegistry(defs []BlockDefinition) *Registry {
	r := &Registry{}
	r.defs[Air] = airDefinition
	r.set[Air] = true
	for _, def := range defs {
		r.defs[def.ID] = def
		r.set[def.ID] = true
	}
	return r
}

// Lookup returns the definition for id, falling back to air for unknown ids.
func (r *Registry) Lookup(id BlockID) BlockDefinition {
	if r == nil || !r.set[id] {
		return airDefinition
	}
	return r.defs[id]
}

// Registered reports whether id has its own definition.
func (r *Registry) Registered(id BlockID) bool {
	return r != nil && r.set[id]
}

func (r *Registry) IsAir(id BlockID) bool {
	return r.Lookup(id).Category == CategoryAir
}

func (r *Registry) IsLeaves(id BlockID) bool {
	return r.Lookup(id).Category == CategoryLeaves
}

func (r *Registry) IsLog(id BlockID) bool {
	return r.Lookup(id).Category == CategoryLog
}

func (r *Registry) IsFluid(id BlockID) bool {
	return r.Lookup(id).Fluid
}

// IsReplaceable reports whether decoration writes may overwrite id
// unconditionally: air, fluids and non-leaf plants.
func (r *Registry) IsReplaceable(id BlockID) bool {
	def := r.Lookup(id)
	switch def.Category {
	case CategoryAir, CategoryFluid, CategoryPlant:
		return true
	}
	return def.Fluid
}

// DefaultRegistry returns the built-in block set. Tile indices refer to a
// 16x16 atlas.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultBlocks())
}

// DefaultBlocks enumerates the built-in block definitions.
func DefaultBlocks() []BlockDefinition {
	return []BlockDefinition{
		{ID: Stone, Name: "stone", Category: CategoryTerrain, Solid: true, Tiles: uniform(1), Color: "#7d7d7d", Rotatable: true},
		{ID: Dirt, Name: "dirt", Category: CategoryTerrain, Solid: true, Tiles: uniform(2), Color: "#8b5a2b", Rotatable: true},
		{ID: Grass, Name: "grass", Category: CategoryTerrain, Solid: true, Tiles: Tiles{Top: 0, Side: 3, Bottom: 2}, Color: "#5d9b3d"},
		{ID: Sand, Name: "sand", Category: CategoryTerrain, Solid: true, Tiles: uniform(4), Color: "#dbcf8e", Rotatable: true},
		{ID: Gravel, Name: "gravel", Category: CategoryTerrain, Solid: true, Tiles: uniform(5), Color: "#857b76", Rotatable: true},
		{ID: Bedrock, Name: "bedrock", Category: CategoryTerrain, Solid: true, Tiles: uniform(6), Color: "#3a3a3a", Rotatable: true},
		{ID: Water, Name: "water", Category: CategoryFluid, Transparent: true, Fluid: true, Tiles: uniform(7), Color: "#3f76e4"},
		{ID: Snow, Name: "snow", Category: CategoryTerrain, Solid: true, Tiles: uniform(8), Color: "#f5fbff"},
		{ID: Ice, Name: "ice", Category: CategoryTerrain, Solid: true, Transparent: true, Tiles: uniform(9), Color: "#9fc3f7"},
		{ID: Sandstone, Name: "sandstone", Category: CategoryTerrain, Solid: true, Tiles: Tiles{Top: 10, Side: 11, Bottom: 10}, Color: "#d8cb96"},
		{ID: RedSand, Name: "red_sand", Category: CategoryTerrain, Solid: true, Tiles: uniform(12), Color: "#be6621", Rotatable: true},
		{ID: RedSandstone, Name: "red_sandstone", Category: CategoryTerrain, Solid: true, Tiles: Tiles{Top: 13, Side: 14, Bottom: 13}, Color: "#b5621f"},
		{ID: Terracotta, Name: "terracotta", Category: CategoryTerrain, Solid: true, Tiles: uniform(15), Color: "#985e43"},
		{ID: Clay, Name: "clay", Category: CategoryTerrain, Solid: true, Tiles: uniform(16), Color: "#a0a6b3", Rotatable: true},
		{ID: OakLog, Name: "oak_log", Category: CategoryLog, Solid: true, Tiles: Tiles{Top: 18, Side: 17, Bottom: 18}, Color: "#6b5232"},
		{ID: OakLeaves, Name: "oak_leaves", Category: CategoryLeaves, Solid: true, Transparent: true, Tiles: uniform(19), Color: "#3f8f2f"},
		{ID: SpruceLog, Name: "spruce_log", Category: CategoryLog, Solid: true, Tiles: Tiles{Top: 21, Side: 20, Bottom: 21}, Color: "#3d2b1a"},
		{ID: SpruceLeaves, Name: "spruce_leaves", Category: CategoryLeaves, Solid: true, Transparent: true, Tiles: uniform(22), Color: "#2e5e3a"},
		{ID: JungleLog, Name: "jungle_log", Category: CategoryLog, Solid: true, Tiles: Tiles{Top: 24, Side: 23, Bottom: 24}, Color: "#5a4a24"},
		{ID: JungleLeaves, Name: "jungle_leaves", Category: CategoryLeaves, Solid: true, Transparent: true, Tiles: uniform(25), Color: "#2f9e1f"},
		{ID: AcaciaLog, Name: "acacia_log", Category: CategoryLog, Solid: true, Tiles: Tiles{Top: 27, Side: 26, Bottom: 27}, Color: "#676157"},
		{ID: AcaciaLeaves, Name: "acacia_leaves", Category: CategoryLeaves, Solid: true, Transparent: true, Tiles: uniform(28), Color: "#7b9c2a"},
		{ID: BirchLog, Name: "birch_log", Category: CategoryLog, Solid: true, Tiles: Tiles{Top: 30, Side: 29, Bottom: 30}, Color: "#d7d3c3"},
		{ID: BirchLeaves, Name: "birch_leaves", Category: CategoryLeaves, Solid: true, Transparent: true, Tiles: uniform(31), Color: "#80a755"},
		{ID: Cactus, Name: "cactus", Category: CategoryPlant, Solid: true, Transparent: true, Tiles: Tiles{Top: 33, Side: 32, Bottom: 33}, Color: "#5a8a2a"},
		{ID: DeadBush, Name: "dead_bush", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(34), Color: "#8a6a3a"},
		{ID: TallGrass, Name: "tall_grass", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(35), Color: "#6fae3f"},
		{ID: Fern, Name: "fern", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(36), Color: "#4f8f35"},
		{ID: Poppy, Name: "poppy", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(37), Color: "#d32f2f"},
		{ID: Dandelion, Name: "dandelion", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(38), Color: "#f4d03f"},
		{ID: BlueOrchid, Name: "blue_orchid", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(39), Color: "#35a7d8"},
		{ID: Seagrass, Name: "seagrass", Category: CategoryPlant, Transparent: true, Sprite: true, Tiles: uniform(40), Color: "#2f7f4f"},
		{ID: SeaLantern, Name: "sea_lantern", Category: CategoryLight, Solid: true, LightLevel: 15, Tiles: uniform(41), Color: "#cde3dc"},
	}
}
