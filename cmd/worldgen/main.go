// Command worldgen generates a square of chunks offline, prints their
// summaries and writes preview images.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"voxelworld/internal/config"
	"voxelworld/internal/mesh"
	"voxelworld/internal/preview"
	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("worldgen: %v", err)
	}
}

type options struct {
	cfgPath string
	seed    int64
	radius  int
	mapOut  string
	isoDir  string
	mesh    bool
	workers int
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("worldgen", flag.ContinueOnError)
	fs.StringVar(&opts.cfgPath, "config", "", "configuration file supplying world dimensions")
	fs.Int64Var(&opts.seed, "seed", 0, "world seed, overrides the configured seed when non-zero")
	fs.IntVar(&opts.radius, "radius", 2, "generate chunks within this Chebyshev radius of the origin")
	fs.StringVar(&opts.mapOut, "out", "", "write a top-down PNG map to this path")
	fs.StringVar(&opts.isoDir, "iso", "", "write an isometric PNG of the origin chunk into this directory")
	fs.BoolVar(&opts.mesh, "mesh", false, "mesh every chunk and print geometry counts")
	fs.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "concurrent generation workers")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.radius < 0 {
		return options{}, fmt.Errorf("radius cannot be negative")
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.seed != 0 {
		cfg.World.Seed = opts.seed
	}
	params := cfg.Params()
	registry := world.DefaultRegistry()
	gen := terrain.NewGenerator(params, registry)

	chunks, err := generate(ctx, gen, params.Seed, opts.radius, opts.workers)
	if err != nil {
		return err
	}
	printSummaries(out, params, chunks)

	if opts.mesh {
		if err := printMeshStats(ctx, out, mesh.NewMesher(params, registry), chunks, opts.workers); err != nil {
			return err
		}
	}
	if opts.mapOut != "" {
		if err := preview.SaveMap(chunks, registry, opts.mapOut); err != nil {
			return fmt.Errorf("write map: %w", err)
		}
		fmt.Fprintf(out, "map written to %s\n", opts.mapOut)
	}
	if opts.isoDir != "" {
		origin := chunkAt(chunks, world.ChunkCoord{})
		path, err := preview.SaveChunkPreview(origin, registry, opts.isoDir)
		if err != nil {
			return fmt.Errorf("write chunk preview: %w", err)
		}
		fmt.Fprintf(out, "chunk preview written to %s\n", path)
	}
	return nil
}

// generate builds every chunk within radius of the origin, ordered by
// coordinate.
func generate(ctx context.Context, gen *terrain.Generator, seed int64, radius, workers int) ([]*world.Chunk, error) {
	side := 2*radius + 1
	chunks := make([]*world.Chunk, side*side)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range chunks {
		i := i
		cx := i%side - radius
		cz := i/side - radius
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = gen.Generate(seed, cx, cz)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

func chunkAt(chunks []*world.Chunk, coord world.ChunkCoord) *world.Chunk {
	for _, c := range chunks {
		if c.Coord == coord {
			return c
		}
	}
	return nil
}

func printSummaries(out io.Writer, params world.Params, chunks []*world.Chunk) {
	fmt.Fprintf(out, "seed %d, %d chunks of %dx%dx%d, water level %d\n",
		params.Seed, len(chunks), params.ChunkSize, params.Height, params.ChunkSize, params.WaterLevel)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHUNK\tAVG HEIGHT\tMIN\tMAX\tBIOME\tTREES")
	biomes := make(map[world.DominantBiome]int)
	species := make(map[world.Species]int)
	for _, c := range chunks {
		lo, hi := heightRange(c.HeightMap)
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%d\t%s\t%d\n", c.Coord, c.AverageHeight, lo, hi, c.Biome, len(c.Trees))
		biomes[c.Biome]++
		for _, t := range c.Trees {
			species[t.Species]++
		}
	}
	_ = tw.Flush()

	fmt.Fprintln(out, "biomes:")
	for _, b := range sortedKeys(biomes) {
		fmt.Fprintf(out, "  %-10s %d\n", b, biomes[b])
	}
	if len(species) > 0 {
		fmt.Fprintln(out, "trees:")
		for _, s := range sortedKeys(species) {
			fmt.Fprintf(out, "  %-10s %d\n", s, species[s])
		}
	}
}

func heightRange(heights []int16) (int16, int16) {
	if len(heights) == 0 {
		return 0, 0
	}
	lo, hi := heights[0], heights[0]
	for _, h := range heights[1:] {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	return lo, hi
}

func sortedKeys[K ~uint8](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// printMeshStats meshes each chunk against its generated neighbors. Volumes
// are only read, so they are shared between workers.
func printMeshStats(ctx context.Context, out io.Writer, mesher *mesh.Mesher, chunks []*world.Chunk, workers int) error {
	byCoord := make(map[world.ChunkCoord]*world.Chunk, len(chunks))
	for _, c := range chunks {
		byCoord[c.Coord] = c
	}
	buffers := make([]*mesh.Buffers, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var nb mesh.Neighbors
			for _, d := range world.Directions {
				if n, ok := byCoord[c.Coord.Neighbor(d)]; ok {
					nb.Set(d, n.Volume)
				}
			}
			buffers[i] = mesher.Mesh(c.Volume, nb)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHUNK\tOPAQUE QUADS\tFOLIAGE QUADS\tWATER QUADS\tVERTICES")
	var total int
	for i, c := range chunks {
		b := buffers[i]
		vertices := b.Opaque.VertexCount() + b.Foliage.VertexCount() + b.Water.VertexCount()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", c.Coord, b.Opaque.QuadCount(), b.Foliage.QuadCount(), b.Water.QuadCount(), vertices)
		total += b.QuadCount()
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "total quads: %d\n", total)
	return nil
}
