package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"voxelworld/internal/world"
)

const (
	previewTileWidth    = 8
	previewTileHeight   = 4
	previewBlockHeight  = 4
	previewAmbientLight = 0.2
)

var background = color.NRGBA{R: 10, G: 10, B: 18, A: 255}

type blockPreview struct {
	localX  int
	localY  int
	localZ  int
	def     world.BlockDefinition
	screenX int
	screenY int
}

// SaveChunkPreview renders an isometric preview PNG of the chunk's exposed
// voxels into outputDir and returns the file path.
func SaveChunkPreview(chunk *world.Chunk, reg *world.Registry, outputDir string) (string, error) {
	if chunk == nil || chunk.Volume == nil {
		return "", fmt.Errorf("chunk is nil")
	}
	if reg == nil {
		reg = world.DefaultRegistry()
	}
	img, err := RenderChunk(chunk, reg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("chunk_%d_%d.png", chunk.Coord.X, chunk.Coord.Z))
	if err := writePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// RenderChunk draws the isometric view used by SaveChunkPreview.
func RenderChunk(chunk *world.Chunk, reg *world.Registry) (*image.NRGBA, error) {
	dims := chunk.Dims()
	if dims.Size <= 0 || dims.Height <= 0 {
		return nil, fmt.Errorf("invalid chunk dimensions: %+v", dims)
	}

	width := (2*dims.Size)*previewTileWidth/2 + previewTileWidth
	height := (2*dims.Size)*previewTileHeight/2 + dims.Height*previewBlockHeight + previewTileHeight
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	blocks := collectPreviewBlocks(chunk, reg)
	sort.Slice(blocks, func(i, j int) bool {
		bi := blocks[i]
		bj := blocks[j]
		if bi.screenY == bj.screenY {
			if bi.screenX == bj.screenX {
				if bi.localY == bj.localY {
					if bi.localZ == bj.localZ {
						return bi.localX < bj.localX
					}
					return bi.localZ < bj.localZ
				}
				return bi.localY < bj.localY
			}
			return bi.screenX < bj.screenX
		}
		return bi.screenY < bj.screenY
	})

	offsetX := dims.Size * previewTileWidth / 2
	offsetY := dims.Height * previewBlockHeight
	for _, info := range blocks {
		renderBlockPreview(img, offsetX+info.screenX, offsetY+info.screenY, info.def)
	}
	return img, nil
}

// collectPreviewBlocks keeps voxels with at least one face the camera can
// see, which is every face on the +x, +y or +z side.
func collectPreviewBlocks(chunk *world.Chunk, reg *world.Registry) []blockPreview {
	dims := chunk.Dims()
	blocks := make([]blockPreview, 0, dims.Columns()*4)
	hidden := func(x, y, z int) bool {
		if !dims.InBounds(x, y, z) {
			return false
		}
		return reg.Lookup(chunk.Block(x, y, z)).Opaque()
	}
	for x := 0; x < dims.Size; x++ {
		for z := 0; z < dims.Size; z++ {
			for y := 0; y < dims.Height; y++ {
				id := chunk.Block(x, y, z)
				if id == world.Air {
					continue
				}
				if hidden(x+1, y, z) && hidden(x, y+1, z) && hidden(x, y, z+1) {
					continue
				}
				blocks = append(blocks, blockPreview{
					localX:  x,
					localY:  y,
					localZ:  z,
					def:     reg.Lookup(id),
					screenX: (x - z) * previewTileWidth / 2,
					screenY: (x+z)*previewTileHeight/2 - y*previewBlockHeight,
				})
			}
		}
	}
	return blocks
}

func renderBlockPreview(img *image.NRGBA, baseX, baseY int, def world.BlockDefinition) {
	baseColor := resolveBlockColor(def)
	emission := clamp(float64(def.LightLevel)/15, 0, 1)

	topColor := applyLighting(baseColor, previewAmbientLight+0.4+0.6*emission)
	leftColor := applyLighting(baseColor, previewAmbientLight+0.25+0.4*emission)
	rightColor := applyLighting(baseColor, previewAmbientLight+0.15+0.3*emission)

	top := []image.Point{
		{X: baseX, Y: baseY - previewBlockHeight},
		{X: baseX + previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
	}
	if def.Sprite {
		fillPolygon(img, top, topColor)
		return
	}
	left := []image.Point{
		{X: baseX - previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}
	right := []image.Point{
		{X: baseX + previewTileWidth/2, Y: baseY - previewBlockHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewBlockHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX + previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}

	fillPolygon(img, left, leftColor)
	fillPolygon(img, right, rightColor)
	fillPolygon(img, top, topColor)
}

// Map renders a top-down view of chunk summaries, one pixel per column,
// coloured by the top block and shaded by height. Missing chunks stay dark.
func Map(chunks []*world.Chunk, reg *world.Registry) *image.NRGBA {
	if reg == nil {
		reg = world.DefaultRegistry()
	}
	if len(chunks) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	minX, minZ := chunks[0].Coord.X, chunks[0].Coord.Z
	maxX, maxZ := minX, minZ
	for _, c := range chunks[1:] {
		minX, maxX = min(minX, c.Coord.X), max(maxX, c.Coord.X)
		minZ, maxZ = min(minZ, c.Coord.Z), max(maxZ, c.Coord.Z)
	}
	dims := chunks[0].Dims()
	size := dims.Size
	img := image.NewNRGBA(image.Rect(0, 0, (maxX-minX+1)*size, (maxZ-minZ+1)*size))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for _, c := range chunks {
		if len(c.HeightMap) != dims.Columns() || len(c.TopLayer) != dims.Columns() {
			continue
		}
		ox := (c.Coord.X - minX) * size
		oz := (c.Coord.Z - minZ) * size
		for x := 0; x < size; x++ {
			for z := 0; z < size; z++ {
				idx := dims.ColumnIndex(x, z)
				col := resolveBlockColor(reg.Lookup(c.TopLayer[idx]))
				factor := 0.45 + 0.55*float64(c.HeightMap[idx])/float64(dims.Height)
				img.SetNRGBA(ox+x, oz+z, applyLighting(col, factor))
			}
		}
	}
	return img
}

// SaveMap writes Map output to path, creating its directory.
func SaveMap(chunks []*world.Chunk, reg *world.Registry, path string) error {
	return writePNG(path, Map(chunks, reg))
}

func writePNG(path string, img image.Image) error {
	if err := ensurePreviewDir(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func resolveBlockColor(def world.BlockDefinition) color.NRGBA {
	if col, ok := parseHexColor(def.Color); ok {
		return col
	}
	return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
}

func parseHexColor(value string) (color.NRGBA, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return color.NRGBA{}, false
	}
	trimmed = strings.TrimPrefix(trimmed, "#")
	if len(trimmed) != 6 {
		return color.NRGBA{}, false
	}
	r, ok := parseHexByte(trimmed[0:2])
	if !ok {
		return color.NRGBA{}, false
	}
	g, ok := parseHexByte(trimmed[2:4])
	if !ok {
		return color.NRGBA{}, false
	}
	b, ok := parseHexByte(trimmed[4:6])
	if !ok {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, true
}

func parseHexByte(value string) (uint8, bool) {
	if len(value) != 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}

func applyLighting(base color.NRGBA, factor float64) color.NRGBA {
	factor = clamp(factor, 0, 1)
	r := uint8(math.Round(float64(base.R) * factor))
	g := uint8(math.Round(float64(base.G) * factor))
	b := uint8(math.Round(float64(base.B) * factor))
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func fillPolygon(img *image.NRGBA, pts []image.Point, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	minY := pts[0].Y
	maxY := pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	bounds := img.Bounds()
	minY = max(minY, bounds.Min.Y)
	maxY = min(maxY, bounds.Max.Y-1)
	tmp := make([]int, 0, len(pts))
	for y := minY; y <= maxY; y++ {
		tmp = tmp[:0]
		for i := range pts {
			j := (i + 1) % len(pts)
			x1, y1 := pts[i].X, pts[i].Y
			x2, y2 := pts[j].X, pts[j].Y
			if y1 == y2 {
				continue
			}
			if y < min(y1, y2) || y >= max(y1, y2) {
				continue
			}
			tmp = append(tmp, x1+(y-y1)*(x2-x1)/(y2-y1))
		}
		if len(tmp) < 2 {
			continue
		}
		sort.Ints(tmp)
		for i := 0; i+1 < len(tmp); i += 2 {
			xStart, xEnd := tmp[i], tmp[i+1]
			if xEnd < bounds.Min.X || xStart >= bounds.Max.X {
				continue
			}
			xStart = max(xStart, bounds.Min.X)
			xEnd = min(xEnd, bounds.Max.X-1)
			for x := xStart; x <= xEnd; x++ {
				idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
				img.Pix[idx] = col.R
				img.Pix[idx+1] = col.G
				img.Pix[idx+2] = col.B
				img.Pix[idx+3] = col.A
			}
		}
	}
}

func ensurePreviewDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	return os.MkdirAll(dir, 0o755)
}
