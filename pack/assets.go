package pack

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/Tnze/go-mc/nbt"

	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Path conventions of the typed helpers. The store itself never inspects
// suffixes.
const (
	suffixJSON      = ".json"
	suffixPNG       = ".png"
	suffixAnimation = ".png.mcmeta"
	suffixNBT       = ".nbt"
)

// Tag is the content of a data pack tag file.
type Tag struct {
	Replace bool     `json:"replace"`
	Values  []string `json:"values"`
}

// AddAsset stores raw bytes in the client assets section.
func (p *Pack) AddAsset(id resource.ID, data []byte) ([]byte, error) {
	return p.Put(resource.ClientAssets, id, data)
}

// AddData stores raw bytes in the server data section.
func (p *Pack) AddData(id resource.ID, data []byte) ([]byte, error) {
	return p.Put(resource.ServerData, id, data)
}

// AddModel stores a model as assets/<ns>/models/<path>.json.
func (p *Pack) AddModel(id resource.ID, model any) ([]byte, error) {
	return p.PutJSON(resource.ClientAssets, fix(id, "models/", suffixJSON), model)
}

// AddBlockState stores a blockstate as assets/<ns>/blockstates/<path>.json.
func (p *Pack) AddBlockState(id resource.ID, state any) ([]byte, error) {
	return p.PutJSON(resource.ClientAssets, fix(id, "blockstates/", suffixJSON), state)
}

// AddAnimation stores texture animation metadata as
// assets/<ns>/textures/<path>.png.mcmeta.
func (p *Pack) AddAnimation(id resource.ID, animation any) ([]byte, error) {
	return p.PutJSON(resource.ClientAssets, fix(id, "textures/", suffixAnimation), animation)
}

// AddTexture encodes img as PNG and stores it as
// assets/<ns>/textures/<path>.png.
func (p *Pack) AddTexture(id resource.ID, img image.Image) ([]byte, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode texture %s: %w", id, err)
	}
	return p.Put(resource.ClientAssets, fix(id, "textures/", suffixPNG), data)
}

// AddRecoloredTexture recolours src on the worker pool, pixel by pixel, and
// stores the result as an async texture entry.
func (p *Pack) AddRecoloredTexture(ctx context.Context, id resource.ID, src image.Image, recolor func(color.Color) color.Color) (*worker.Future[[]byte], error) {
	if src == nil || recolor == nil {
		return nil, fmt.Errorf("%w: recolored texture %s needs a source and a mapping", resource.ErrInvalidID, id)
	}
	return p.PutAsync(ctx, resource.ClientAssets, fix(id, "textures/", suffixPNG), func(context.Context) ([]byte, error) {
		bounds := src.Bounds()
		dst := image.NewNRGBA(bounds)
		draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				dst.Set(x, y, recolor(dst.At(x, y)))
			}
		}
		return encodePNG(dst)
	})
}

// AddLootTable stores a loot table as data/<ns>/loot_tables/<path>.json.
func (p *Pack) AddLootTable(id resource.ID, table any) ([]byte, error) {
	return p.PutJSON(resource.ServerData, fix(id, "loot_tables/", suffixJSON), table)
}

// AddRecipe stores a recipe as data/<ns>/recipes/<path>.json.
func (p *Pack) AddRecipe(id resource.ID, recipe any) ([]byte, error) {
	return p.PutJSON(resource.ServerData, fix(id, "recipes/", suffixJSON), recipe)
}

// AddTag stores a tag as data/<ns>/tags/<path>.json, where path includes the
// registry, e.g. blocks/ores.
func (p *Pack) AddTag(id resource.ID, tag Tag) ([]byte, error) {
	if tag.Values == nil {
		tag.Values = []string{}
	}
	return p.PutJSON(resource.ServerData, fix(id, "tags/", suffixJSON), tag)
}

// AddStructure encodes structure as gzip compressed NBT and stores it as
// data/<ns>/structures/<path>.nbt.
func (p *Pack) AddStructure(id resource.ID, structure any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := nbt.NewEncoder(zw).Encode(structure, ""); err != nil {
		return nil, fmt.Errorf("encode structure %s: %w", id, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode structure %s: %w", id, err)
	}
	return p.Put(resource.ServerData, fix(id, "structures/", suffixNBT), buf.Bytes())
}

// DecodeStructure reverses AddStructure's encoding into v.
func DecodeStructure(data []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer zr.Close()

	if _, err := nbt.NewDecoder(zr).Decode(v); err != nil {
		return err
	}
	return nil
}

func fix(id resource.ID, prefix, suffix string) resource.ID {
	return id.WithPrefix(prefix).WithSuffix(suffix)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
