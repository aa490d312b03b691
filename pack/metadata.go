package pack

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ManifestName is the root entry holding pack metadata.
const ManifestName = "pack.mcmeta"

// Metadata is the content of a pack manifest.
type Metadata struct {
	Format      int    `json:"pack_format"`
	Description string `json:"description"`
}

type manifest struct {
	Pack Metadata `json:"pack"`
}

// Metadata returns the pack format and description, read from an explicit
// pack.mcmeta root entry when one exists and synthesized otherwise.
func (p *Pack) Metadata(ctx context.Context) (Metadata, error) {
	data, err := p.ReadRoot(ctx, ManifestName)
	if err != nil {
		return Metadata{}, err
	}
	return ParseManifest(data)
}

// ParseManifest extracts pack.pack_format and pack.description from a
// pack.mcmeta document. A description given as a text component is returned
// as its raw JSON.
func ParseManifest(data []byte) (Metadata, error) {
	if !gjson.ValidBytes(data) {
		return Metadata{}, fmt.Errorf("%w: malformed json", ErrInvalidManifest)
	}

	format := gjson.GetBytes(data, "pack.pack_format")
	if format.Type != gjson.Number {
		return Metadata{}, fmt.Errorf("%w: missing pack.pack_format", ErrInvalidManifest)
	}

	md := Metadata{Format: int(format.Int())}
	switch desc := gjson.GetBytes(data, "pack.description"); desc.Type {
	case gjson.String:
		md.Description = desc.String()
	case gjson.Null:
	default:
		md.Description = desc.Raw
	}
	return md, nil
}

func (p *Pack) description() string {
	if p.cfg.Description != "" {
		return p.cfg.Description
	}
	return "Runtime resource pack " + p.id.String()
}

func (p *Pack) synthesizeManifest() ([]byte, error) {
	data, err := marshalJSON(manifest{Pack: Metadata{
		Format:      p.cfg.Format,
		Description: p.description(),
	}})
	if err != nil {
		return nil, errors.Join(ErrInvalidManifest, err)
	}
	return data, nil
}
