package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/packserve"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/rrp"
)

type command struct {
	runtime *rrp.Runtime
	cfg     rrp.Config
	logger  *zap.Logger
	verbose bool
}

// load imports a directory or zip archive into a fresh pack named after it.
func (c command) load(ctx context.Context, path string) (*pack.Pack, error) {
	p, err := c.runtime.NewPack(packID(path))
	if err != nil {
		return nil, err
	}

	if isZip(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		err = p.ImportZipAt(ctx, f, info.Size())
	} else {
		err = p.ImportDir(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c command) inspect(ctx context.Context, path string) error {
	p, err := c.load(ctx, path)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	md, err := p.Metadata(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pack:        %s\n", p.ID())
	fmt.Printf("Format:      %d\n", md.Format)
	fmt.Printf("Description: %s\n", md.Description)
	fmt.Printf("Root files:  %d\n", p.Len(resource.Root))

	for _, section := range []resource.Section{resource.ClientAssets, resource.ServerData} {
		namespaces := p.Namespaces(section)
		fmt.Printf("\n%s: %d entries in %d namespaces\n", section.Dir(), p.Len(section), len(namespaces))
		for _, ns := range namespaces {
			ids := p.Find(section, ns, "", nil)
			fmt.Printf("  %-24s %d\n", ns, len(ids))
			if c.verbose {
				for _, id := range ids {
					fmt.Printf("    %s\n", id.Path)
				}
			}
		}
	}
	return nil
}

func (c command) convert(ctx context.Context, in, out string) error {
	p, err := c.load(ctx, in)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	if !isZip(out) {
		return p.ExportDir(ctx, out)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := p.ExportZip(ctx, f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	return f.Close()
}

func (c command) serve(ctx context.Context, path string) error {
	p, err := c.load(ctx, path)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	srv, err := packserve.NewServer(p, c.cfg.Server, packserve.WithObserver(c.runtime.Observer()))
	if err != nil {
		return err
	}

	c.logger.Info("serving pack",
		zap.String("pack", p.ID().String()),
		zap.String("addr", c.cfg.Server.Addr),
		zap.Int("entries", p.Len(resource.ClientAssets)+p.Len(resource.ServerData)+p.Len(resource.Root)),
	)
	return srv.ListenAndServe(ctx)
}

func packID(path string) resource.ID {
	name := strings.TrimSuffix(filepath.Base(filepath.Clean(path)), filepath.Ext(path))
	id := resource.IDFromName("rrp", name)
	if id.Validate() != nil {
		return resource.NewID("rrp", "imported")
	}
	return id
}

func isZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}
