package pack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tailored-agentic-units/rrp/observability"
)

// ExportZip writes the pack to w as a zip archive. Every entry is resolved
// before the first byte is written, so a failing resolver leaves w
// untouched. Entries are written root first, then assets, then data, each
// sorted by path.
func (p *Pack) ExportZip(ctx context.Context, w io.Writer) error {
	entries, err := p.snapshot()
	if err != nil {
		return err
	}
	start := time.Now()

	contents := make([][]byte, len(entries))
	for i, e := range entries {
		data, err := e.cell.resolve(ctx, p, e.section, e.id)
		if err != nil {
			return fmt.Errorf("export %s: %w", p.id, err)
		}
		contents[i] = data
	}

	zw := zip.NewWriter(w)
	for i, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.location(),
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("export %s: %w", p.id, err)
		}
		if _, err := fw.Write(contents[i]); err != nil {
			return fmt.Errorf("export %s: %w", p.id, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export %s: %w", p.id, err)
	}

	p.exported(ctx, "zip", "", len(entries), start)
	return nil
}

// ImportZip reads a whole zip archive from r and installs its entries. See
// ImportZipAt.
func (p *Pack) ImportZip(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("import %s: %w", p.id, err)
	}
	return p.ImportZipAt(ctx, bytes.NewReader(data), int64(len(data)))
}

// ImportZipAt installs every file of the archive as an eager entry. An
// archive that cannot be parsed, or an entry whose content is shorter or
// longer than its declared size, fails with ErrTruncatedArchive. Nothing is
// installed unless every entry was read successfully.
func (p *Pack) ImportZipAt(ctx context.Context, r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("import %s: %w: %v", p.id, ErrTruncatedArchive, err)
	}

	files := make([]file, 0, len(zr.File))
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasSuffix(zf.Name, "/") {
			continue
		}

		section, id, err := ParseLocation(zf.Name)
		if err != nil {
			return fmt.Errorf("import %s: %w", p.id, err)
		}
		data, err := readZipFile(zf)
		if err != nil {
			return fmt.Errorf("import %s: %s: %w", p.id, zf.Name, err)
		}
		files = append(files, file{section: section, id: id, data: data})
	}

	if err := p.installAll(files); err != nil {
		return fmt.Errorf("import %s: %w", p.id, err)
	}

	p.emit(ctx, EventImport, observability.LevelInfo, map[string]any{
		"source":  "zip",
		"entries": len(files),
	})
	return nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedArchive, err)
	}
	defer rc.Close()

	declared := zf.UncompressedSize64
	data, err := io.ReadAll(io.LimitReader(rc, int64(declared)+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedArchive, err)
		}
		return nil, err
	}
	if uint64(len(data)) != declared {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrTruncatedArchive, len(data), declared)
	}
	return data, nil
}
