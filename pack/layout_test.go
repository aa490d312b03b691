package pack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
)

func TestLocation(t *testing.T) {
	tests := []struct {
		section resource.Section
		id      resource.ID
		want    string
	}{
		{resource.ClientAssets, resource.MustParseID("mymod:models/a.json"), "assets/mymod/models/a.json"},
		{resource.ServerData, resource.MustParseID("mymod:tags/blocks/b.json"), "data/mymod/tags/blocks/b.json"},
		{resource.Root, resource.ID{Path: "pack.mcmeta"}, "pack.mcmeta"},
	}

	for _, tt := range tests {
		if got := pack.Location(tt.section, tt.id); got != tt.want {
			t.Errorf("Location(%s, %s) = %q, want %q", tt.section, tt.id, got, tt.want)
		}
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantSection resource.Section
		wantID      resource.ID
		wantErr     error
	}{
		{"assets", "assets/mymod/models/a.json", resource.ClientAssets, resource.NewID("mymod", "models/a.json"), nil},
		{"data", "data/mymod/loot_tables/b.json", resource.ServerData, resource.NewID("mymod", "loot_tables/b.json"), nil},
		{"root file", "pack.png", resource.Root, resource.ID{Path: "pack.png"}, nil},
		{"root subdir", "docs/readme.md", resource.Root, resource.ID{Path: "docs/readme.md"}, nil},
		{"assets without path", "assets/mymod", resource.Root, resource.ID{Path: "assets/mymod"}, nil},
		{"cleaned", "assets/mymod/./a.json", resource.ClientAssets, resource.NewID("mymod", "a.json"), nil},
		{"parent escape", "../outside.json", 0, resource.ID{}, pack.ErrInvalidPath},
		{"inner escape", "assets/../../outside.json", 0, resource.ID{}, pack.ErrInvalidPath},
		{"absolute", "/etc/passwd", 0, resource.ID{}, pack.ErrInvalidPath},
		{"empty", "", 0, resource.ID{}, pack.ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, id, err := pack.ParseLocation(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseLocation(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) error = %v", tt.input, err)
			}
			if section != tt.wantSection || id != tt.wantID {
				t.Errorf("ParseLocation(%q) = %s %v, want %s %v", tt.input, section, id, tt.wantSection, tt.wantID)
			}
		})
	}
}

func TestLocation_RoundTrip(t *testing.T) {
	p := newTestPack(t, pack.Config{})
	ids := []resource.ID{
		resource.MustParseID("mymod:a.json"),
		resource.MustParseID("mymod:deep/nested/path/b.png"),
	}
	for _, id := range ids {
		for _, section := range []resource.Section{resource.ClientAssets, resource.ServerData} {
			if _, err := p.Put(section, id, []byte(id.Path)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			gotSection, gotID, err := pack.ParseLocation(pack.Location(section, id))
			if err != nil {
				t.Fatalf("ParseLocation() error = %v", err)
			}
			if gotSection != section || gotID != id {
				t.Errorf("round trip of %s %s = %s %s", section, id, gotSection, gotID)
			}
			if _, err := p.Read(context.Background(), gotSection, gotID); err != nil {
				t.Errorf("Read() of parsed location error = %v", err)
			}
		}
	}
}

func TestDumpPath(t *testing.T) {
	got := pack.DumpPath("rrp.debug", resource.MustParseID("mymod:generated/ores"))
	want := "rrp.debug/mymod;generated;ores"
	if got != want {
		t.Errorf("DumpPath() = %q, want %q", got, want)
	}
}
