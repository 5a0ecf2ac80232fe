package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func stub(id, tag string) Func {
	return Func{Name: id, Suffix: tag, Run: func(context.Context, Request) (string, error) {
		return tag, nil
	}}
}

// TestRegistryResolve verifies registration and lookup by identifier.
func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stub("rotate", "rot"))

	got, err := reg.Resolve("rotate")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Tag() != "rot" {
		t.Fatalf("tag = %q, want rot", got.Tag())
	}
}

// TestRegistryLastWriterWins checks replacement semantics.
func TestRegistryLastWriterWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stub("mirror", "flip"))
	reg.Register(stub("mirror", "hflip"))

	got, err := reg.Resolve("mirror")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Tag() != "hflip" {
		t.Fatalf("tag = %q, want hflip", got.Tag())
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
}

// TestRegistryResolveUnknown checks the not-found sentinel.
func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

// TestRegistryIDsSorted checks deterministic enumeration.
func TestRegistryIDsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"speed", "crop", "mute"} {
		reg.Register(stub(id, id))
	}
	ids := reg.IDs()
	want := []string{"crop", "mute", "speed"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

// TestRegistryConcurrentResolve exercises read-only sharing across goroutines.
func TestRegistryConcurrentResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stub("blur", "blur"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Resolve("blur"); err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

// TestParamsAccessors covers typed reads and defaults.
func TestParamsAccessors(t *testing.T) {
	p := NewParams(map[string]any{
		"rotate_angle": 1.5,
		"target_fps":   float64(30),
		"bitrate":      "12M",
		"enabled":      "true",
		"watermark":    map[string]any{"opacity": 0.4},
	}, map[string]string{"watermark": "/m/logo.png", "mask": "  "})

	if got := p.Float("rotate_angle", 0); got != 1.5 {
		t.Fatalf("rotate_angle = %v", got)
	}
	if got := p.Int("target_fps", 60); got != 30 {
		t.Fatalf("target_fps = %v", got)
	}
	if got := p.Int("missing", 60); got != 60 {
		t.Fatalf("missing int = %v", got)
	}
	if got := p.String("bitrate", "10M"); got != "12M" {
		t.Fatalf("bitrate = %q", got)
	}
	if !p.Bool("enabled", false) {
		t.Fatal("enabled should parse as true")
	}
	if got := p.Float("watermark.opacity", 1); got != 0.4 {
		t.Fatalf("watermark.opacity = %v", got)
	}
	if path, ok := p.Material("watermark"); !ok || path != "/m/logo.png" {
		t.Fatalf("material = %q, %v", path, ok)
	}
	if _, ok := p.Material("mask"); ok {
		t.Fatal("blank material path should be dropped")
	}
}

// TestParamsImmutable verifies the constructor copies caller maps.
func TestParamsImmutable(t *testing.T) {
	nested := map[string]any{"opacity": 0.4}
	raw := map[string]any{"watermark": nested}
	p := NewParams(raw, nil)

	nested["opacity"] = 0.9
	raw["extra"] = true
	if got := p.Float("watermark.opacity", 0); got != 0.4 {
		t.Fatalf("opacity = %v, want 0.4", got)
	}
	if _, ok := p.Lookup("extra"); ok {
		t.Fatal("params should not observe caller mutation")
	}

	copied := p.Map()
	copied["watermark"].(map[string]any)["opacity"] = 0.1
	if got := p.Float("watermark.opacity", 0); got != 0.4 {
		t.Fatalf("opacity after Map mutation = %v, want 0.4", got)
	}
}
