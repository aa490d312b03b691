package rrp_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/rrp"
	"github.com/tailored-agentic-units/rrp/worker"
)

type recordingObserver struct {
	mu    sync.Mutex
	types []observability.EventType
}

func (o *recordingObserver) OnEvent(_ context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.types = append(o.types, event.Type)
}

func (o *recordingObserver) saw(eventType observability.EventType) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.types {
		if t == eventType {
			return true
		}
	}
	return false
}

func newTestRuntime(t *testing.T, cfg *rrp.Config, opts ...rrp.Option) *rrp.Runtime {
	t.Helper()
	if cfg == nil {
		cfg = &rrp.Config{}
	}
	if cfg.Observer == "" {
		cfg.Observer = "noop"
	}
	rt, err := rrp.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func newSourcePack(t *testing.T, rt *rrp.Runtime, id string, entries map[string]string) *pack.Pack {
	t.Helper()
	p, err := rt.NewPack(resource.MustParseID(id))
	if err != nil {
		t.Fatalf("NewPack(%s) error = %v", id, err)
	}
	t.Cleanup(func() { p.Close(context.Background()) })
	for key, value := range entries {
		if _, err := p.Put(resource.ClientAssets, resource.MustParseID(key), []byte(value)); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}
	return p
}

func TestNew_Defaults(t *testing.T) {
	rt := newTestRuntime(t, nil)

	if rt.Pool().Threads() != worker.DefaultThreads() {
		t.Errorf("pool threads = %d, want %d", rt.Pool().Threads(), worker.DefaultThreads())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := rrp.New(&rrp.Config{Threads: -1, Observer: "noop"})
	if !errors.Is(err, rrp.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewPack_UsesSharedPool(t *testing.T) {
	rt := newTestRuntime(t, &rrp.Config{Threads: 1})
	p, err := rt.NewPack(resource.MustParseID("mymod:generated"))
	if err != nil {
		t.Fatalf("NewPack() error = %v", err)
	}

	future, err := p.PutAsync(context.Background(), resource.ServerData, resource.MustParseID("mymod:a.json"), func(context.Context) ([]byte, error) {
		return []byte("a"), nil
	})
	if err != nil {
		t.Fatalf("PutAsync() error = %v", err)
	}
	if _, err := future.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Closing the pack must leave the runtime's pool running.
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := rt.Pool().Go(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("shared pool unusable after pack Close: %v", err)
	}
}

func TestRegister(t *testing.T) {
	observer := &recordingObserver{}
	rt := newTestRuntime(t, nil, rrp.WithObserver(observer))
	p := newSourcePack(t, rt, "mymod:generated", nil)

	if err := rt.Register(rrp.AfterVanilla, p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := rt.Register(rrp.BeforeUser, p); !errors.Is(err, rrp.ErrPackExists) {
		t.Errorf("second Register() error = %v, want ErrPackExists", err)
	}
	if err := rt.Register(rrp.Slot(9), newSourcePack(t, rt, "mymod:other", nil)); !errors.Is(err, rrp.ErrUnknownSlot) {
		t.Errorf("Register(slot 9) error = %v, want ErrUnknownSlot", err)
	}

	if got := rt.Packs(rrp.AfterVanilla); len(got) != 1 || got[0] != p {
		t.Errorf("Packs(AfterVanilla) = %v, want [%s]", got, p.ID())
	}
	if got := rt.Packs(rrp.BeforeUser); len(got) != 0 {
		t.Errorf("Packs(BeforeUser) = %v, want empty", got)
	}
	if !observer.saw(rrp.EventRegister) {
		t.Error("no register event emitted")
	}
}

func TestNew_LogLevelFiltersEvents(t *testing.T) {
	observer := &recordingObserver{}
	rt := newTestRuntime(t, &rrp.Config{LogLevel: "warning"}, rrp.WithObserver(observer))

	if err := rt.Register(rrp.AfterVanilla, newSourcePack(t, rt, "mymod:quiet", nil)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if observer.saw(rrp.EventRegister) {
		t.Error("info event delivered with log_level warning")
	}
}

func TestSearchPath_Order(t *testing.T) {
	rt := newTestRuntime(t, nil)
	before := newSourcePack(t, rt, "rt:before", nil)
	middle := newSourcePack(t, rt, "rt:middle", nil)
	after1 := newSourcePack(t, rt, "rt:after1", nil)
	after2 := newSourcePack(t, rt, "rt:after2", nil)
	builtin := newSourcePack(t, rt, "host:builtin", nil)
	user := newSourcePack(t, rt, "host:user", nil)

	for _, reg := range []struct {
		slot rrp.Slot
		p    *pack.Pack
	}{
		{rrp.AfterVanilla, after1},
		{rrp.BeforeVanilla, before},
		{rrp.BeforeUser, middle},
		{rrp.AfterVanilla, after2},
	} {
		if err := rt.Register(reg.slot, reg.p); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	path := rt.SearchPath([]rrp.Source{builtin}, []rrp.Source{user})
	want := []*pack.Pack{before, builtin, middle, user, after1, after2}
	if len(path) != len(want) {
		t.Fatalf("SearchPath() has %d sources, want %d", len(path), len(want))
	}
	for i, src := range path {
		if src != rrp.Source(want[i]) {
			t.Errorf("SearchPath()[%d] = %s, want %s", i, src.(*pack.Pack).ID(), want[i].ID())
		}
	}
}

func TestLookup_LastWins(t *testing.T) {
	rt := newTestRuntime(t, nil)
	ctx := context.Background()
	key := "mymod:models/ruby.json"

	builtin := newSourcePack(t, rt, "host:builtin", map[string]string{key: "builtin", "mymod:only_builtin.json": "b"})
	user := newSourcePack(t, rt, "host:user", map[string]string{key: "user"})
	behind := newSourcePack(t, rt, "rt:behind", map[string]string{key: "behind"})
	ahead := newSourcePack(t, rt, "rt:ahead", map[string]string{key: "ahead", "mymod:only_ahead.json": "a"})

	if err := rt.Register(rrp.BeforeVanilla, ahead); err != nil {
		t.Fatal(err)
	}
	path := rt.SearchPath([]rrp.Source{builtin}, []rrp.Source{user})

	data, src, err := rrp.Lookup(ctx, path, resource.ClientAssets, resource.MustParseID(key))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if string(data) != "user" || src != rrp.Source(user) {
		t.Errorf("Lookup() = %q from %v, want user pack", data, src)
	}

	data, _, err = rrp.Lookup(ctx, path, resource.ClientAssets, resource.MustParseID("mymod:only_ahead.json"))
	if err != nil || string(data) != "a" {
		t.Errorf("Lookup(only_ahead) = %q, %v; want %q", data, err, "a")
	}

	if err := rt.Register(rrp.AfterVanilla, behind); err != nil {
		t.Fatal(err)
	}
	path = rt.SearchPath([]rrp.Source{builtin}, []rrp.Source{user})
	data, _, err = rrp.Lookup(ctx, path, resource.ClientAssets, resource.MustParseID(key))
	if err != nil || string(data) != "behind" {
		t.Errorf("Lookup() with AfterVanilla pack = %q, %v; want %q", data, err, "behind")
	}

	if _, _, err := rrp.Lookup(ctx, path, resource.ClientAssets, resource.MustParseID("mymod:absent.json")); !errors.Is(err, pack.ErrNotFound) {
		t.Errorf("Lookup(absent) error = %v, want ErrNotFound", err)
	}
}

func TestClose_DumpsRegisteredPacks(t *testing.T) {
	dumpDir := t.TempDir()
	rt, err := rrp.New(&rrp.Config{
		Observer:   "noop",
		DumpAssets: true,
		Pack:       pack.Config{DumpDir: dumpDir},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p, err := rt.NewPack(resource.MustParseID("mymod:generated"))
	if err != nil {
		t.Fatalf("NewPack() error = %v", err)
	}
	if _, err := p.PutAsync(context.Background(), resource.ServerData, resource.MustParseID("mymod:slow.json"), func(context.Context) ([]byte, error) {
		time.Sleep(10 * time.Millisecond)
		return []byte("slow"), nil
	}); err != nil {
		t.Fatalf("PutAsync() error = %v", err)
	}
	if err := rt.Register(rrp.AfterVanilla, p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(pack.DumpPath(dumpDir, p.ID()), "data", "mymod", "slow.json"))
	if err != nil {
		t.Fatalf("dump not written: %v", err)
	}
	if string(data) != "slow" {
		t.Errorf("dump content = %q, want %q", data, "slow")
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := rt.NewPack(resource.MustParseID("mymod:late")); !errors.Is(err, rrp.ErrClosed) {
		t.Errorf("NewPack() after Close error = %v, want ErrClosed", err)
	}
	if err := rt.Register(rrp.AfterVanilla, p); !errors.Is(err, rrp.ErrClosed) {
		t.Errorf("Register() after Close error = %v, want ErrClosed", err)
	}
}

func TestPregenerate(t *testing.T) {
	rt := newTestRuntime(t, &rrp.Config{Threads: 2})
	ctx := context.Background()

	p, err := rt.NewPack(resource.MustParseID("mymod:generated"))
	if err != nil {
		t.Fatalf("NewPack() error = %v", err)
	}
	if err := rt.Register(rrp.AfterVanilla, p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var runs atomic.Int32
	for _, name := range []string{"models", "recipes", "lang"} {
		err := rt.RegisterPregen(name, func(ctx context.Context, r *rrp.Runtime) error {
			runs.Add(1)
			target := r.Packs(rrp.AfterVanilla)[0]
			_, err := target.Put(resource.ServerData, resource.NewID("mymod", name+".json"), []byte(name))
			return err
		})
		if err != nil {
			t.Fatalf("RegisterPregen(%s) error = %v", name, err)
		}
	}

	if err := rt.RegisterPregen("models", func(context.Context, *rrp.Runtime) error { return nil }); !errors.Is(err, rrp.ErrPregenExists) {
		t.Errorf("duplicate RegisterPregen() error = %v, want ErrPregenExists", err)
	}
	if err := rt.RegisterPregen("", func(context.Context, *rrp.Runtime) error { return nil }); !errors.Is(err, rrp.ErrEmptyName) {
		t.Errorf("RegisterPregen(\"\") error = %v, want ErrEmptyName", err)
	}

	if err := rt.Pregenerate(ctx); err != nil {
		t.Fatalf("Pregenerate() error = %v", err)
	}
	if err := rt.Pregenerate(ctx); err != nil {
		t.Fatalf("second Pregenerate() error = %v", err)
	}
	if err := rt.WaitForPregen(ctx); err != nil {
		t.Fatalf("WaitForPregen() error = %v", err)
	}

	if got := runs.Load(); got != 3 {
		t.Errorf("generator runs = %d, want 3", got)
	}
	for _, name := range []string{"models", "recipes", "lang"} {
		if !p.Exists(resource.ServerData, resource.NewID("mymod", name+".json")) {
			t.Errorf("generator %s left no entry", name)
		}
	}

	if err := rt.RegisterPregen("late", func(context.Context, *rrp.Runtime) error { return nil }); !errors.Is(err, rrp.ErrPregenStarted) {
		t.Errorf("RegisterPregen() after start error = %v, want ErrPregenStarted", err)
	}
}

func TestPregenerate_GeneratorSubmitsAsyncEntries(t *testing.T) {
	rt := newTestRuntime(t, &rrp.Config{Threads: 1, QueueSize: 4})

	p, err := rt.NewPack(resource.MustParseID("mymod:textures"))
	if err != nil {
		t.Fatalf("NewPack() error = %v", err)
	}

	const entries = 32
	err = rt.RegisterPregen("textures", func(ctx context.Context, r *rrp.Runtime) error {
		for i := range entries {
			id := resource.NewID("mymod", fmt.Sprintf("textures/block/%d.png", i))
			if _, err := p.PutAsync(ctx, resource.ClientAssets, id, func(context.Context) ([]byte, error) {
				return []byte(fmt.Sprint(i)), nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterPregen() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rt.Pregenerate(ctx); err != nil {
		t.Fatalf("Pregenerate() error = %v", err)
	}
	if err := rt.WaitForPregen(ctx); err != nil {
		t.Fatalf("WaitForPregen() error = %v", err)
	}

	for i := range entries {
		id := resource.NewID("mymod", fmt.Sprintf("textures/block/%d.png", i))
		data, err := p.Read(ctx, resource.ClientAssets, id)
		if err != nil {
			t.Fatalf("Read(%s) error = %v", id, err)
		}
		if string(data) != fmt.Sprint(i) {
			t.Errorf("Read(%s) = %q, want %q", id, data, fmt.Sprint(i))
		}
	}
}

func TestWaitForPregen_Failures(t *testing.T) {
	rt := newTestRuntime(t, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(rt.RegisterPregen("a-ok", func(context.Context, *rrp.Runtime) error { return nil }))
	must(rt.RegisterPregen("b-fail", func(context.Context, *rrp.Runtime) error { return boom }))
	must(rt.RegisterPregen("c-panic", func(context.Context, *rrp.Runtime) error { panic("generator exploded") }))
	must(rt.Pregenerate(ctx))

	err := rt.WaitForPregen(ctx)
	var parallelErr *worker.ParallelError[string]
	if !errors.As(err, &parallelErr) {
		t.Fatalf("WaitForPregen() error = %v, want *ParallelError[string]", err)
	}
	if len(parallelErr.Errors) != 2 {
		t.Fatalf("got %d failures, want 2", len(parallelErr.Errors))
	}
	if parallelErr.Errors[0].Item != "b-fail" || parallelErr.Errors[1].Item != "c-panic" {
		t.Errorf("failed items = %s, %s; want b-fail, c-panic", parallelErr.Errors[0].Item, parallelErr.Errors[1].Item)
	}
	if !errors.Is(err, boom) {
		t.Error("errors.Is(err, boom) = false")
	}
	if !errors.Is(err, worker.ErrTaskPanic) {
		t.Error("errors.Is(err, ErrTaskPanic) = false")
	}
}

func TestWaitForPregen_Cancelled(t *testing.T) {
	rt := newTestRuntime(t, nil)
	release := make(chan struct{})

	if err := rt.RegisterPregen("blocked", func(context.Context, *rrp.Runtime) error {
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := rt.Pregenerate(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rt.WaitForPregen(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForPregen() error = %v, want DeadlineExceeded", err)
	}

	close(release)
	if err := rt.WaitForPregen(context.Background()); err != nil {
		t.Errorf("WaitForPregen() after release error = %v", err)
	}
}

func TestWaitForPregen_NothingRegistered(t *testing.T) {
	rt := newTestRuntime(t, nil)
	if err := rt.WaitForPregen(context.Background()); err != nil {
		t.Errorf("WaitForPregen() error = %v, want nil", err)
	}
}
