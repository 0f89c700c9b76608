package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/platform"
)

type fakeResolver struct {
	mu       sync.Mutex
	entries  map[string]desktop.Entry
	rebuilds int
}

func (r *fakeResolver) Resolve(name string) (desktop.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[desktop.Normalize(name)]; ok {
		return e, nil
	}
	return desktop.Entry{}, &desktop.NotFoundError{Name: name}
}

func (r *fakeResolver) Rebuild() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuilds++
	return len(r.entries)
}

func (r *fakeResolver) IconPath(e desktop.Entry) string {
	if e.Icon == "" {
		return ""
	}
	return "/icons/" + e.Icon + ".png"
}

type fakeDirectory struct {
	mu      sync.Mutex
	windows []platform.Window
	err     error
	cursor  platform.Point
	delay   time.Duration
	focused []platform.Address
	closed  []platform.Address
}

func (d *fakeDirectory) Name() string { return "fake" }

func (d *fakeDirectory) ListWindows(ctx context.Context) ([]platform.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return append([]platform.Window(nil), d.windows...), nil
}

func (d *fakeDirectory) Focus(ctx context.Context, addr platform.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = append(d.focused, addr)
	return nil
}

func (d *fakeDirectory) Close(ctx context.Context, addr platform.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = append(d.closed, addr)
	return nil
}

func (d *fakeDirectory) CursorPosition(ctx context.Context) (platform.Point, error) {
	d.mu.Lock()
	cursor, err, delay := d.cursor, d.err, d.delay
	d.mu.Unlock()
	time.Sleep(delay)
	return cursor, err
}

func (d *fakeDirectory) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
}

func (l *fakeLauncher) Launch(command string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, command)
	return nil
}

func (l *fakeLauncher) commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.launched...)
}

type harness struct {
	daemon   *Daemon
	dir      *fakeDirectory
	launcher *fakeLauncher
	resolver *fakeResolver
	path     string
}

const zenConfig = `slots:
  - direction: north
    app: Zen
  - direction: east
    app: Terminal
    class: kitty
    exec: kitty
`

func newHarness(t *testing.T, contents string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	h := &harness{
		dir:      &fakeDirectory{cursor: platform.Point{X: 10, Y: 20, Monitor: "DP-1"}},
		launcher: &fakeLauncher{},
		resolver: &fakeResolver{entries: map[string]desktop.Entry{
			"zen": {ID: "zen.desktop", Name: "Zen", Class: "zen", Exec: "zen-browser", Icon: "zen"},
		}},
		path: path,
	}

	initial, initialErr := config.LoadFromPath(path, h.resolver)
	eng := engine.New(h.resolver, platform.Bounded(h.dir, time.Second, nil), h.launcher, nil)
	d, err := New(Options{
		ConfigPath: path,
		Initial:    initial,
		InitialErr: initialErr,
		Store:      config.NewStore(nil),
		Resolver:   h.resolver,
		Engine:     eng,
		Launcher:   h.launcher,
	})
	require.NoError(t, err)
	h.daemon = d

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, nil) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h
}

func TestShowHide(t *testing.T) {
	h := newHarness(t, zenConfig)
	ctx := context.Background()

	data, _, err := h.daemon.Show(ctx, &platform.Point{X: 1, Y: 2})
	require.NoError(t, err)
	assert.True(t, data.Changed)
	assert.True(t, data.Visible)
	assert.Equal(t, 1.0, data.Anchor.X)

	// A second show keeps the original anchor.
	data, _, err = h.daemon.Show(ctx, &platform.Point{X: 5, Y: 5})
	require.NoError(t, err)
	assert.False(t, data.Changed)
	assert.Equal(t, 1.0, data.Anchor.X)

	data, _, err = h.daemon.Hide(ctx)
	require.NoError(t, err)
	assert.True(t, data.Changed)

	data, _, err = h.daemon.Hide(ctx)
	require.NoError(t, err)
	assert.False(t, data.Changed)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, zenConfig)
	ctx := context.Background()

	data, _, err := h.daemon.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, data.Visible)
	assert.Equal(t, "DP-1", data.Anchor.Monitor)

	data, _, err = h.daemon.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, data.Visible)
	assert.True(t, data.Changed)
}

func TestToggle_ConcurrentTogglesAlternate(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.mu.Lock()
	h.dir.delay = 5 * time.Millisecond
	h.dir.mu.Unlock()
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		results := make([]bool, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				data, _, err := h.daemon.Toggle(ctx)
				assert.NoError(t, err)
				results[i] = data.Visible
			}(i)
		}
		wg.Wait()

		assert.NotEqual(t, results[0], results[1], "round %d: one toggle shows, the other hides", round)
		status, _, err := h.daemon.Status(ctx)
		require.NoError(t, err)
		require.False(t, status.Visible, "round %d", round)
	}
}

func TestShow_UsesPointerWhenNoAnchor(t *testing.T) {
	h := newHarness(t, zenConfig)

	data, _, err := h.daemon.Show(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, platform.Point{X: 10, Y: 20, Monitor: "DP-1"}, *data.Anchor)
}

func TestShow_PointerFailureFallsBackToOrigin(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.setErr(errors.New("no compositor"))

	data, _, err := h.daemon.Show(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, data.Visible)
	assert.Equal(t, platform.Point{}, *data.Anchor)
}

func TestSelect_FocusesRunningWindowAndHides(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.windows = []platform.Window{{Address: "0x1", Class: "zen"}}
	ctx := context.Background()

	_, _, err := h.daemon.Show(ctx, &platform.Point{})
	require.NoError(t, err)

	data, _, err := h.daemon.Select(ctx, config.North)
	require.NoError(t, err)
	require.NotNil(t, data.Outcome)
	assert.Equal(t, engine.ActionFocus, data.Outcome.Action.Kind)
	assert.Equal(t, []platform.Address{"0x1"}, h.dir.focused)

	status, _, err := h.daemon.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Visible)
}

func TestSelect_LaunchesExplicitExec(t *testing.T) {
	h := newHarness(t, zenConfig)

	data, _, err := h.daemon.Select(context.Background(), config.East)
	require.NoError(t, err)
	assert.Equal(t, engine.ActionLaunch, data.Outcome.Action.Kind)
	assert.Equal(t, []string{"kitty"}, h.launcher.commands())
}

func TestSelect_EmptyDirection(t *testing.T) {
	h := newHarness(t, zenConfig)

	_, _, err := h.daemon.Select(context.Background(), config.South)
	require.ErrorIs(t, err, config.ErrNoSlot)
	assert.Empty(t, h.launcher.commands())
}

func TestSelect_CompositorFailureDoesNotLaunch(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.setErr(errors.New("socket gone"))

	_, _, err := h.daemon.Select(context.Background(), config.North)
	require.ErrorIs(t, err, platform.ErrCompositorUnreachable)
	assert.Empty(t, h.launcher.commands())
}

func TestSelect_SetupWritesDefaultConfig(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	slots, _, err := h.daemon.Slots(ctx)
	require.NoError(t, err)
	require.Len(t, slots.Slots, 1)
	assert.True(t, slots.Slots[0].Setup)

	data, _, err := h.daemon.Select(ctx, config.North)
	require.NoError(t, err)
	assert.True(t, data.Setup)
	assert.True(t, data.Created)
	assert.Equal(t, h.path, data.ConfigPath)

	_, err = os.Stat(h.path)
	require.NoError(t, err)
	cmds := h.launcher.commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "xdg-open ")
	assert.Contains(t, cmds[0], h.path)

	status, _, err := h.daemon.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Setup)
	assert.Equal(t, 4, status.Slots)
}

func TestClose(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.windows = []platform.Window{{Address: "0x7", Class: "kitty"}}
	ctx := context.Background()

	data, _, err := h.daemon.Close(ctx, config.East)
	require.NoError(t, err)
	assert.Equal(t, platform.Address("0x7"), data.Window.Address)
	assert.Equal(t, []platform.Address{"0x7"}, h.dir.closed)

	_, _, err = h.daemon.Close(ctx, config.North)
	require.ErrorIs(t, err, engine.ErrNoWindow)
}

func TestSlots(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.windows = []platform.Window{{Address: "0x1", Class: "kitty"}}

	data, version, err := h.daemon.Slots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	require.Len(t, data.Slots, 2)

	zen := data.Slots[0]
	assert.Equal(t, "zen", zen.Class)
	assert.Equal(t, "zen-browser", zen.Exec)
	assert.Equal(t, "/icons/zen.png", zen.Icon)
	assert.False(t, zen.Running)

	term := data.Slots[1]
	assert.Equal(t, "kitty", term.Class)
	assert.True(t, term.Running)
}

func TestSlots_CompositorFailureReportsNotRunning(t *testing.T) {
	h := newHarness(t, zenConfig)
	h.dir.windows = []platform.Window{{Address: "0x1", Class: "kitty"}}
	h.dir.setErr(errors.New("timeout"))

	data, _, err := h.daemon.Slots(context.Background())
	require.NoError(t, err)
	for _, s := range data.Slots {
		assert.False(t, s.Running, s.App)
	}
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	h := newHarness(t, zenConfig)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(h.path, []byte("slots:\n  - direction: up\n    app: x\n"), 0o644))
	_, version, err := h.daemon.Reload(ctx)
	require.Error(t, err)
	assert.Equal(t, uint64(1), version)

	status, _, err := h.daemon.Status(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, status.LastConfigError)
	assert.Equal(t, 2, status.Slots)

	require.NoError(t, os.WriteFile(h.path, []byte("slots:\n  - direction: s\n    app: zen\n"), 0o644))
	data, version, err := h.daemon.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
	assert.Equal(t, 1, data.Slots)

	status, _, err = h.daemon.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.LastConfigError)
}

func TestNew_InvalidInitialConfig(t *testing.T) {
	h := newHarness(t, "slots: [\n")

	status, _, err := h.daemon.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.Slots)
	assert.NotEmpty(t, status.LastConfigError)
	assert.Equal(t, "fake", status.Backend)
}

func TestServe_AppliesWatchEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	dir := &fakeDirectory{}
	launcher := &fakeLauncher{}
	store := config.NewStore(nil)
	d, err := New(Options{
		ConfigPath: path,
		Initial:    config.SetupConfig(path),
		Store:      store,
		Engine:     engine.New(nil, dir, launcher, nil),
		Launcher:   launcher,
	})
	require.NoError(t, err)

	watch := make(chan config.WatchEvent)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, watch) }()

	next := config.New([]config.Slot{{Direction: config.West, App: "kitty", Class: "kitty", Exec: "kitty"}}, config.DefaultSettings(), path)
	watch <- config.WatchEvent{Config: next}
	watch <- config.WatchEvent{Err: errors.New("broken")}

	status, _, err := d.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Version)
	assert.Equal(t, "broken", status.LastConfigError)

	cancel()
	require.NoError(t, <-done)

	_, _, err = d.Hide(context.Background())
	require.ErrorIs(t, err, ErrStopped)
}

func TestSelect_ObservesOneSnapshotDuringReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	generation := func(n int) *config.Config {
		return config.New([]config.Slot{{
			Direction: config.West,
			App:       "app",
			Class:     "app",
			Exec:      fmt.Sprintf("app --generation %d", n),
		}}, config.DefaultSettings(), path)
	}

	dir := &fakeDirectory{}
	launcher := &fakeLauncher{}
	d, err := New(Options{
		ConfigPath: path,
		Initial:    generation(1),
		Store:      config.NewStore(nil),
		Engine:     engine.New(nil, dir, launcher, nil),
		Launcher:   launcher,
	})
	require.NoError(t, err)

	watch := make(chan config.WatchEvent)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Serve(ctx, watch) }()

	const generations = 200
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				data, version, err := d.Select(ctx, config.West)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, fmt.Sprintf("app --generation %d", version), data.Outcome.Action.Exec)
			}
		}()
	}

	for n := 2; n <= generations; n++ {
		watch <- config.WatchEvent{Config: generation(n)}
	}
	close(stop)
	wg.Wait()

	status, _, err := d.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(generations), status.Version)
}

func TestRebuild(t *testing.T) {
	h := newHarness(t, zenConfig)

	data, _, err := h.daemon.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, data.Entries)
	assert.Equal(t, 1, h.resolver.rebuilds)
}
