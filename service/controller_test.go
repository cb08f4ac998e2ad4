package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cliprecipe/clipboard"
	"cliprecipe/config"
	"cliprecipe/hotkey"
	"cliprecipe/model"
	"cliprecipe/recipe"
	"cliprecipe/storage/driver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type harness struct {
	paths   config.Paths
	store   *recipe.Store
	backend *clipboard.MemoryBackend
	reg     *hotkey.MemoryRegistrar
	disp    *hotkey.Dispatcher
	history *driver.JSONStorage
	notes   chan Notification
	ctrl    *Controller
}

func newHarness(t *testing.T, mutate func(cfg *config.AppConfig)) *harness {
	t.Helper()
	paths := config.PathsIn(t.TempDir())
	require.NoError(t, paths.Ensure())
	if mutate != nil {
		_, err := config.Update(paths.Config, mutate)
		require.NoError(t, err)
	}

	store, err := recipe.NewStore(recipe.NewFileRepository(paths), nil)
	require.NoError(t, err)

	history, err := driver.NewJSONStorage(paths.History, 10)
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	reg := hotkey.NewMemoryRegistrar()
	disp := hotkey.NewDispatcher(reg, nil, hotkey.WithDebounce(0))
	t.Cleanup(func() { disp.Close() })

	backend := clipboard.NewMemoryBackend()
	notes := make(chan Notification, 32)
	h := &harness{
		paths:   paths,
		store:   store,
		backend: backend,
		reg:     reg,
		disp:    disp,
		history: history,
		notes:   notes,
	}
	h.ctrl = New(Deps{
		Store:   store,
		Watcher: clipboard.NewWatcher(backend, nil, clipboard.WithInterval(tick)),
		Hotkeys: disp,
		History: history,
		Notifier: NotifierFunc(func(_ context.Context, n Notification) {
			select {
			case notes <- n:
			default:
			}
		}),
		ConfigPath: paths.Config,
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	t.Cleanup(func() { h.ctrl.Stop() })
	// 等待监听器记录启动时的剪贴板内容
	time.Sleep(50 * time.Millisecond)
}

func (h *harness) activate(t *testing.T, name string, steps ...model.Transform) string {
	t.Helper()
	id, err := h.store.Create(name, steps)
	require.NoError(t, err)
	require.NoError(t, h.store.SetActive(id))
	return id
}

func (h *harness) waitNote(t *testing.T, kind NotificationKind) Notification {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case n := <-h.notes:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no %s notification", kind)
			return Notification{}
		}
	}
}

func (h *harness) textIs(want string) func() bool {
	return func() bool { return h.backend.Text() == want }
}

func TestChangeIsTransformedOnce(t *testing.T) {
	h := newHarness(t, nil)
	id := h.activate(t, "Numbered", model.Step("add_line_numbers"))
	h.start(t)

	h.backend.SetText("a\nb")
	require.Eventually(t, h.textIs("1: a\n2: b"), waitFor, tick)
	h.waitNote(t, NotifyTransformed)

	// 自身写入不会再次触发转换
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "1: a\n2: b", h.backend.Text())
	assert.Equal(t, 1, h.backend.Writes())

	items, err := h.history.Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a\nb", items[0].Content)
	assert.Equal(t, "1: a\n2: b", items[0].Transformed)
	assert.Equal(t, id, items[0].RecipeID)
}

func TestUnchangedResultIsNotWritten(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t, "Lower", model.Step("lowercase"))
	h.start(t)

	h.backend.SetText("already lower")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, h.backend.Writes())
}

func TestDisabledPassesThrough(t *testing.T) {
	h := newHarness(t, func(cfg *config.AppConfig) { cfg.Enabled = false })
	h.activate(t, "Upper", model.Step("uppercase"))
	h.start(t)
	assert.False(t, h.ctrl.Status().Enabled)

	h.backend.SetText("quiet")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "quiet", h.backend.Text())
	assert.Equal(t, 0, h.backend.Writes())
}

func TestDeletedActiveRecipePassesThrough(t *testing.T) {
	h := newHarness(t, nil)
	id := h.activate(t, "Upper", model.Step("uppercase"))
	h.start(t)

	h.backend.SetText("one")
	require.Eventually(t, h.textIs("ONE"), waitFor, tick)

	require.NoError(t, h.store.Delete(id))
	h.backend.SetText("two")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "two", h.backend.Text())
	assert.Empty(t, h.ctrl.Status().ActiveRecipeID)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t, "Upper", model.Step("uppercase"))

	_, err := h.ctrl.Toggle(context.Background())
	assert.True(t, errors.Is(err, model.ErrServiceNotRunning))

	h.start(t)
	enabled, err := h.ctrl.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
	h.waitNote(t, NotifyToggled)

	cfg, err := config.Load(h.paths.Config)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)

	h.backend.SetText("keep me")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "keep me", h.backend.Text())

	enabled, err = h.ctrl.Toggle(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
	h.backend.SetText("now upper")
	require.Eventually(t, h.textIs("NOW UPPER"), waitFor, tick)
}

func TestHotkeyActions(t *testing.T) {
	h := newHarness(t, func(cfg *config.AppConfig) { cfg.Enabled = false })
	id, err := h.store.Create("Upper", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)
	require.NoError(t, h.store.SetHotkey(id, "ctrl+alt+u"))
	h.backend.SetText("abc")
	h.start(t)

	// 配方快捷键与 enabled 无关
	require.True(t, h.reg.Press("Ctrl+Alt+U"))
	require.Eventually(t, h.textIs("ABC"), waitFor, tick)

	require.True(t, h.reg.Press("Ctrl+Shift+D"))
	h.waitNote(t, NotifyOpenDashboard)
	require.True(t, h.reg.Press("Ctrl+Shift+V"))
	h.waitNote(t, NotifyOpenQuickMenu)

	require.True(t, h.reg.Press("Ctrl+Shift+T"))
	require.Eventually(t, func() bool { return h.ctrl.Status().Enabled }, waitFor, tick)
}

func TestConflictingRecipeHotkeyIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	id, err := h.store.Create("Upper", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)
	require.NoError(t, h.store.SetHotkey(id, "Ctrl+Shift+T"))
	h.start(t)

	var toggle model.HotkeyBinding
	for _, b := range h.ctrl.Status().Hotkeys {
		if b.Combination == "Ctrl+Shift+T" {
			toggle = b
		}
	}
	assert.Equal(t, model.ActionToggle, toggle.Action.Kind)
}

func TestApplyRecipeCommand(t *testing.T) {
	h := newHarness(t, func(cfg *config.AppConfig) { cfg.Enabled = false })
	id, err := h.store.Create("Reverse", []model.Transform{model.Step("reverse_lines")})
	require.NoError(t, err)
	h.backend.SetText("b\na")
	h.start(t)

	_, err = h.ctrl.ApplyRecipe(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrRecipeNotFound))

	res, err := h.ctrl.ApplyRecipe(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "a\nb", h.backend.Text())
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	other, err := recipe.NewStore(recipe.NewFileRepository(h.paths), nil)
	require.NoError(t, err)
	id, err := other.Create("External", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)
	require.NoError(t, other.SetHotkey(id, "Ctrl+Alt+E"))
	require.NoError(t, other.SetActive(id))

	assert.False(t, h.reg.Press("Ctrl+Alt+E"))
	require.NoError(t, h.ctrl.Reload(context.Background()))
	assert.True(t, h.reg.Press("Ctrl+Alt+E"))
	assert.Equal(t, id, h.ctrl.Status().ActiveRecipeID)
}

func TestStopPersistsAndReleases(t *testing.T) {
	h := newHarness(t, nil)
	id := h.activate(t, "Upper", model.Step("uppercase"))
	h.start(t)
	require.Positive(t, h.reg.Registered())

	_, err := h.ctrl.Toggle(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Stop())
	assert.False(t, h.ctrl.Running())
	assert.Zero(t, h.reg.Registered())

	cfg, err := config.Load(h.paths.Config)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, id, cfg.ActiveID())

	assert.True(t, errors.Is(h.ctrl.Reload(context.Background()), model.ErrServiceNotRunning))
	require.NoError(t, h.ctrl.Stop())
}

func TestStartTwice(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	assert.ErrorIs(t, h.ctrl.Start(context.Background()), ErrAlreadyRunning)
}

type fakeClip struct {
	text   string
	writes []string
}

func (f *fakeClip) Read(ctx context.Context) (string, error) { return f.text, nil }

func (f *fakeClip) WriteBack(ctx context.Context, text string) error {
	f.writes = append(f.writes, text)
	f.text = text
	return nil
}

func TestApplyOnce(t *testing.T) {
	ctx := context.Background()

	clip := &fakeClip{text: "b\na"}
	res, err := ApplyOnce(ctx, clip, []model.Transform{model.Step("reverse_lines"), model.Step("add_line_numbers")})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "1: a\n2: b", clip.text)

	clip = &fakeClip{text: "same"}
	res, err = ApplyOnce(ctx, clip, nil)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, clip.writes)

	clip = &fakeClip{text: "bad \xff"}
	_, err = ApplyOnce(ctx, clip, []model.Transform{model.Step("uppercase")})
	assert.True(t, errors.Is(err, model.ErrInvalidText))
	assert.Empty(t, clip.writes)
}

func TestLauncher(t *testing.T) {
	var calls [][]string
	l := &Launcher{
		Executable: "cliprecipe",
		start: func(name string, args ...string) error {
			assert.Equal(t, "cliprecipe", name)
			calls = append(calls, args)
			return nil
		},
	}
	ctx := context.Background()
	l.Notify(ctx, Notification{Kind: NotifyOpenDashboard})
	l.Notify(ctx, Notification{Kind: NotifyOpenQuickMenu})
	l.Notify(ctx, Notification{Kind: NotifyTransformed})
	assert.Equal(t, [][]string{{"dashboard"}, {"dashboard", "--quick"}}, calls)
}

// slowWriter 写入前先通知再等待 delay
type slowWriter struct {
	*clipboard.MemoryBackend
	started chan struct{}
	delay   time.Duration
}

func (s *slowWriter) WriteText(ctx context.Context, text string) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	time.Sleep(s.delay)
	return s.MemoryBackend.WriteText(ctx, text)
}

func TestRunFinishesInFlightWriteOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t, "Upper", model.Step("uppercase"))
	slow := &slowWriter{MemoryBackend: h.backend, started: make(chan struct{}, 1), delay: 150 * time.Millisecond}
	h.ctrl = New(Deps{
		Store:      h.store,
		Watcher:    clipboard.NewWatcher(slow, nil, clipboard.WithInterval(tick)),
		Hotkeys:    h.disp,
		History:    h.history,
		ConfigPath: h.paths.Config,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	h.backend.SetText("hello")
	select {
	case <-slow.started:
	case <-time.After(waitFor):
		t.Fatal("write did not start")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, "HELLO", h.backend.Text())
	items, err := h.history.Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "HELLO", items[0].Transformed)
}

func TestTransformAndCopyAreNotReprocessed(t *testing.T) {
	h := newHarness(t, nil)
	h.activate(t, "Upper", model.Step("uppercase"))
	h.start(t)
	ctx := context.Background()

	h.backend.SetText("hello")
	require.Eventually(t, h.textIs("HELLO"), waitFor, tick)

	res, err := h.ctrl.Transform(ctx, "lower", nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "hello", h.backend.Text(), "active recipe does not undo the one-shot")

	require.NoError(t, h.ctrl.Copy(ctx, "Mixed Case"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "Mixed Case", h.backend.Text())
	assert.Equal(t, 3, h.backend.Writes())

	_, err = h.ctrl.Transform(ctx, "teleport", nil)
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))
}

func TestUpdateRecipesRunsInLoop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	err := h.ctrl.UpdateRecipes(ctx, func(*recipe.Store) error { return nil })
	assert.True(t, errors.Is(err, model.ErrServiceNotRunning))

	h.start(t)
	var id string
	require.NoError(t, h.ctrl.UpdateRecipes(ctx, func(s *recipe.Store) error {
		var err error
		if id, err = s.Create("Quiet", []model.Transform{model.Step("lowercase")}); err != nil {
			return err
		}
		if err := s.SetHotkey(id, "Ctrl+Alt+Q"); err != nil {
			return err
		}
		return s.SetActive(id)
	}))
	assert.Equal(t, id, h.ctrl.Status().ActiveRecipeID)
	assert.True(t, h.reg.Press("Ctrl+Alt+Q"))

	err = h.ctrl.UpdateRecipes(ctx, func(s *recipe.Store) error { return s.Delete("missing") })
	assert.True(t, errors.Is(err, model.ErrRecipeNotFound))
}
