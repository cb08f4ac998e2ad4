package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"cliprecipe/clipboard"
	"cliprecipe/config"
	"cliprecipe/hotkey"
	"cliprecipe/model"
	"cliprecipe/service"
	"cliprecipe/ui/component"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeAddr 返回一个当前无人监听的本机地址
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func newApp(t *testing.T) (*Application, *clipboard.MemoryBackend) {
	t.Helper()
	backend := clipboard.NewMemoryBackend()
	a, err := New(Options{Home: t.TempDir(), IPCAddr: freeAddr(t), Backend: backend})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, backend
}

func TestApply_LocalWhenServiceStopped(t *testing.T) {
	a, backend := newApp(t)
	ctx := context.Background()
	_, err := a.Store().Create("Shout", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)

	backend.SetText("hello")
	res, err := a.Apply(ctx, "shout")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "HELLO", backend.Text())

	items, err := a.History().Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shout", items[0].RecipeName)

	_, err = a.Apply(ctx, "nope")
	assert.True(t, errors.Is(err, model.ErrRecipeNotFound))
}

func TestTransform(t *testing.T) {
	a, backend := newApp(t)
	ctx := context.Background()

	backend.SetText("\tx")
	res, err := a.Transform(ctx, "tabs", map[string]string{"spaces": "2"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "  x", backend.Text())

	_, err = a.Transform(ctx, "teleport", nil)
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))
}

func TestShowAndCopy(t *testing.T) {
	a, backend := newApp(t)
	ctx := context.Background()

	backend.SetImage()
	_, err := a.Show(ctx)
	assert.ErrorIs(t, err, clipboard.ErrNoText)

	require.NoError(t, a.Copy(ctx, "copied"))
	text, err := a.Show(ctx)
	require.NoError(t, err)
	assert.Equal(t, "copied", text)
}

func TestToggleAndStatusWithoutService(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	_, err := a.Toggle(ctx)
	assert.True(t, errors.Is(err, model.ErrServiceNotRunning))

	require.NoError(t, a.Store().SetActive(a.Store().List()[0].ID))
	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.True(t, st.Enabled)
	assert.Equal(t, a.Store().List()[0].Name, st.ActiveRecipe)
	assert.Len(t, st.Hotkeys, 3)
}

func TestExportImport(t *testing.T) {
	src, _ := newApp(t)
	_, err := src.Store().Create("Mine", []model.Transform{model.Step("trim")})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.ExportRecipes(&buf))

	dst, _ := newApp(t)
	before := len(dst.Store().List())
	n, err := dst.ImportRecipes(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, before+1, n)
	_, err = dst.Store().Find("mine")
	assert.NoError(t, err)
}

func TestRunService(t *testing.T) {
	a, backend := newApp(t)
	id, err := a.Store().Create("Shout", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)
	backend.SetText("through ipc")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.RunService(ctx, ServiceOptions{
			Registrar: hotkey.NewMemoryRegistrar(),
			Notifier:  service.LogNotifier{},
		})
	}()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("service did not stop")
		}
	}()

	require.Eventually(t, func() bool {
		st, err := a.Status(context.Background())
		return err == nil && st.Running
	}, 3*time.Second, 10*time.Millisecond)

	res, err := a.Apply(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "THROUGH IPC", backend.Text())

	enabled, err := a.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)

	// 单次转换与复制同样交给服务写入
	res, err = a.Transform(context.Background(), "lower", nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "through ipc", backend.Text())
	require.NoError(t, a.Copy(context.Background(), "from history"))
	assert.Equal(t, "from history", backend.Text())

	err = a.RunService(context.Background(), ServiceOptions{Registrar: hotkey.NewMemoryRegistrar()})
	assert.ErrorIs(t, err, service.ErrAlreadyRunning)
}

func TestDesktopServices(t *testing.T) {
	a, backend := newApp(t)
	ds := newDesktopServices(context.Background(), a)

	require.NoError(t, ds.SaveRecipe(component.RecipeDraft{
		Name:   "Tidy",
		Icon:   "🧹",
		Hotkey: "alt+ctrl+9",
		Steps:  []model.Transform{model.Step("trim")},
	}))
	r, err := a.Store().Find("tidy")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Alt+9", r.Hotkey)

	require.NoError(t, ds.SaveRecipe(component.RecipeDraft{
		ID:    r.ID,
		Name:  "Tidier",
		Steps: []model.Transform{model.Step("trim"), model.Step("lowercase")},
	}))
	r, err = a.Store().Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tidier", r.Name)
	assert.Empty(t, r.Hotkey)
	assert.Len(t, r.Steps, 2)
	assert.Error(t, ds.SaveRecipe(component.RecipeDraft{Name: " "}))

	// 服务未运行时直接修改配置
	enabled, err := ds.Toggle()
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, ds.Enabled())

	backend.SetText("  Some Text ")
	changed, err := ds.ApplyRecipe(r.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	items, err := ds.History("some")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "some text", items[0].Transformed)
	require.NoError(t, ds.ClearHistory())

	// 切换历史存储类型会重新打开存储
	draft := component.SettingsDraft{
		Enabled:        true,
		PollIntervalMs: "300",
		WatchMode:      string(config.WatchPoll),
		Backend:        string(config.BackendAuto),
		Hotkeys:        map[model.ActionKind]string{model.ActionToggle: "Ctrl+Shift+T"},
		HistoryEnabled: true,
		HistoryType:    string(config.StorageTypeSQLite),
		MaxItems:       "20",
	}
	require.NoError(t, ds.SaveSettings(draft))
	assert.Equal(t, config.StorageTypeSQLite, a.Config().History.Type)
	assert.True(t, ds.Config().Enabled)
	_, err = ds.History("")
	require.NoError(t, err)

	draft.PollIntervalMs = "never"
	assert.Error(t, ds.SaveSettings(draft))
}
