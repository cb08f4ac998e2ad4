package service

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"cliprecipe/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIPC(t *testing.T, cmd Commander) *Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(cmd, nil).Handler())
	client := NewClient(srv.URL)
	t.Cleanup(func() {
		client.Close()
		srv.Close()
	})
	return client
}

func TestIPC_RoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	id, err := h.store.Create("Upper", []model.Transform{model.Step("uppercase")})
	require.NoError(t, err)
	h.backend.SetText("via ipc")
	h.start(t)
	client := newIPC(t, h.ctrl)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.True(t, st.Enabled)
	assert.NotEmpty(t, st.Hotkeys)

	enabled, err := client.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	changed, err := client.ApplyRecipe(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "VIA IPC", h.backend.Text())

	_, err = client.ApplyRecipe(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrRecipeNotFound))

	require.NoError(t, client.Reload(ctx))

	changed, err = client.Transform(ctx, "lowercase", nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "via ipc", h.backend.Text())

	_, err = client.Transform(ctx, "teleport", nil)
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))

	require.NoError(t, client.Copy(ctx, "copied"))
	assert.Equal(t, "copied", h.backend.Text())
}

func TestIPC_StoppedControllerReportsNotRunning(t *testing.T) {
	h := newHarness(t, nil)
	client := newIPC(t, h.ctrl)

	_, err := client.Toggle(context.Background())
	assert.True(t, errors.Is(err, model.ErrServiceNotRunning))

	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Running)
}

func TestClient_NoServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient(addr)
	defer client.Close()
	err = client.Ping(context.Background())
	assert.True(t, errors.Is(err, model.ErrServiceNotRunning))
}

func TestServe_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = NewServer(New(Deps{}), nil).Serve(context.Background(), ln.Addr().String())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(New(Deps{}), nil).Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}
