//go:build !((linux && hotkey_x11) || windows || darwin)

package system

import (
	"errors"
	"testing"

	"cliprecipe/hotkey"
	"cliprecipe/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistrar_DeniedWithoutDisplaySupport(t *testing.T) {
	c, err := hotkey.ParseCombination("Ctrl+Shift+T")
	require.NoError(t, err)

	h, err := NewRegistrar().Register(c)
	assert.Nil(t, h)
	assert.True(t, errors.Is(err, model.ErrPlatformDenied))
}

func TestRegistrar_DispatcherReportsPlatformDenied(t *testing.T) {
	d := hotkey.NewDispatcher(NewRegistrar(), zap.NewNop())
	defer d.Close()

	err := d.Register(model.HotkeyBinding{
		Combination: "Ctrl+Shift+T",
		Action:      model.HotkeyAction{Kind: model.ActionToggle},
	})
	assert.True(t, errors.Is(err, model.ErrPlatformDenied))
	assert.Empty(t, d.Bindings())
}
