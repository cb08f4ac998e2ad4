package component

import (
	"errors"
	"testing"
	"time"

	"cliprecipe/config"
	"cliprecipe/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsRoundTrip(t *testing.T) {
	steps := []model.Transform{
		model.Step("trim"),
		model.Step("tabs_to_spaces", "spaces", "4"),
		model.Step("join_lines", "separator", ", "),
		model.Step("wrap_lines", "width", "40"),
	}
	text := FormatSteps(steps)
	assert.Contains(t, text, `tabs_to_spaces {spaces: "4"}`)

	got, err := ParseSteps(text)
	require.NoError(t, err)
	if diff := cmp.Diff(steps, got); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSteps(t *testing.T) {
	got, err := ParseSteps("\n# 注释\n  UPPER  \nsort-lines\n")
	require.NoError(t, err)
	assert.Equal(t, []model.Transform{model.Step("uppercase"), model.Step("sort_lines")}, got)

	_, err = ParseSteps("teleport")
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))

	_, err = ParseSteps("trim {broken")
	assert.Error(t, err)

	got, err = ParseSteps("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStepsSummary(t *testing.T) {
	assert.Equal(t, "（无步骤）", StepsSummary(nil))
	assert.Contains(t, StepsSummary([]model.Transform{model.Step("trim"), model.Step("uppercase")}), " → ")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a ⏎ b", Preview(" a\nb \n", 10))
	assert.Equal(t, "你好...", Preview("你好世界", 2))
	assert.Equal(t, "short", Preview("short", 5))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Second, "0秒前"},
		{30 * time.Second, "30秒前"},
		{5 * time.Minute, "5分钟前"},
		{3 * time.Hour, "3小时前"},
		{2 * 24 * time.Hour, "2天前"},
		{10 * 24 * time.Hour, "2024-04-30 12:00"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatAge(now.Add(-c.ago), now))
	}
}

func TestRecipeTitle(t *testing.T) {
	r := model.Recipe{Name: "Clean Code", Icon: "💻", Hotkey: "Ctrl+Alt+C"}
	assert.Equal(t, "💻 Clean Code  [Ctrl+Alt+C]", RecipeTitle(r))
	assert.Equal(t, "Plain", RecipeTitle(model.Recipe{Name: "Plain"}))
}

func validDraft() SettingsDraft {
	return SettingsDraft{
		Enabled:        false,
		PollIntervalMs: "500",
		WatchMode:      string(config.WatchNotify),
		Backend:        string(config.BackendAtotto),
		Hotkeys: map[model.ActionKind]string{
			model.ActionToggle:        "shift+ctrl+t",
			model.ActionOpenDashboard: "Ctrl+Alt+D",
		},
		HistoryEnabled: true,
		HistoryType:    string(config.StorageTypeSQLite),
		MaxItems:       "50",
		MySQLPort:      "3307",
	}
}

func TestSettingsDraft_ApplyTo(t *testing.T) {
	cfg := config.Default()
	cfg.SetActiveID("keep-me")
	require.NoError(t, validDraft().ApplyTo(cfg))

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 500, cfg.PollIntervalMs)
	assert.Equal(t, config.WatchNotify, cfg.WatchMode)
	assert.Equal(t, config.StorageTypeSQLite, cfg.History.Type)
	assert.Equal(t, 50, cfg.History.MaxItems)
	assert.Equal(t, 3307, cfg.History.MySQL.Port)
	assert.Equal(t, "keep-me", cfg.ActiveID())
	assert.Equal(t, []model.HotkeyBinding{
		{Combination: "Ctrl+Shift+T", Action: model.HotkeyAction{Kind: model.ActionToggle}},
		{Combination: "Ctrl+Alt+D", Action: model.HotkeyAction{Kind: model.ActionOpenDashboard}},
	}, cfg.HotkeyBindings)
}

func TestSettingsDraft_RejectsInvalid(t *testing.T) {
	for name, mutate := range map[string]func(d *SettingsDraft){
		"poll":     func(d *SettingsDraft) { d.PollIntervalMs = "fast" },
		"max":      func(d *SettingsDraft) { d.MaxItems = "0" },
		"port":     func(d *SettingsDraft) { d.MySQLPort = "-1" },
		"combo":    func(d *SettingsDraft) { d.Hotkeys[model.ActionToggle] = "T" },
		"conflict": func(d *SettingsDraft) { d.Hotkeys[model.ActionOpenQuickMenu] = "Ctrl+Alt+D" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			before := *cfg
			d := validDraft()
			mutate(&d)
			assert.Error(t, d.ApplyTo(cfg))
			assert.Equal(t, before.PollIntervalMs, cfg.PollIntervalMs)
			assert.Equal(t, before.Enabled, cfg.Enabled)
		})
	}

	d := validDraft()
	d.Hotkeys[model.ActionOpenQuickMenu] = "Ctrl+Alt+D"
	assert.True(t, errors.Is(d.ApplyTo(config.Default()), model.ErrHotkeyConflict))
}
