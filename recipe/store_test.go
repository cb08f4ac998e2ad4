package recipe

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"cliprecipe/config"
	"cliprecipe/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var builtinNames = []string{"Plain Text", "Clean Code", "Unique Lines", "Sort Lines", "Privacy Mode", "Academic", "No Emoji"}

func names(recipes []model.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Name
	}
	return out
}

func newMemStore(t *testing.T) (*Store, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository(nil)
	s, err := NewStore(repo, nil)
	require.NoError(t, err)
	return s, repo
}

func TestNewStore_SeedsBuiltinsOnce(t *testing.T) {
	s, repo := newMemStore(t)
	if diff := cmp.Diff(builtinNames, names(s.List())); diff != "" {
		t.Errorf("seeded names mismatch (-want +got):\n%s", diff)
	}

	plain, err := s.Find("plain text")
	require.NoError(t, err)
	assert.Equal(t, BuiltinID("Plain Text"), plain.ID)

	// 用户修改内置配方后重新加载不会被覆盖
	require.NoError(t, s.Update(plain.ID, []model.Transform{model.Step("uppercase")}))
	s2, err := NewStore(repo, nil)
	require.NoError(t, err)
	got, err := s2.Get(plain.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Transform{model.Step("uppercase")}, got.Steps)

	// 用户删光全部配方后也不会重新初始化
	for _, r := range s2.List() {
		require.NoError(t, s2.Delete(r.ID))
	}
	s3, err := NewStore(repo, nil)
	require.NoError(t, err)
	assert.Empty(t, s3.List())
}

func TestCreateUpdateDelete(t *testing.T) {
	s, _ := newMemStore(t)

	id, err := s.Create("  Shout ", []model.Transform{model.Step("upper"), model.Step("trim")})
	require.NoError(t, err)
	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Shout", r.Name)
	assert.Equal(t, []model.Transform{model.Step("uppercase"), model.Step("trim")}, r.Steps)

	require.NoError(t, s.Rename(id, "Loud"))
	require.NoError(t, s.SetDetails(id, "caps", "📢"))
	require.NoError(t, s.SetHotkey(id, "shift+ctrl+1"))
	r, _ = s.Get(id)
	assert.Equal(t, "Loud", r.Name)
	assert.Equal(t, "Ctrl+Shift+1", r.Hotkey)
	assert.False(t, r.ModifiedAt.Before(r.CreatedAt))

	_, err = s.Create("bad", []model.Transform{model.Step("nope")})
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))
	_, err = s.Create("   ", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.True(t, errors.Is(s.SetHotkey(id, "Ctrl"), model.ErrInvalidCombination))

	require.NoError(t, s.Delete(id))
	_, err = s.Get(id)
	assert.True(t, errors.Is(err, model.ErrRecipeNotFound))
}

func TestIDsNeverReused(t *testing.T) {
	s, _ := newMemStore(t)
	seen := map[string]bool{}
	for _, r := range s.List() {
		seen[r.ID] = true
	}
	for i := 0; i < 20; i++ {
		id, err := s.Create("tmp", nil)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
		require.NoError(t, s.Delete(id))
	}
}

func TestUnknownIDLeavesStateUntouched(t *testing.T) {
	s, _ := newMemStore(t)
	plain := BuiltinID("Plain Text")
	require.NoError(t, s.SetActive(plain))
	before := s.List()

	for _, err := range []error{
		s.Update("missing", nil),
		s.Update("missing", []model.Transform{model.Step("teleport")}),
		s.Delete("missing"),
		s.SetActive("missing"),
		s.Rename("missing", "x"),
	} {
		assert.True(t, errors.Is(err, model.ErrRecipeNotFound))
	}
	assert.Equal(t, plain, s.ActiveID())
	if diff := cmp.Diff(before, s.List()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestDeleteActiveClearsPointer(t *testing.T) {
	s, repo := newMemStore(t)
	id := BuiltinID("Sort Lines")
	require.NoError(t, s.SetActive(id))
	r, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "Sort Lines", r.Name)

	require.NoError(t, s.Delete(id))
	_, ok = s.Active()
	assert.False(t, ok)
	persisted, _ := repo.LoadActive()
	assert.Equal(t, "", persisted)
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	s, repo := newMemStore(t)
	repo.FailSave = errors.New("disk full")

	_, err := s.Create("x", nil)
	require.Error(t, err)
	assert.Len(t, s.List(), len(builtinNames))

	err = s.SetActive(BuiltinID("Academic"))
	require.Error(t, err)
	assert.Equal(t, "", s.ActiveID())
}

func TestReloadDropsDanglingActive(t *testing.T) {
	repo := NewMemoryRepository([]model.Recipe{{ID: "a", Name: "A"}})
	require.NoError(t, repo.SaveActive("ghost"))
	s, err := NewStore(repo, nil)
	require.NoError(t, err)
	assert.Equal(t, "", s.ActiveID())
}

func TestFileRepository_RoundTrip(t *testing.T) {
	paths := config.PathsIn(t.TempDir())
	s, err := NewStore(NewFileRepository(paths), nil)
	require.NoError(t, err)
	_, err = os.Stat(paths.Recipes)
	require.NoError(t, err, "seeding writes recipes.json")

	id, err := s.Create("Mine", []model.Transform{model.Step("tabs_to_spaces", "spaces", "2")})
	require.NoError(t, err)
	require.NoError(t, s.SetActive(id))

	cfg, err := config.Load(paths.Config)
	require.NoError(t, err)
	assert.Equal(t, id, cfg.ActiveID())

	s2, err := NewStore(NewFileRepository(paths), nil)
	require.NoError(t, err)
	if diff := cmp.Diff(s.List(), s2.List()); diff != "" {
		t.Errorf("reloaded recipes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, id, s2.ActiveID())
}

func TestFileRepository_CorruptFallsBackWithoutOverwrite(t *testing.T) {
	paths := config.PathsIn(t.TempDir())
	require.NoError(t, paths.Ensure())
	require.NoError(t, os.WriteFile(paths.Recipes, []byte("[{broken"), 0o644))

	s, err := NewStore(NewFileRepository(paths), nil)
	require.NoError(t, err)
	assert.Equal(t, builtinNames, names(s.List()))

	data, err := os.ReadFile(paths.Recipes)
	require.NoError(t, err)
	assert.Equal(t, "[{broken", string(data))
}

func TestExportImport(t *testing.T) {
	src, _ := newMemStore(t)
	id, err := src.Create("Custom", []model.Transform{model.Step("join_lines", "separator", ", ")})
	require.NoError(t, err)
	require.NoError(t, src.SetHotkey(id, "Ctrl+Alt+J"))

	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf))
	assert.Contains(t, buf.String(), "version: 1")
	assert.Contains(t, buf.String(), "join_lines")

	dst, err := NewStore(NewMemoryRepository([]model.Recipe{}), nil)
	require.NoError(t, err)
	n, err := dst.Import(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, len(builtinNames)+1, n)

	custom, err := dst.Find("custom")
	require.NoError(t, err)
	assert.NotEqual(t, id, custom.ID, "imported recipes get fresh ids")
	assert.Equal(t, "Ctrl+Alt+J", custom.Hotkey)
	assert.Equal(t, []model.Transform{model.Step("join_lines", "separator", ", ")}, custom.Steps)

	// 再次导入按名称合并，不产生重复
	n, err = dst.Import(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, len(builtinNames)+1, n)
	assert.Len(t, dst.List(), len(builtinNames)+1)
}

func TestImport_RejectsUnknownKind(t *testing.T) {
	s, _ := newMemStore(t)
	body := "version: 1\nrecipes:\n  - name: Bad\n    steps:\n      - kind: teleport\n"
	_, err := s.Import(bytes.NewBufferString(body))
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))
	assert.Len(t, s.List(), len(builtinNames))
}
