package transform

import (
	"errors"
	"testing"

	"cliprecipe/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPipeline_EmptyIsIdentity(t *testing.T) {
	for _, text := range []string{"", "hello", "  a\n\nb  ", "ÄÖÜ 😀"} {
		got, err := ApplyPipeline(text, nil)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestApplyPipeline_Order(t *testing.T) {
	upTrim := []model.Transform{model.Step("uppercase"), model.Step("trim")}
	trimUp := []model.Transform{model.Step("trim"), model.Step("uppercase")}

	got, err := ApplyPipeline("  hello  ", upTrim)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", got)

	got, err = ApplyPipeline("  hello  ", trimUp)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", got)

	got, err = ApplyPipeline("b\na", []model.Transform{model.Step("reverse_lines"), model.Step("add_line_numbers")})
	require.NoError(t, err)
	assert.Equal(t, "1: a\n2: b", got)

	// 先编号再反转：编号跟随原来的行
	got, err = ApplyPipeline("b\na", []model.Transform{model.Step("add_line_numbers"), model.Step("reverse_lines")})
	require.NoError(t, err)
	assert.Equal(t, "2: a\n1: b", got)
}

func TestApplyPipeline_UnknownKindIsNoop(t *testing.T) {
	got, err := ApplyPipeline("Hello", []model.Transform{model.Step("does_not_exist"), model.Step("lowercase")})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestApplyPipeline_InvalidInput(t *testing.T) {
	bad := string([]byte{0xff, 0xfe, 'a'})
	got, err := ApplyPipeline(bad, []model.Transform{model.Step("uppercase")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidText))
	assert.Equal(t, bad, got)
}

func TestApplyPipeline_FaultReturnsPartialResult(t *testing.T) {
	register("test_panic", "panic", CategoryMisc, func(string, Params) string { panic("boom") })
	defer delete(registry, "test_panic")

	got, err := ApplyPipeline(" x ", []model.Transform{model.Step("trim"), model.Step("test_panic"), model.Step("uppercase")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTransformFault))
	assert.Equal(t, "x", got)
}

func TestApply_EmptyInputEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		assert.Equal(t, "", Apply("", model.Transform{Kind: k.ID, Params: map[string]string{"prefix": "p", "suffix": "s"}}), k.ID)
	}
}

func TestKinds_CoverCategories(t *testing.T) {
	kinds := Kinds()
	assert.GreaterOrEqual(t, len(kinds), 40)

	cats := map[string]bool{}
	for _, k := range kinds {
		cats[k.Category] = true
	}
	for _, c := range []string{CategoryWhitespace, CategoryCase, CategoryLines, CategoryCleanup, CategoryRemoval, CategoryCode, CategoryHTML} {
		assert.True(t, cats[c], c)
	}
}

func TestLookup(t *testing.T) {
	cases := map[string]string{
		"lowercase":         "lowercase",
		"lower":             "lowercase",
		"Upper":             "uppercase",
		"remove-duplicates": "remove_duplicate_lines",
		"unique":            "remove_duplicate_lines",
		"camelcase":         "camel_case",
		"snake-case":        "snake_case",
		"crlf":              "windows_line_endings",
		"html-encode":       "encode_html_entities",
	}
	for in, want := range cases {
		k, ok := Lookup(in)
		require.True(t, ok, in)
		assert.Equal(t, want, k.ID, in)
	}
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	got, err := Canonical([]model.Transform{model.Step("upper"), model.Step("tabs", "spaces", "2")})
	require.NoError(t, err)
	want := []model.Transform{model.Step("uppercase"), model.Step("tabs_to_spaces", "spaces", "2")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Canonical() mismatch (-want +got):\n%s", diff)
	}

	_, err = Canonical([]model.Transform{model.Step("bogus")})
	assert.True(t, errors.Is(err, model.ErrUnknownTransform))
}

func TestParams(t *testing.T) {
	p := Params{"n": "7", "bad": "x", "big": "99", "order": "DESC", "empty": ""}
	assert.Equal(t, 7, p.Int("n", 4, 1, 16))
	assert.Equal(t, 4, p.Int("bad", 4, 1, 16))
	assert.Equal(t, 4, p.Int("big", 4, 1, 16))
	assert.Equal(t, 4, p.Int("missing", 4, 1, 16))
	assert.Equal(t, "desc", p.Choice("order", "asc", "asc", "desc"))
	assert.Equal(t, "def", p.String("empty", "def"))
	v, ok := p.Raw("empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}
