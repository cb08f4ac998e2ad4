// Package transform 实现所有文本转换以及流水线组合。
//
// 每个转换都是 (text, params) -> text 的纯函数：空输入返回空输出，
// 参数非法时回退到默认值，未知类型视为空操作。只有内部故障
// （步骤 panic 或产生非法 UTF-8）才会中断流水线并返回错误。
package transform

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"cliprecipe/model"
)

// 分类名称
const (
	CategoryWhitespace = "空白处理"
	CategoryCase       = "大小写"
	CategoryLines      = "行操作"
	CategoryCleanup    = "字符清理"
	CategoryRemoval    = "内容移除"
	CategoryCode       = "代码格式"
	CategoryHTML       = "HTML"
	CategoryMisc       = "其他"
)

// Func 转换函数
type Func func(text string, p Params) string

// Kind 一种转换的元信息
type Kind struct {
	ID       string
	Name     string
	Category string
	Aliases  []string
	fn       Func
	seq      int
}

var (
	registry = map[string]*Kind{}
	aliases  = map[string]string{}
)

func register(id, name, category string, fn Func, alias ...string) {
	if _, dup := registry[id]; dup {
		panic("transform: 重复注册 " + id)
	}
	registry[id] = &Kind{ID: id, Name: name, Category: category, Aliases: alias, fn: fn, seq: len(registry)}
	for _, a := range alias {
		aliases[normalizeName(a)] = id
	}
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// Lookup 按 ID、连字符写法或别名查找转换类型
func Lookup(name string) (*Kind, bool) {
	n := normalizeName(name)
	if k, ok := registry[n]; ok {
		return k, true
	}
	if id, ok := aliases[n]; ok {
		return registry[id], true
	}
	if id, ok := aliases[strings.ReplaceAll(n, "_", "")]; ok {
		return registry[id], true
	}
	return nil, false
}

// Kinds 返回全部转换类型，按分类及注册顺序排列
func Kinds() []*Kind {
	out := make([]*Kind, 0, len(registry))
	for _, k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Canonical 校验步骤并把别名替换为标准 ID
func Canonical(steps []model.Transform) ([]model.Transform, error) {
	out := model.CloneSteps(steps)
	for i := range out {
		k, ok := Lookup(out[i].Kind)
		if !ok {
			return nil, fmt.Errorf("第 %d 步 %q: %w", i+1, out[i].Kind, model.ErrUnknownTransform)
		}
		out[i].Kind = k.ID
	}
	return out, nil
}

// Apply 执行单个转换，永远不会失败
func Apply(text string, step model.Transform) string {
	if text == "" {
		return ""
	}
	k, ok := Lookup(step.Kind)
	if !ok {
		return text
	}
	return k.fn(text, Params(step.Params))
}

// ApplyPipeline 从左到右依次执行步骤，第 i 步的输出是第 i+1 步的输入。
// 出现内部故障时返回最后一个有效的中间结果以及错误。
func ApplyPipeline(text string, steps []model.Transform) (string, error) {
	if !utf8.ValidString(text) {
		return text, model.ErrInvalidText
	}
	result := text
	for i, step := range steps {
		next, err := applyStep(result, step)
		if err != nil {
			return result, fmt.Errorf("第 %d 步 %s: %w", i+1, step.Kind, err)
		}
		result = next
	}
	return result, nil
}

func applyStep(text string, step model.Transform) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = text, fmt.Errorf("%w: %v", model.ErrTransformFault, r)
		}
	}()
	out = Apply(text, step)
	if !utf8.ValidString(out) {
		return text, model.ErrInvalidText
	}
	return out, nil
}
