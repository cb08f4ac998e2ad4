package component

import (
	"fmt"
	"sort"
	"strings"

	"cliprecipe/model"
	"cliprecipe/transform"

	"gopkg.in/yaml.v3"
)

// FormatSteps 把步骤写成每行一个的文本，参数用 YAML 行内映射，例如
//
//	tabs_to_spaces {spaces: "4"}
func FormatSteps(steps []model.Transform) string {
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		if len(s.Params) == 0 {
			lines = append(lines, s.Kind)
			continue
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: k},
				&yaml.Node{Kind: yaml.ScalarNode, Value: s.Params[k], Style: yaml.DoubleQuotedStyle},
			)
		}
		out, err := yaml.Marshal(node)
		if err != nil {
			lines = append(lines, s.Kind)
			continue
		}
		lines = append(lines, s.Kind+" "+strings.TrimSpace(string(out)))
	}
	return strings.Join(lines, "\n")
}

// ParseSteps 解析 FormatSteps 的输出，空行与 # 开头的行被忽略
func ParseSteps(text string) ([]model.Transform, error) {
	var steps []model.Transform
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kind, rest, _ := strings.Cut(line, " ")
		step := model.Transform{Kind: kind}
		if rest = strings.TrimSpace(rest); rest != "" {
			if err := yaml.Unmarshal([]byte(rest), &step.Params); err != nil {
				return nil, fmt.Errorf("第 %d 行参数格式错误: %w", i+1, err)
			}
		}
		steps = append(steps, step)
	}
	return transform.Canonical(steps)
}

// StepsSummary 列表中显示的步骤摘要
func StepsSummary(steps []model.Transform) string {
	if len(steps) == 0 {
		return "（无步骤）"
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Kind
		if k, ok := transform.Lookup(s.Kind); ok {
			names[i] = k.Name
		}
	}
	return strings.Join(names, " → ")
}
