package recipe

import (
	"time"

	"cliprecipe/model"

	"github.com/google/uuid"
)

// 内置配方 ID 由名称派生，重新初始化时保持不变
var builtinNamespace = uuid.MustParse("6f1c2b9e-3d4a-4e8b-9a57-2c1e0d7f5b31")

// BuiltinID 内置配方的固定 ID
func BuiltinID(name string) string {
	return uuid.NewSHA1(builtinNamespace, []byte(name)).String()
}

func builtin(name, desc, icon string, steps ...model.Transform) model.Recipe {
	return model.Recipe{
		ID:          BuiltinID(name),
		Name:        name,
		Description: desc,
		Icon:        icon,
		Steps:       steps,
	}
}

// Defaults 首次初始化时写入的内置配方
func Defaults(now time.Time) []model.Recipe {
	recipes := []model.Recipe{
		builtin("Plain Text", "去除所有格式并规范化空白", "📝",
			model.Step("strip_formatting"),
			model.Step("fix_smart_quotes"),
			model.Step("normalize_whitespace"),
		),
		builtin("Clean Code", "整理代码片段", "💻",
			model.Step("fix_smart_quotes"),
			model.Step("trim_lines"),
			model.Step("unix_line_endings"),
			model.Step("tabs_to_spaces", "spaces", "4"),
		),
		builtin("Unique Lines", "删除重复行", "🔢",
			model.Step("trim_lines"),
			model.Step("remove_duplicate_lines"),
			model.Step("remove_empty_lines"),
		),
		builtin("Sort Lines", "按字母顺序排序各行", "📊",
			model.Step("trim_lines"),
			model.Step("sort_lines"),
		),
		builtin("Privacy Mode", "删除邮箱、电话号码和链接等个人信息", "🔒",
			model.Step("remove_emails"),
			model.Step("remove_phone_numbers"),
			model.Step("remove_urls"),
		),
		builtin("Academic", "整理用于引用的学术文本", "📚",
			model.Step("fix_smart_quotes"),
			model.Step("normalize_whitespace"),
			model.Step("trim_lines"),
		),
		builtin("No Emoji", "删除所有表情符号", "🚫",
			model.Step("remove_emojis"),
		),
	}
	for i := range recipes {
		recipes[i].CreatedAt = now
		recipes[i].ModifiedAt = now
	}
	return recipes
}
