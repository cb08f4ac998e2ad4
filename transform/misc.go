package transform

import (
	"regexp"
	"strconv"
	"strings"
)

func init() {
	register("extract_numbers", "提取数字", CategoryMisc, extractNumbers, "numbers")
	register("slugify", "转换为 URL Slug", CategoryMisc, slugify, "slug")
	register("regex_replace", "正则替换", CategoryMisc, regexReplace, "regex")
	register("find_replace", "查找替换", CategoryMisc, findReplace, "replace")
	register("add_prefix", "添加前缀", CategoryMisc, addPrefix, "prefix")
	register("add_suffix", "添加后缀", CategoryMisc, addSuffix, "suffix")
	register("remove_prefix", "删除前缀", CategoryMisc, removePrefix)
	register("remove_suffix", "删除后缀", CategoryMisc, removeSuffix)
}

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSepRe     = regexp.MustCompile(`[\s_]+`)
)

func extractNumbers(text string, _ Params) string {
	kept := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == ' ' || r == '\n' {
			return r
		}
		return ' '
	}, text)
	var out []string
	for _, f := range strings.Fields(kept) {
		if _, err := strconv.ParseFloat(f, 64); err == nil {
			out = append(out, f)
		}
	}
	return strings.Join(out, "\n")
}

func slugify(text string, _ Params) string {
	s := slugInvalidRe.ReplaceAllString(strings.ToLower(text), "")
	return strings.Trim(slugSepRe.ReplaceAllString(s, "-"), "-")
}

// regexReplace 表达式非法时不做任何修改
func regexReplace(text string, p Params) string {
	pattern := p.String("pattern", "")
	if pattern == "" {
		return text
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return text
	}
	repl, _ := p.Raw("replacement")
	return re.ReplaceAllString(text, repl)
}

func findReplace(text string, p Params) string {
	find, _ := p.Raw("find")
	if find == "" {
		return text
	}
	repl, _ := p.Raw("replace")
	return strings.ReplaceAll(text, find, repl)
}

func addPrefix(text string, p Params) string {
	prefix, _ := p.Raw("prefix")
	return prefix + text
}

func addSuffix(text string, p Params) string {
	suffix, _ := p.Raw("suffix")
	return text + suffix
}

func removePrefix(text string, p Params) string {
	prefix, _ := p.Raw("prefix")
	return strings.TrimPrefix(text, prefix)
}

func removeSuffix(text string, p Params) string {
	suffix, _ := p.Raw("suffix")
	return strings.TrimSuffix(text, suffix)
}
