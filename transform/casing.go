package transform

import (
	"regexp"
	"strings"
	"unicode"
)

func init() {
	register("lowercase", "小写", CategoryCase, lowercase, "lower")
	register("uppercase", "大写", CategoryCase, uppercase, "upper")
	register("title_case", "标题格式", CategoryCase, titleCase, "titlecase", "title")
	register("sentence_case", "句首大写", CategoryCase, sentenceCase, "sentencecase", "sentence")
	register("camel_case", "camelCase", CategoryCase, wordCase(joinCamel), "camelcase", "camel")
	register("pascal_case", "PascalCase", CategoryCase, wordCase(joinPascal), "pascalcase", "pascal")
	register("snake_case", "snake_case", CategoryCase, wordCase(joinWith("_", strings.ToLower)), "snakecase", "snake")
	register("screaming_snake_case", "SCREAMING_SNAKE_CASE", CategoryCase, wordCase(joinWith("_", strings.ToUpper)), "screaming", "constant")
	register("kebab_case", "kebab-case", CategoryCase, wordCase(joinWith("-", strings.ToLower)), "kebabcase", "kebab")
}

var wordRe = regexp.MustCompile(`\S+`)

func lowercase(text string, _ Params) string { return strings.ToLower(text) }

func uppercase(text string, _ Params) string { return strings.ToUpper(text) }

// titleCase 每个以空白分隔的单词中第一个字母大写，其余小写，空白保持不变
func titleCase(text string, _ Params) string {
	return wordRe.ReplaceAllStringFunc(text, func(word string) string {
		var b strings.Builder
		done := false
		for _, r := range word {
			if !done && unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
				done = true
				continue
			}
			b.WriteRune(unicode.ToLower(r))
		}
		return b.String()
	})
}

func sentenceCase(text string, _ Params) string {
	var b strings.Builder
	next := true
	for _, r := range text {
		if next && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			next = false
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		if r == '.' || r == '!' || r == '?' {
			next = true
		}
	}
	return b.String()
}

// splitWords 按大小写变化、字母数字边界以及非字母数字分隔符切分单词。
// "parseHTTPResponse2xx" -> parse HTTP Response 2 xx
func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func capitalize(w string) string {
	rs := []rune(strings.ToLower(w))
	if len(rs) == 0 {
		return ""
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

func joinCamel(words []string) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func joinPascal(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func joinWith(sep string, f func(string) string) func([]string) string {
	return func(words []string) string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = f(w)
		}
		return strings.Join(out, sep)
	}
}

// wordCase 逐行切分单词并按目标风格重新拼接
func wordCase(join func([]string) string) Func {
	return func(text string, _ Params) string {
		return mapLines(text, func(line string) string {
			return join(splitWords(line))
		})
	}
}
