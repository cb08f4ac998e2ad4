package transform

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

func init() {
	register("sort_lines", "排序 (A-Z)", CategoryLines, sortLines, "sort")
	register("sort_lines_reverse", "排序 (Z-A)", CategoryLines, sortLinesReverse, "sort-desc")
	register("reverse_lines", "反转行顺序", CategoryLines, reverseLines, "reverse")
	register("remove_duplicate_lines", "删除重复行", CategoryLines, removeDuplicateLines, "remove-duplicates", "unique", "dedup")
	register("add_line_numbers", "添加行号", CategoryLines, addLineNumbers, "number", "line-numbers")
	register("remove_line_numbers", "删除行号", CategoryLines, removeLineNumbers, "unnumber")
	register("remove_line_numbers_stuck", "删除紧贴的行号", CategoryLines, removeLineNumbersStuck)
	register("join_lines", "合并为一行", CategoryLines, joinLines, "join")
	register("split_to_lines", "拆分为多行", CategoryLines, splitToLines, "split")
	register("wrap_lines", "按宽度换行", CategoryLines, wrapLines, "wrap")
}

var (
	lineNumberRe      = regexp.MustCompile(`^\s*\d+[.:]\s*`)
	stuckLineNumberRe = regexp.MustCompile(`^(\s*)\d+`)
)

// sortLines 稳定排序，order=desc 时降序
func sortLines(text string, p Params) string {
	lines := splitLines(text)
	if p.Choice("order", "asc", "asc", "desc") == "desc" {
		slices.SortStableFunc(lines, func(a, b string) int { return strings.Compare(b, a) })
	} else {
		slices.SortStableFunc(lines, strings.Compare)
	}
	return strings.Join(lines, "\n")
}

func sortLinesReverse(text string, _ Params) string {
	return sortLines(text, Params{"order": "desc"})
}

func reverseLines(text string, _ Params) string {
	lines := splitLines(text)
	slices.Reverse(lines)
	return strings.Join(lines, "\n")
}

// removeDuplicateLines 保留首次出现的行；scope=consecutive 时只合并相邻重复
func removeDuplicateLines(text string, p Params) string {
	if p.Choice("scope", "global", "global", "consecutive") == "consecutive" {
		var out []string
		for i, l := range splitLines(text) {
			if i > 0 && l == out[len(out)-1] {
				continue
			}
			out = append(out, l)
		}
		return strings.Join(out, "\n")
	}
	seen := make(map[string]struct{})
	return filterLines(text, func(l string) bool {
		if _, ok := seen[l]; ok {
			return false
		}
		seen[l] = struct{}{}
		return true
	})
}

// addLineNumbers 行号从 1 开始，宽度与最大行号一致
func addLineNumbers(text string, _ Params) string {
	lines := splitLines(text)
	width := len(strconv.Itoa(len(lines)))
	for i, l := range lines {
		lines[i] = fmt.Sprintf("%*d: %s", width, i+1, l)
	}
	return strings.Join(lines, "\n")
}

func removeLineNumbers(text string, _ Params) string {
	return mapLines(text, func(l string) string {
		return lineNumberRe.ReplaceAllString(l, "")
	})
}

// removeLineNumbersStuck 处理 "1import React" 这类行号与内容之间没有分隔符的情况
func removeLineNumbersStuck(text string, _ Params) string {
	return mapLines(text, func(l string) string {
		return stuckLineNumberRe.ReplaceAllString(l, "${1}")
	})
}

func joinLines(text string, p Params) string {
	sep, ok := p.Raw("separator")
	if !ok {
		sep = " "
	}
	return strings.Join(splitLines(text), sep)
}

func splitToLines(text string, p Params) string {
	return strings.Join(strings.Split(text, p.String("delimiter", ",")), "\n")
}

func wrapLines(text string, p Params) string {
	width := p.Int("width", 80, 1, 10000)
	return mapLines(text, func(line string) string {
		if utf8.RuneCountInString(line) <= width {
			return line
		}
		var out []string
		cur := ""
		for _, word := range strings.Fields(line) {
			switch {
			case cur == "":
				cur = word
			case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
				cur += " " + word
			default:
				out = append(out, cur)
				cur = word
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
		return strings.Join(out, "\n")
	})
}
