package transform

import "strings"

func init() {
	register("normalize_whitespace", "规范化空白", CategoryWhitespace, normalizeWhitespace, "normalize", "whitespace")
	register("trim", "去除首尾空白", CategoryWhitespace, trim)
	register("trim_lines", "逐行去除空白", CategoryWhitespace, trimLines)
	register("remove_empty_lines", "删除空行", CategoryWhitespace, removeEmptyLines, "remove-empty", "no-empty")
	register("collapse_blank_lines", "合并连续空行", CategoryWhitespace, collapseBlankLines, "collapse")
	register("strip_trailing_empty_lines", "删除末尾空行", CategoryWhitespace, stripTrailingEmptyLines)
}

// splitLines 按行切分，去掉末尾换行以及每行的 \r
func splitLines(text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func mapLines(text string, f func(string) string) string {
	lines := splitLines(text)
	for i, l := range lines {
		lines[i] = f(l)
	}
	return strings.Join(lines, "\n")
}

func filterLines(text string, keep func(string) bool) string {
	var out []string
	for _, l := range splitLines(text) {
		if keep(l) {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func normalizeWhitespace(text string, _ Params) string {
	return strings.Join(strings.Fields(text), " ")
}

func trim(text string, _ Params) string {
	return strings.TrimSpace(mapLines(text, strings.TrimSpace))
}

func trimLines(text string, _ Params) string {
	return mapLines(text, strings.TrimSpace)
}

func removeEmptyLines(text string, _ Params) string {
	return filterLines(text, func(l string) bool { return !isBlank(l) })
}

func collapseBlankLines(text string, _ Params) string {
	var out []string
	prevBlank := false
	for _, l := range splitLines(text) {
		blank := isBlank(l)
		if blank && prevBlank {
			continue
		}
		if blank {
			l = ""
		}
		out = append(out, l)
		prevBlank = blank
	}
	return strings.Join(out, "\n")
}

func stripTrailingEmptyLines(text string, _ Params) string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
