package transform

import "strings"

func init() {
	register("tabs_to_spaces", "Tab 转空格", CategoryCode, tabsToSpaces, "tabs", "expand")
	register("spaces_to_tabs", "空格转 Tab", CategoryCode, spacesToTabs, "unexpand")
	register("normalize_line_endings", "统一换行符", CategoryCode, normalizeLineEndings, "eol")
	register("unix_line_endings", "Unix 换行 (LF)", CategoryCode, unixLineEndings, "unix", "lf")
	register("windows_line_endings", "Windows 换行 (CRLF)", CategoryCode, windowsLineEndings, "windows", "crlf")
}

func tabsToSpaces(text string, p Params) string {
	n := p.Int("spaces", 4, 1, 16)
	return strings.ReplaceAll(text, "\t", strings.Repeat(" ", n))
}

// spacesToTabs 只转换行首缩进
func spacesToTabs(text string, p Params) string {
	n := p.Int("spaces", 4, 1, 16)
	return mapLines(text, func(line string) string {
		body := strings.TrimLeft(line, " ")
		lead := len(line) - len(body)
		return strings.Repeat("\t", lead/n) + strings.Repeat(" ", lead%n) + body
	})
}

func normalizeLineEndings(text string, p Params) string {
	lf := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	if p.Choice("style", "lf", "lf", "crlf") == "crlf" {
		return strings.ReplaceAll(lf, "\n", "\r\n")
	}
	return lf
}

func unixLineEndings(text string, _ Params) string {
	return normalizeLineEndings(text, Params{"style": "lf"})
}

func windowsLineEndings(text string, _ Params) string {
	return normalizeLineEndings(text, Params{"style": "crlf"})
}
