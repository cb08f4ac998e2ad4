package transform

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

func init() {
	register("fix_smart_quotes", "修正智能引号", CategoryCleanup, fixSmartQuotes, "smartquotes", "fix-quotes", "quotes")
	register("remove_non_ascii", "删除非 ASCII 字符", CategoryCleanup, removeNonASCII, "ascii")
	register("normalize_unicode", "Unicode 规范化 (NFC)", CategoryCleanup, normalizeUnicode, "nfc")
	register("remove_emojis", "删除表情符号", CategoryCleanup, removeEmojis, "no-emoji", "remove-emoji")
	register("strip_formatting", "清除所有格式", CategoryCleanup, stripFormatting, "strip", "plain")
	register("remove_markdown", "删除 Markdown 标记", CategoryCleanup, removeMarkdown, "no-markdown")
	register("html_to_markdown", "HTML 转 Markdown", CategoryCleanup, htmlToMarkdown, "markdown")
}

// 固定替换表：排版引号、破折号等替换为 ASCII
var smartQuotes = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201A", "'", "\u201B", "'", "\u2032", "'",
	"\u201C", `"`, "\u201D", `"`, "\u201E", `"`, "\u201F", `"`, "\u2033", `"`,
	"\u00AB", `"`, "\u00BB", `"`,
	"\u2026", "...",
	"\u2012", "-", "\u2013", "-", "\u2212", "-",
	"\u2014", "--", "\u2015", "--",
	"\u00A0", " ",
)

// emoji 所在的 Unicode 区段
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // Emoticons
	{0x1F300, 0x1F5FF}, // Misc Symbols and Pictographs
	{0x1F680, 0x1F6FF}, // Transport and Map
	{0x1F1E0, 0x1F1FF}, // Flags
	{0x2600, 0x26FF},   // Misc symbols
	{0x2700, 0x27BF},   // Dingbats
	{0xFE00, 0xFE0F},   // Variation Selectors
	{0x1F900, 0x1F9FF}, // Supplemental Symbols and Pictographs
	{0x1FA00, 0x1FA6F}, // Chess Symbols
	{0x1FA70, 0x1FAFF}, // Symbols and Pictographs Extended-A
	{0x200D, 0x200D},   // ZWJ
}

var (
	stripPolicy = bluemonday.StrictPolicy()
	htmlTagRe   = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

	mdHeaderRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdBulletRe = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdBoldRe   = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	mdItalicRe = regexp.MustCompile(`\*([^*\n]+)\*`)
	mdUBoldRe  = regexp.MustCompile(`__([^_\n]+)__`)
	mdUItalRe  = regexp.MustCompile(`_([^_\n]+)_`)
	mdCodeRe   = regexp.MustCompile("`([^`\n]+)`")
)

var mdConverter = sync.OnceValue(func() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
})

func fixSmartQuotes(text string, _ Params) string { return smartQuotes.Replace(text) }

func removeNonASCII(text string, _ Params) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 {
			return r
		}
		return -1
	}, text)
}

func normalizeUnicode(text string, _ Params) string { return norm.NFC.String(text) }

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

func removeEmojis(text string, _ Params) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
}

// stripFormatting 去掉 HTML 标签后规范化空白
func stripFormatting(text string, p Params) string {
	if htmlTagRe.MatchString(text) {
		text = html.UnescapeString(stripPolicy.Sanitize(text))
	}
	return normalizeWhitespace(text, p)
}

// removeMarkdown 基于正则去除常见标记，链接保留文字丢弃地址
func removeMarkdown(text string, _ Params) string {
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = mdBulletRe.ReplaceAllString(text, "")
	text = mdLinkRe.ReplaceAllString(text, "${1}")
	text = mdBoldRe.ReplaceAllString(text, "${1}")
	text = mdUBoldRe.ReplaceAllString(text, "${1}")
	text = mdItalicRe.ReplaceAllString(text, "${1}")
	text = mdUItalRe.ReplaceAllString(text, "${1}")
	return mdCodeRe.ReplaceAllString(text, "${1}")
}

// htmlToMarkdown 只处理包含 HTML 标签的文本，转换失败时原样返回
func htmlToMarkdown(text string, _ Params) string {
	if !htmlTagRe.MatchString(text) {
		return text
	}
	md, err := mdConverter().ConvertString(text)
	if err != nil {
		return text
	}
	return md
}
