package transform

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

func init() {
	register("encode_html_entities", "HTML 实体编码", CategoryHTML, encodeHTMLEntities, "html-encode")
	register("decode_html_entities", "HTML 实体解码", CategoryHTML, decodeHTMLEntities, "html-decode")
}

var htmlEncoder = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var namedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",
	"nbsp": " ",
}

var entityRe = regexp.MustCompile(`&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[a-zA-Z]+);`)

func encodeHTMLEntities(text string, _ Params) string { return htmlEncoder.Replace(text) }

// decodeHTMLEntities 单次扫描解码，保证与 encode 互为逆运算
func decodeHTMLEntities(text string, _ Params) string {
	return entityRe.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if !strings.HasPrefix(name, "#") {
			if v, ok := namedEntities[name]; ok {
				return v
			}
			return m
		}
		var (
			n   uint64
			err error
		)
		if name[1] == 'x' || name[1] == 'X' {
			n, err = strconv.ParseUint(name[2:], 16, 32)
		} else {
			n, err = strconv.ParseUint(name[1:], 10, 32)
		}
		r := rune(n)
		if err != nil || n == 0 || !utf8.ValidRune(r) {
			return m
		}
		return string(r)
	})
}
