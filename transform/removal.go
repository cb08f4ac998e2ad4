package transform

import (
	"regexp"
	"strings"
)

func init() {
	register("remove_urls", "删除网址", CategoryRemoval, removeURLs, "no-urls")
	register("remove_emails", "删除邮箱", CategoryRemoval, removeEmails, "no-emails")
	register("remove_phone_numbers", "删除电话号码", CategoryRemoval, removePhoneNumbers, "no-phones")
}

var (
	urlRe   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`(?:\+\d{1,3}[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}`)

	hspaceRunRe = regexp.MustCompile(`[ \t]{2,}`)
)

// removePattern 删除匹配内容并合并因此留下的多余空白
func removePattern(text string, re *regexp.Regexp) string {
	if !re.MatchString(text) {
		return text
	}
	text = re.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		cr := strings.HasSuffix(l, "\r")
		l = strings.TrimRight(hspaceRunRe.ReplaceAllString(l, " "), " \t\r")
		if cr {
			l += "\r"
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}

func removeURLs(text string, _ Params) string { return removePattern(text, urlRe) }

func removeEmails(text string, _ Params) string { return removePattern(text, emailRe) }

func removePhoneNumbers(text string, _ Params) string { return removePattern(text, phoneRe) }
