package htmlutil

import (
	"strings"

	"github.com/k3a/html2text"
	"github.com/tidwall/gjson"
)

const maxMessageLen = 300

// ToText converts HTML to plain text using a proper HTML parser.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

// ErrorMessage extracts a human-readable message from an error response
// body. JSON bodies yield their "message" or "error" field, HTML error
// pages are reduced to text, anything else is used verbatim. The result
// is collapsed onto one line and truncated.
func ErrorMessage(contentType string, body []byte) string {
	var msg string
	switch {
	case gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject():
		doc := gjson.ParseBytes(body)
		for _, key := range []string{"message", "error", "detail"} {
			if v := doc.Get(key); v.Exists() && v.String() != "" {
				msg = v.String()
				break
			}
		}
		if msg == "" {
			msg = string(body)
		}
	case strings.Contains(contentType, "html") || strings.HasPrefix(strings.TrimSpace(string(body)), "<"):
		msg = ToText(string(body))
	default:
		msg = string(body)
	}

	msg = strings.Join(strings.Fields(msg), " ")
	if r := []rune(msg); len(r) > maxMessageLen {
		msg = string(r[:maxMessageLen]) + "…"
	}
	return msg
}
