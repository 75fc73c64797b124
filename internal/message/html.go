package message

import (
	"html"
	"strings"
)

// h is HTML that is safe to send with ParseMode="HTML".
type h string

func esc(s string) h { return h(html.EscapeString(s)) }

func wrap(tag string, inner h) h { return h("<" + tag + ">" + string(inner) + "</" + tag + ">") }

func bold(s string) h   { return wrap("b", esc(s)) }
func italic(s string) h { return wrap("i", esc(s)) }
func code(s string) h   { return wrap("code", esc(s)) }

func joinLines(parts ...h) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = string(p)
	}
	return strings.Join(ss, "\n")
}
