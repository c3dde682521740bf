package media

import "strings"

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// quote renders s as a single-quoted JavaScript string literal.
func quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// global renders the page global slot called name.
func global(name string) string {
	return "window[" + quote(name) + "]"
}

func elementSlot(id string) string {
	return global("media-" + id)
}

func counterSlot(id, event string) string {
	return global("media-" + id + "-" + event + "-count")
}

func callbackSlot(id, event string) string {
	return global("media-" + id + "-" + event + "-count-function")
}
