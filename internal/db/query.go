package db

import (
	"fmt"
	"strings"
)

// tagEscaper escapes TAG values for FT.SEARCH query strings.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

// EscapeTag escapes a raw value for use inside a TAG condition.
func EscapeTag(value string) string {
	return tagEscaper.Replace(value)
}

// TagFilter builds an exact TAG condition, e.g. @owner_id:{u\-1}.
func TagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// BoolFilter builds a TAG condition against an indexed JSON boolean.
func BoolFilter(field string, value bool) string {
	if value {
		return fmt.Sprintf("@%s:{true}", field)
	}
	return fmt.Sprintf("@%s:{false}", field)
}

// And joins conditions with spaces (FT.SEARCH implicit AND).
func And(conds ...string) string {
	return strings.Join(conds, " ")
}
