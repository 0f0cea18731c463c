// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses runs of whitespace. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username lowercases and trims an admin login name.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Identification trims and uppercases a government ID number so the same
// document typed in different case compares equal.
func Identification(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AssocCode trims an association code. Codes are compared exactly.
func AssocCode(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a query-string value and treats the literal
// placeholders the admin UI sends for "no filter" as empty.
func QueryParam(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "undefined", "all":
		return ""
	}
	return s
}
