package extract

import (
	"strings"
	"unicode/utf8"
)

// sanitize replaces invalid UTF-8 sequences with the replacement character.
func sanitize(content []byte) []byte {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return content
}

// cell trims a spreadsheet value and repairs invalid UTF-8.
func cell(v string) string {
	return strings.TrimSpace(strings.ToValidUTF8(v, "�"))
}
