package typesys

import (
	"reflect"
	"strings"
	"unicode"
)

// LowerCamel converts an exported Go name to a member name.
// Handles acronyms: URL -> url, HTTPServer -> httpServer.
func LowerCamel(s string) string {
	runes := []rune(s)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return s
	}

	end := 1
	for end < len(runes) && unicode.IsUpper(runes[end]) {
		end++
	}
	// Last uppercase before lowercase starts next word, not part of acronym
	if end > 1 && end < len(runes) && unicode.IsLower(runes[end]) {
		end--
	}

	for i := 0; i < end; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// KebabToPascal converts a WIT identifier to a type name: math-utils -> MathUtils.
func KebabToPascal(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// KebabToCamel converts a WIT identifier to a member name: square-root -> squareRoot.
func KebabToCamel(s string) string {
	p := KebabToPascal(s)
	if p == "" {
		return p
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// FieldName returns the wire name of a struct field and whether it is
// exposed at all.
func FieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("jsii")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return LowerCamel(f.Name), true
}
