package wire

import (
	"time"
)

// Tag keys of the wire value grammar.
const (
	TokenRef  = "$jsii.byref"
	TokenDate = "$jsii.date"
	TokenEnum = "$jsii.enum"
)

// DateLayout is the layout dates are written with.
const DateLayout = time.RFC3339Nano

// Ref builds an object handle tag.
func Ref(handle string) map[string]any {
	return map[string]any{TokenRef: handle}
}

// Date builds a date tag.
func Date(t time.Time) map[string]any {
	return map[string]any{TokenDate: t.UTC().Format(DateLayout)}
}

// Enum builds an enum tag from a type fqn and member name.
func Enum(typeFQN, member string) map[string]any {
	return map[string]any{TokenEnum: typeFQN + "/" + member}
}

// AsRef reports whether v is an object handle tag.
func AsRef(v any) (string, bool) {
	return tagged(v, TokenRef)
}

// AsDate reports whether v is a date tag.
func AsDate(v any) (string, bool) {
	return tagged(v, TokenDate)
}

// AsEnum reports whether v is an enum tag.
func AsEnum(v any) (string, bool) {
	return tagged(v, TokenEnum)
}

func tagged(v any, token string) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m[token].(string)
	return s, ok
}
