// Package transcoder converts between wire values and native Go values.
//
// # Wire Values
//
//	null, bool, number (float64), string
//	list    []any
//	map     map[string]any
//	{"$jsii.byref": "<fqn>@<id>"}     live object, by handle
//	{"$jsii.date": "<RFC 3339>"}      time.Time
//	{"$jsii.enum": "<fqn>/<member>"}  registered enum value
//
// # Direction
//
//	Decode  wire -> native   byref resolves through the handle table,
//	                         never interns
//	Encode  native -> wire   class instances and *typesys.Object are
//	                         interned and sent by handle; value structs
//	                         are copied field by field
//
// For values without handles Encode(Decode(v)) reproduces v.
package transcoder
