// Package typesys describes the native object model the kernel exposes.
//
// A Module is a named export graph of Types. A Type carries its member
// descriptors (constructor, instance and static methods and properties,
// enum members), each holding a bound invocation thunk, so dispatch never
// walks names by reflection at call time.
//
// Most types are described straight from Go declarations:
//
//	m := typesys.NewModule("calc")
//	m.Type("Adder").Constructor(NewAdder)        // methods and fields of *Adder
//	m.Type("MathUtils").StaticMethod("square", Square)
//	m.Type("Op").Enum(map[string]any{"ADD": OpAdd, "SUB": OpSub})
//
// Go names become lowerCamel member names (Add -> add, URL -> url); struct
// fields can be renamed or hidden with a `jsii:"name"` or `jsii:"-"` tag.
//
// Native code that wants to call back into the kernel takes a
// context.Context as its first parameter and uses CallerFrom(ctx).
package typesys
