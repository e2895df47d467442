// Package wire defines the kernel's request/response protocol.
//
// Messages are JSON-shaped trees (map[string]any, []any, string, float64,
// bool, nil) so the same parsing code serves every carrier. Three tagged
// single-key maps carry values that have no JSON counterpart:
//
//	{"$jsii.byref": "calc.Adder@6f1c..."}   object handle
//	{"$jsii.date":  "2024-01-02T03:04:05Z"} date
//	{"$jsii.enum":  "calc.Op/ADD"}          enum member
//
// A Framer moves messages over a byte channel. JSONFramer writes one JSON
// document per line; CBORFramer uses a CBOR item stream.
package wire
