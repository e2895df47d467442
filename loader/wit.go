package loader

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/jsii-kernel/errors"
)

type witFunc struct {
	name    string
	params  []wit.Type
	results []wit.Type
}

type witInterface struct {
	name  string
	funcs []witFunc
}

var (
	interfacePattern = regexp.MustCompile(`interface\s+([a-z][a-z0-9-]*)\s*\{([^}]*)\}`)
	funcPattern      = regexp.MustCompile(`([a-z][a-z0-9-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)
)

// parseWIT extracts interfaces and their function signatures from WIT
// text. Only the parts needed to call core exports are understood.
func parseWIT(text string) ([]witInterface, error) {
	var out []witInterface
	for _, im := range interfacePattern.FindAllStringSubmatch(text, -1) {
		iface := witInterface{name: im[1]}
		for _, fm := range funcPattern.FindAllStringSubmatch(im[2], -1) {
			fn, err := parseWitFunc(fm)
			if err != nil {
				return nil, err
			}
			iface.funcs = append(iface.funcs, fn)
		}
		out = append(out, iface)
	}
	if len(out) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no interfaces found in WIT text")
	}
	return out, nil
}

func parseWitFunc(match []string) (witFunc, error) {
	fn := witFunc{name: match[1]}

	if params := strings.TrimSpace(match[2]); params != "" {
		for _, p := range splitParams(params) {
			typ := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typ = strings.TrimSpace(p[idx+1:])
			}
			t, err := wit.ParseType(typ)
			if err != nil {
				return fn, errors.ParseFailed("param type "+typ+" of "+fn.name, err)
			}
			fn.params = append(fn.params, t)
		}
	}

	result := strings.TrimSpace(match[3])
	if result != "" && result != "()" {
		t, err := wit.ParseType(result)
		if err != nil {
			return fn, errors.ParseFailed("result type "+result+" of "+fn.name, err)
		}
		fn.results = []wit.Type{t}
	}
	return fn, nil
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var out []string
	var cur strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(cur.String()); str != "" {
					out = append(out, str)
				}
				cur.Reset()
				continue
			}
		}
		cur.WriteRune(ch)
	}
	if str := strings.TrimSpace(cur.String()); str != "" {
		out = append(out, str)
	}
	return out
}
