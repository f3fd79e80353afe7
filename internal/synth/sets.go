package synth

import (
	"reflect"
	"strings"
	"unicode"

	"paritycheck/internal/config"
	"paritycheck/internal/value"
)

// Canonical value sets. The exact members are tunable policy, not
// contract: small values, a negative where the type admits one, and a
// boundary-like large value.
func intSet() []value.Value {
	return []value.Value{value.Int(0), value.Int(1), value.Int(-1), value.Int(4096)}
}

func uintSet() []value.Value {
	return []value.Value{value.Uint(0), value.Uint(1), value.Uint(4096)}
}

func floatSet() []value.Value {
	return []value.Value{value.Float(0), value.Float(1.5), value.Float(3.0), value.Float(10.0)}
}

func stringSet() []value.Value {
	return []value.Value{value.Str(""), value.Str("abc")}
}

func boolSet() []value.Value {
	return []value.Value{value.Bool(true), value.Bool(false)}
}

func indexSet() []value.Value {
	return []value.Value{value.Int(0), value.Int(1), value.Int(2), value.Int(100)}
}

func ratioSet() []value.Value {
	return []value.Value{value.Float(0), value.Float(0.5), value.Float(1.0), value.Float(2.0)}
}

// maxElemDepth bounds nesting when building container sets, so a
// parameter like [][][]int does not explode.
const maxElemDepth = 2

// byType resolves a canonical set from a declared type. Returns nil
// when the type has no canonical values (structs, funcs, channels,
// bare interfaces), which hands resolution to the name heuristic.
func byType(t reflect.Type, depth int) []value.Value {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intSet()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintSet()
	case reflect.Float32, reflect.Float64:
		return floatSet()
	case reflect.String:
		return stringSet()
	case reflect.Bool:
		return boolSet()
	case reflect.Slice:
		if depth >= maxElemDepth {
			return nil
		}
		elems := byType(t.Elem(), depth+1)
		if elems == nil {
			return nil
		}
		short := elems
		if len(short) > 3 {
			short = short[:3]
		}
		return []value.Value{value.List(), value.List(short...)}
	case reflect.Map:
		if depth >= maxElemDepth {
			return nil
		}
		keys := byType(t.Key(), depth+1)
		elems := byType(t.Elem(), depth+1)
		if keys == nil || elems == nil {
			return nil
		}
		one := value.Map(value.Entry{Key: keys[len(keys)-1].Scalar, Val: elems[len(elems)-1]})
		return []value.Value{value.Map(), one}
	}
	return nil
}

// Built-in name heuristic vocabulary (spec-level best effort, not a
// coverage guarantee). Configuration may append further rules; built-in
// rules are consulted first so config extends rather than overrides.
var builtinVocab = []config.VocabRule{
	{Contains: []string{"time", "duration", "seconds", "secs", "elapsed", "delay"}, Set: "floats"},
	{Contains: []string{"frame", "index", "idx", "count", "offset", "n", "num", "size", "len"}, Set: "ints"},
	{Contains: []string{"name", "path", "text", "label", "title", "word", "token"}, Set: "strings"},
	{Contains: []string{"enabled", "flag", "is", "has", "on", "active"}, Set: "bools"},
	{Contains: []string{"ratio", "scale", "factor", "alpha", "weight"}, Set: "ratios"},
}

// byName resolves a canonical set from the parameter name. The name is
// split into lowercase words on camelCase and snake_case boundaries
// and a rule matches on whole words only, so "durationSeconds" matches
// a "seconds" rule but "width" never matches an "id" rule.
func byName(name string, extra []config.VocabRule) []value.Value {
	words := splitWords(name)
	if len(words) == 0 {
		return nil
	}
	for _, rule := range builtinVocab {
		if matches(rule, words) {
			return namedSet(rule.Set)
		}
	}
	for _, rule := range extra {
		if matches(rule, words) {
			return namedSet(rule.Set)
		}
	}
	return nil
}

func matches(rule config.VocabRule, words map[string]bool) bool {
	for _, w := range rule.Contains {
		if words[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

func namedSet(name string) []value.Value {
	switch name {
	case "floats":
		return floatSet()
	case "ints":
		return indexSet()
	case "strings":
		return stringSet()
	case "bools":
		return boolSet()
	case "ratios":
		return ratioSet()
	}
	return nil
}

// splitWords lowercases and splits an identifier into its words.
func splitWords(name string) map[string]bool {
	words := make(map[string]bool)
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words[strings.ToLower(string(cur))] = true
			cur = cur[:0]
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
