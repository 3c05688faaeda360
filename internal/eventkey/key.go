// Package eventkey builds stable correlation keys for events.
//
// Two independently phrased but semantically identical requests must land on
// the same key, so every component of the key is normalized and sorted before
// joining. The key format is:
//
//	{event_type}|{category}|{symbols_sorted}|{params_canonical}|{version}
package eventkey

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	partDelimiter   = "|"
	symbolDelimiter = ","
	paramDelimiter  = ";"

	// DefaultVersion is the schema version appended when the caller does not
	// pin one explicitly.
	DefaultVersion = "v1"
)

var stringCharset = regexp.MustCompile(`[^\w\-\.\%\$]`)

// Generate returns the canonical correlation key for an event. It is total:
// any well-formed input yields a key, unknown or nil parameters are omitted.
func Generate(eventType, category string, symbols []string, params map[string]any, version string) string {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "general"
	}
	if version == "" {
		version = DefaultVersion
	}

	parts := []string{
		eventType,
		category,
		CanonicalSymbols(symbols),
		CanonicalParams(params),
		strings.ToLower(version),
	}
	return strings.Join(parts, partDelimiter)
}

// CanonicalSymbols uppercases, dedupes, and sorts ticker symbols.
func CanonicalSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, symbolDelimiter)
}

// CanonicalParams renders a parameter map as sorted key=value pairs. Nil
// values are skipped so that "parameter absent" and "parameter nil" collide.
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		if params[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, normalizeValue(k)+"="+normalizeValue(params[k]))
	}
	return strings.Join(pairs, paramDelimiter)
}

// normalizeValue maps an arbitrary parameter value to a canonical textual
// form. Floats keep at most six decimal places with trailing zeros stripped,
// strings are lowercased with spaces collapsed to underscores, lists are
// sorted, and nested maps render as sorted k:v pairs.
func normalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		return strconv.FormatBool(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		s = strings.ReplaceAll(s, " ", "_")
		return stringCharset.ReplaceAllString(s, "")
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return normalizeList(items)
	case []any:
		return normalizeList(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, normalizeValue(k)+":"+normalizeValue(t[k]))
		}
		return "{" + strings.Join(pairs, ",") + "}"
	default:
		return strings.ToLower(fmt.Sprint(t))
	}
}

func normalizeFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func normalizeList(items []any) string {
	rendered := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		s := listItemString(it)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		rendered = append(rendered, s)
	}
	sort.Strings(rendered)
	for i, s := range rendered {
		rendered[i] = normalizeValue(s)
	}
	return "[" + strings.Join(rendered, ",") + "]"
}

// listItemString is the pre-sort textual form of a list item. Unlike scalar
// parameters, whole-number floats keep their decimal point here ("2.0"), and
// bools and nil render capitalized, because dedupe and ordering run on these
// strings before normalization and existing keys depend on that ordering.
func listItemString(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float32:
		return listFloatString(float64(t))
	case float64:
		return listFloatString(t)
	default:
		return fmt.Sprint(t)
	}
}

func listFloatString(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10) + ".0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Components is the decomposed form of a correlation key.
type Components struct {
	EventType string
	Category  string
	Symbols   []string
	Params    map[string]string
	Version   string
}

// Parse splits a correlation key back into its components. Parameter values
// come back as their canonical strings; callers that need typed values must
// convert themselves.
func Parse(key string) (Components, error) {
	parts := strings.Split(key, partDelimiter)
	if len(parts) != 5 {
		return Components{}, fmt.Errorf("invalid event key: expected 5 parts, got %d", len(parts))
	}

	c := Components{
		EventType: parts[0],
		Category:  parts[1],
		Version:   parts[4],
		Params:    map[string]string{},
	}
	if parts[2] != "" {
		c.Symbols = strings.Split(parts[2], symbolDelimiter)
	}
	if parts[3] != "" {
		for _, pair := range strings.Split(parts[3], paramDelimiter) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return Components{}, fmt.Errorf("invalid event key: malformed parameter %q", pair)
			}
			c.Params[k] = v
		}
	}
	return c, nil
}
