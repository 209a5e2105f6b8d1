package app

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

/********** tiny helpers over decoded JSON payloads **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the trimmed string at path or "".
func lookupStr(m map[string]any, path string) string {
	if s, ok := lookupAny(m, path).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// firstStringish accepts ids that arrive either as strings or JSON numbers.
func firstStringish(m map[string]any, paths ...string) *string {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return &s
			}
		case float64:
			s := strconv.FormatFloat(v, 'f', -1, 64)
			return &s
		}
	}
	return nil
}

// objects keeps the map elements of a JSON array and ignores everything else.
func objects(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {url/src}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				for _, f := range []string{"url", "src", "href"} {
					if u, ok := t[f].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// normDate keeps the YYYY-MM-DD part of a date or RFC3339 timestamp.
func normDate(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		s = t.UTC().Format(time.DateOnly)
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return nil
	}
	return &s
}

// code3 upper-cases three-letter codes (ISO currency, IATA) and drops anything else.
func code3(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.ToUpper(*p)
	if len(s) != 3 {
		return nil
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return nil
		}
	}
	return &s
}

// clip cuts s to at most n runes; MySQL VARCHAR widths count characters.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clipPtr(p *string, n int) *string {
	if p == nil {
		return nil
	}
	s := clip(*p, n)
	return &s
}

// fits drops strings that cannot be shortened without losing meaning (URLs).
func fits(p *string, n int) *string {
	if p == nil || utf8.RuneCountInString(*p) > n {
		return nil
	}
	return p
}

func floatIn(p *float64, lo, hi float64) *float64 {
	if p == nil || math.IsNaN(*p) || *p < lo || *p > hi {
		return nil
	}
	return p
}

func intIn(p *int, lo, hi int) *int {
	if p == nil || *p < lo || *p > hi {
		return nil
	}
	return p
}

func intPtr(p *int64) *int {
	if p == nil {
		return nil
	}
	i := int(*p)
	return &i
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
