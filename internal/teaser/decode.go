package teaser

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InvalidInputError means the batch itself was unusable (not a JSON array).
type InvalidInputError struct{ Reason string }

func (e *InvalidInputError) Error() string { return "teaser: invalid input: " + e.Reason }

// MalformedEntryError describes one bad element. It never aborts the batch.
type MalformedEntryError struct {
	Index  int
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("teaser: entry %d: %s", e.Index, e.Reason)
}

// DecodeEntries parses a JSON array of entries. The array must be present; an
// empty array is fine. Elements are checked one by one: a bad element keeps its
// slot (with whatever fields could be read) and is reported in the second
// return value. A missing or unknown kind is not an error.
func DecodeEntries(raw json.RawMessage) ([]Entry, []*MalformedEntryError, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, &InvalidInputError{Reason: "data is required"}
	}
	if trimmed[0] != '[' {
		return nil, nil, &InvalidInputError{Reason: "data must be an array"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, nil, &InvalidInputError{Reason: "data is not a valid JSON array"}
	}

	entries := make([]Entry, len(elems))
	var bad []*MalformedEntryError
	for i, el := range elems {
		e, reason := decodeEntry(el)
		entries[i] = e
		if reason != "" {
			bad = append(bad, &MalformedEntryError{Index: i, Reason: reason})
		}
	}
	return entries, bad, nil
}

// decodeEntry returns the readable part of el and the first problem found.
func decodeEntry(el json.RawMessage) (Entry, string) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(el, &obj); err != nil || obj == nil {
		return Entry{}, "entry must be an object"
	}

	var e Entry
	var problem string
	note := func(p string) {
		if problem == "" {
			problem = p
		}
	}

	if v, ok := obj["kind"]; ok {
		var k string
		if json.Unmarshal(v, &k) == nil {
			e.Kind = Kind(k)
		}
	}

	if v, ok := obj["identifyingName"]; !ok {
		note("identifyingName is required")
	} else if err := json.Unmarshal(v, &e.IdentifyingName); err != nil || isNull(v) {
		note("identifyingName must be a string")
	}

	if v, ok := obj["identifyingDetail"]; ok && !isNull(v) {
		var d string
		if err := json.Unmarshal(v, &d); err != nil {
			note("identifyingDetail must be a string")
		} else {
			e.IdentifyingDetail = &d
		}
	}

	if v, ok := obj["nonIdentifyingFields"]; ok && !isNull(v) {
		var f map[string]any
		if err := json.Unmarshal(v, &f); err != nil {
			note("nonIdentifyingFields must be an object")
		} else {
			e.NonIdentifyingFields = f
		}
	}

	return e, problem
}

func isNull(v json.RawMessage) bool { return bytes.Equal(bytes.TrimSpace(v), []byte("null")) }

// TransformRaw decodes raw and runs Transform over it. Malformed slots carry
// their reason in Result.Error and are masked like any other entry.
func TransformRaw(raw json.RawMessage, prompt string) ([]Result, error) {
	entries, bad, err := DecodeEntries(raw)
	if err != nil {
		return nil, err
	}
	out := Transform(entries, prompt)
	for _, m := range bad {
		out[m.Index].Error = m.Reason
	}
	return out, nil
}
