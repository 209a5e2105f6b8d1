// Package teaser masks identifying fields of itinerary entries for viewers
// who have not unlocked a trip. It holds no state; every function is safe for
// concurrent use.
package teaser

import "strings"

// Marker switches masking on when it appears anywhere in a prompt.
const Marker = "TEASER_MODE"

// DefaultLabel replaces identifying fields of entries with an unknown kind.
const DefaultLabel = "Experience"

type Kind string

const (
	KindActivity Kind = "activity"
	KindDining   Kind = "dining"
	KindFlight   Kind = "flight"
	KindHotel    Kind = "hotel"
)

var labels = map[Kind]string{
	KindActivity: "Local Attraction",
	KindDining:   "Local Restaurant",
	KindFlight:   "Economy Flight Option",
	KindHotel:    "Boutique Hotel",
}

// Label returns the generic description substituted for k.
func Label(k Kind) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return DefaultLabel
}

// Known reports whether k has its own label.
func (k Kind) Known() bool {
	_, ok := labels[k]
	return ok
}

// Entry is one itinerary line item as seen by the engine.
// An absent nonIdentifyingFields stays absent on output; an empty object stays {}.
type Entry struct {
	Kind                 Kind           `json:"kind"`
	IdentifyingName      string         `json:"identifyingName"`
	IdentifyingDetail    *string        `json:"identifyingDetail,omitempty"`
	NonIdentifyingFields map[string]any `json:"nonIdentifyingFields,omitzero"`
}

// Result mirrors Entry. Error is set only for slots that failed decoding.
type Result struct {
	Kind                 Kind           `json:"kind"`
	IdentifyingName      string         `json:"identifyingName"`
	IdentifyingDetail    *string        `json:"identifyingDetail,omitempty"`
	NonIdentifyingFields map[string]any `json:"nonIdentifyingFields,omitzero"`
	Error                string         `json:"error,omitempty"`
}

// Entry drops the error and returns r as engine input, so results can be fed back in.
func (r Result) Entry() Entry {
	return Entry{
		Kind:                 r.Kind,
		IdentifyingName:      r.IdentifyingName,
		IdentifyingDetail:    r.IdentifyingDetail,
		NonIdentifyingFields: r.NonIdentifyingFields,
	}
}

// IsActive reports whether prompt contains Marker. Matching is case-sensitive.
func IsActive(prompt string) bool {
	return prompt != "" && strings.Contains(prompt, Marker)
}

// Transform masks entries when prompt carries Marker and copies them through otherwise.
func Transform(entries []Entry, prompt string) []Result {
	return Apply(entries, IsActive(prompt))
}

// Apply is Transform with the activation decided by the caller.
// The output always has len(entries) results in input order.
func Apply(entries []Entry, active bool) []Result {
	out := make([]Result, len(entries))
	for i, e := range entries {
		out[i] = Result{
			Kind:                 e.Kind,
			IdentifyingName:      e.IdentifyingName,
			IdentifyingDetail:    e.IdentifyingDetail,
			NonIdentifyingFields: e.NonIdentifyingFields,
		}
		if !active {
			continue
		}
		label := Label(e.Kind)
		out[i].IdentifyingName = label
		if e.IdentifyingDetail != nil {
			d := label
			out[i].IdentifyingDetail = &d
		}
	}
	return out
}
