package app

import (
	"encoding/json"

	"trip_teaser/internal/adapters/observability"
	"trip_teaser/internal/teaser"
)

// TeaserResult is the body of the teaser endpoint.
type TeaserResult struct {
	Success          bool            `json:"success"`
	TeaserModeActive bool            `json:"teaserModeActive"`
	Data             []teaser.Result `json:"data"`
}

// RunTeaser decodes data and masks it when prompt carries the teaser marker.
// A teaser.InvalidInputError is returned untouched for the caller to map.
func RunTeaser(data json.RawMessage, prompt string) (TeaserResult, error) {
	out, err := teaser.TransformRaw(data, prompt)
	if err != nil {
		return TeaserResult{}, err
	}
	active := teaser.IsActive(prompt)
	// kind is a category, not an identity, so it is echoed as sent even when
	// masking. Only the metric label is bucketed to keep cardinality bounded.
	kinds := make([]string, len(out))
	for i, r := range out {
		if r.Kind.Known() {
			kinds[i] = string(r.Kind)
		} else {
			kinds[i] = "other"
		}
	}
	observability.ObserveTeaser(active, kinds)
	return TeaserResult{Success: true, TeaserModeActive: active, Data: out}, nil
}
