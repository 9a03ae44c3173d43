package summarizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when a model reply is not a JSON object.
var ErrParse = errors.New("failed to parse model response as JSON")

// ContractFields is the merged result for a document. Missing values are nil.
type ContractFields struct {
	ExecutionDate   *string  `json:"execution_date"`
	EffectiveDate   *string  `json:"effective_date"`
	TerminationDate *string  `json:"termination_date"`
	Parties         []string `json:"parties"`
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	RenewalTime     *string  `json:"renewal_time"`
}

// Keys the model is asked to produce.
const (
	keyExecutionDate   = "Execution Date"
	keyEffectiveDate   = "Effective Date"
	keyTerminationDate = "Termination Date"
	keyParties         = "Parties Involved"
	keyTitle           = "Title of the Contract"
	keyDescription     = "Description of the Contract"
	keyRenewalTime     = "Renewal Time"
)

// parseReply decodes one chunk's reply. Code fences around the JSON are tolerated.
func parseReply(reply string) (ContractFields, error) {
	body := strings.TrimSpace(reply)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return ContractFields{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return ContractFields{
		ExecutionDate:   scalar(raw[keyExecutionDate]),
		EffectiveDate:   scalar(raw[keyEffectiveDate]),
		TerminationDate: scalar(raw[keyTerminationDate]),
		Parties:         list(raw[keyParties]),
		Title:           scalar(raw[keyTitle]),
		Description:     scalar(raw[keyDescription]),
		RenewalTime:     scalar(raw[keyRenewalTime]),
	}, nil
}

// scalar returns nil for missing, null or blank values. Non-string values
// are kept in their compact JSON form.
func scalar(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil
		}
		s = buf.String()
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func list(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		if s := scalar(raw); s != nil {
			return []string{*s}
		}
		return nil
	}

	var out []string
	for _, e := range elems {
		if s := scalar(e); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Merge folds per-chunk results in order: first non-nil wins for scalar
// fields, parties are unioned in first-seen order and descriptions are
// joined with a space.
func Merge(results []ContractFields) ContractFields {
	merged := ContractFields{Parties: []string{}}
	seen := make(map[string]bool)
	var descriptions []string

	for _, r := range results {
		merged.ExecutionDate = firstNonNil(merged.ExecutionDate, r.ExecutionDate)
		merged.EffectiveDate = firstNonNil(merged.EffectiveDate, r.EffectiveDate)
		merged.TerminationDate = firstNonNil(merged.TerminationDate, r.TerminationDate)
		merged.Title = firstNonNil(merged.Title, r.Title)
		merged.RenewalTime = firstNonNil(merged.RenewalTime, r.RenewalTime)

		for _, p := range r.Parties {
			if !seen[p] {
				seen[p] = true
				merged.Parties = append(merged.Parties, p)
			}
		}

		if r.Description != nil {
			descriptions = append(descriptions, *r.Description)
		}
	}

	if len(descriptions) > 0 {
		d := strings.Join(descriptions, " ")
		merged.Description = &d
	}

	return merged
}

func firstNonNil(current, next *string) *string {
	if current != nil {
		return current
	}
	return next
}
