package forkjoin

import (
	"encoding/json"
	"errors"
)

// Outcome is the result of one fan-out task. Exactly one of Value and Err
// is meaningful; Index and Item always identify the partition slot so a
// failure is never silently dropped.
type Outcome struct {
	Index int
	Item  any
	Value any
	Err   error
}

// Failed reports whether the task produced an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// outcomeJSON is the wire shape of an Outcome. Errors are flattened to
// their message; a restored Outcome keeps the message but not the type.
type outcomeJSON struct {
	Index int    `json:"index"`
	Item  any    `json:"item,omitempty"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	j := outcomeJSON{Index: o.Index, Item: o.Item, Value: o.Value}
	if o.Err != nil {
		j.Error = o.Err.Error()
	}
	return json.Marshal(j)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var j outcomeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	o.Index = j.Index
	o.Item = j.Item
	o.Value = j.Value
	o.Err = nil
	if j.Error != "" {
		o.Err = errors.New(j.Error)
	}
	return nil
}

// FailedFraction returns the share of outcomes that failed, 0 for an
// empty list.
func FailedFraction(outcomes []Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	return float64(failed) / float64(len(outcomes))
}

// Failures returns the failed outcomes, in partition order.
func Failures(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}
