package lazyconf

import (
	"encoding/json"
)

// Axis labels the source a probe consulted during dual-axis resolution.
type Axis string

const (
	// AxisOwn is the lazy instance's explicit override.
	AxisOwn Axis = "own"
	// AxisContext is the flattened context entry for the instance's own type.
	AxisContext Axis = "context"
	// AxisAncestry is the interleaved ancestry-by-context traversal.
	AxisAncestry Axis = "ancestry"
	// AxisExpr is an expression-computed default.
	AxisExpr Axis = "expr"
	// AxisDefault is the declaring type's static default.
	AxisDefault Axis = "default"
)

// Trace captures provenance for one resolution call: every probe made, in
// order, until a concrete value was found or the defaults were reached.
type Trace struct {
	Type   string  `json:"type"`
	Path   string  `json:"path"`
	Probes []Probe `json:"probes"`
}

// Probe details a single lookup against one axis position.
type Probe struct {
	Axis  Axis   `json:"axis"`
	Type  string `json:"type,omitempty"`
	Entry string `json:"entry,omitempty"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

func (t *Trace) probe(p Probe) {
	if t == nil {
		return
	}
	t.Probes = append(t.Probes, p)
}
