package graph

import (
	"encoding/json"
	"fmt"
)

// AmountType selects how much of the available balance an edge carries.
type AmountType string

const (
	AmountAll        AmountType = "all"
	AmountPercentage AmountType = "percentage"
	AmountFixed      AmountType = "fixed"
)

// Amount specifies how much flows along an edge: everything, a percentage of
// the available balance, or a fixed decimal quantity. On the wire it is a
// tagged union: {"type":"all"}, {"type":"percentage","value":50} or
// {"type":"fixed","value":"1000.50"}. Fixed values stay decimal strings so
// no precision is lost to float rounding.
type Amount struct {
	Type       AmountType
	Percentage float64
	Fixed      string
}

// AmountAllOf returns the send-everything amount, the default for new edges.
func AmountAllOf() Amount {
	return Amount{Type: AmountAll}
}

// MarshalJSON encodes the amount in its tagged-union wire form.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case AmountPercentage:
		return json.Marshal(struct {
			Type  AmountType `json:"type"`
			Value float64    `json:"value"`
		}{a.Type, a.Percentage})
	case AmountFixed:
		return json.Marshal(struct {
			Type  AmountType `json:"type"`
			Value string     `json:"value"`
		}{a.Type, a.Fixed})
	case AmountAll, "":
		return json.Marshal(struct {
			Type AmountType `json:"type"`
		}{AmountAll})
	}
	return nil, fmt.Errorf("unknown amount type %q", a.Type)
}

// UnmarshalJSON decodes the tagged-union wire form.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type  AmountType      `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case AmountAll, "":
		*a = Amount{Type: AmountAll}
	case AmountPercentage:
		var value float64
		if err := json.Unmarshal(wire.Value, &value); err != nil {
			return fmt.Errorf("percentage amount: %w", err)
		}
		*a = Amount{Type: AmountPercentage, Percentage: value}
	case AmountFixed:
		var value string
		if err := json.Unmarshal(wire.Value, &value); err != nil {
			return fmt.Errorf("fixed amount: %w", err)
		}
		*a = Amount{Type: AmountFixed, Fixed: value}
	default:
		return fmt.Errorf("unknown amount type %q", wire.Type)
	}
	return nil
}

// Edge is a directed, token-labeled connection describing capital flow from
// Source to Target. SourceKind caches the source node's kind for presentation
// so renderers never need a node lookup; it carries no semantics.
type Edge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Token      string `json:"token"`
	Amount     Amount `json:"amount"`
	SourceKind Kind   `json:"source_kind,omitempty"`
}
