// Package workflow converts between the in-editor graph and the portable
// interchange document consumed by the validation, simulation and execution
// services. Conversion is stateless and bidirectional; positions and edge
// tokens are normalized rather than round-tripped.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/parallaxfi/weft/core/graph"
)

// Document is the portable interchange form of a strategy:
// {name, description?, tokens?, contracts?, nodes, edges}.
type Document struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tokens      graph.Manifest `json:"tokens,omitempty"`
	Contracts   graph.Manifest `json:"contracts,omitempty"`
	Nodes       []DocumentNode `json:"nodes"`
	Edges       []DocumentEdge `json:"edges"`
}

// DocumentNode is one node in interchange form. On the wire the kind tag and
// the kind-specific attributes are flattened into a single object:
// {"id":"w1","type":"wallet","chain":"base","token":"USDC",...}.
type DocumentNode struct {
	ID      string
	Kind    graph.Kind
	Attrs   map[string]any
	Trigger *graph.Trigger
}

// MarshalJSON flattens the node into its single-object wire form.
func (n DocumentNode) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(n.Attrs)+3)
	for key, value := range n.Attrs {
		flat[key] = value
	}
	flat["id"] = n.ID
	flat["type"] = string(n.Kind)
	if n.Trigger != nil {
		flat["trigger"] = n.Trigger
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the flat wire object back into id, kind, trigger and
// the remaining kind-specific attributes.
func (n *DocumentNode) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	id, _ := flat["id"].(string)
	if id == "" {
		return fmt.Errorf("node is missing an id")
	}
	kind, _ := flat["type"].(string)
	if kind == "" {
		return fmt.Errorf("node %q is missing a type", id)
	}

	var trigger *graph.Trigger
	if rawTrigger, exists := flat["trigger"]; exists && rawTrigger != nil {
		encoded, err := json.Marshal(rawTrigger)
		if err != nil {
			return fmt.Errorf("node %q: %w", id, err)
		}
		trigger = &graph.Trigger{}
		if err := json.Unmarshal(encoded, trigger); err != nil {
			return fmt.Errorf("node %q: invalid trigger: %w", id, err)
		}
	}

	attrs := make(map[string]any, len(flat))
	for key, value := range flat {
		switch key {
		case "id", "type", "trigger":
			continue
		}
		attrs[key] = value
	}

	n.ID = id
	n.Kind = graph.Kind(kind)
	n.Attrs = attrs
	n.Trigger = trigger
	return nil
}

// DocumentEdge is one edge in interchange form. Presentation-only fields
// (cached source kind) never appear here.
type DocumentEdge struct {
	FromNode string       `json:"from_node"`
	ToNode   string       `json:"to_node"`
	Token    string       `json:"token"`
	Amount   graph.Amount `json:"amount"`
}

// Encode renders the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses an interchange document from JSON.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workflow document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("workflow document has no name")
	}
	return &doc, nil
}
