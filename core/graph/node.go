package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies what a node does in a strategy. The set is closed: a
// node's kind is fixed at creation and changing it means replacing the node.
type Kind string

const (
	KindWallet    Kind = "wallet"
	KindPerp      Kind = "perp"
	KindOptions   Kind = "options"
	KindSpot      Kind = "spot"
	KindLp        Kind = "lp"
	KindMovement  Kind = "movement"
	KindLending   Kind = "lending"
	KindVault     Kind = "vault"
	KindPendle    Kind = "pendle"
	KindOptimizer Kind = "optimizer"
)

// Kinds lists every valid node kind.
var Kinds = []Kind{
	KindWallet, KindPerp, KindOptions, KindSpot, KindLp,
	KindMovement, KindLending, KindVault, KindPendle, KindOptimizer,
}

// ValidKind reports whether k is a member of the closed kind set.
func ValidKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// TriggerType distinguishes periodic schedules from event-driven triggers.
type TriggerType string

const (
	TriggerCron    TriggerType = "cron"
	TriggerOnEvent TriggerType = "on_event"
)

// Trigger makes a node execute periodically (cron) or when an external event
// fires, instead of once. A triggered node's outgoing edges describe where
// its periodic outputs flow.
type Trigger struct {
	Type TriggerType `json:"type"`
	// Interval is set for cron triggers: hourly, daily, weekly or monthly.
	Interval string `json:"interval,omitempty"`
	// Event names the external condition for on_event triggers.
	Event string `json:"event,omitempty"`
}

// Position is a 2D canvas coordinate. Presentation only, never semantic.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Allocation is one entry of an optimizer node's allocation table: a
// downstream venue plus the statistics the optimizer sizes it with.
type Allocation struct {
	TargetNode     string  `json:"target_node"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	Correlation    float64 `json:"correlation"`
}

// Node is one vertex of the strategy graph. Kind-specific parameters live in
// Attrs as a flat record so continuous edits can merge partial updates
// without knowing the full shape; typed accessors below pull out the fields
// the engines care about.
type Node struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	Attrs    map[string]any `json:"attrs"`
	Trigger  *Trigger       `json:"trigger,omitempty"`
	Position Position       `json:"position"`
	Label    string         `json:"label,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	copied := *n
	copied.Attrs = cloneAttrs(n.Attrs)
	if n.Trigger != nil {
		trigger := *n.Trigger
		copied.Trigger = &trigger
	}
	return &copied
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	copied := make(map[string]any, len(attrs))
	for key, value := range attrs {
		switch typed := value.(type) {
		case map[string]any:
			copied[key] = cloneAttrs(typed)
		case []any:
			copied[key] = cloneList(typed)
		default:
			copied[key] = value
		}
	}
	return copied
}

// cloneList deep-copies a slice attribute. Elements such as allocation
// entries are maps, so an element-wise copy is required to keep snapshots
// independent of the live node.
func cloneList(items []any) []any {
	copied := make([]any, len(items))
	for i, item := range items {
		switch typed := item.(type) {
		case map[string]any:
			copied[i] = cloneAttrs(typed)
		case []any:
			copied[i] = cloneList(typed)
		default:
			copied[i] = item
		}
	}
	return copied
}

// StringAttr returns the named attribute as a string, or "" when absent or
// not a string.
func (n *Node) StringAttr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	if value, ok := n.Attrs[key].(string); ok {
		return value
	}
	return ""
}

// FloatAttr returns the named attribute as a float64, or 0 when absent.
// JSON numbers always decode as float64 so integer attributes land here too.
func (n *Node) FloatAttr(key string) float64 {
	if n.Attrs == nil {
		return 0
	}
	switch value := n.Attrs[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	}
	return 0
}

// Allocations decodes the optimizer allocation table from Attrs. Returns nil
// for non-optimizer nodes or when the table is absent.
func (n *Node) Allocations() []Allocation {
	if n.Attrs == nil {
		return nil
	}
	raw, ok := n.Attrs["allocations"].([]any)
	if !ok {
		return nil
	}
	allocations := make([]Allocation, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		allocation := Allocation{}
		if target, ok := entry["target_node"].(string); ok {
			allocation.TargetNode = target
		}
		if value, ok := entry["expected_return"].(float64); ok {
			allocation.ExpectedReturn = value
		}
		if value, ok := entry["volatility"].(float64); ok {
			allocation.Volatility = value
		}
		if value, ok := entry["correlation"].(float64); ok {
			allocation.Correlation = value
		}
		allocations = append(allocations, allocation)
	}
	return allocations
}

// SetAllocations writes the allocation table back into Attrs in its raw
// attribute form.
func (n *Node) SetAllocations(allocations []Allocation) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	raw := make([]any, 0, len(allocations))
	for _, allocation := range allocations {
		raw = append(raw, map[string]any{
			"target_node":     allocation.TargetNode,
			"expected_return": allocation.ExpectedReturn,
			"volatility":      allocation.Volatility,
			"correlation":     allocation.Correlation,
		})
	}
	n.Attrs["allocations"] = raw
}

// Chain returns the chain this node's output lives on, falling back to the
// kind's home chain when the node does not carry an explicit chain attribute.
// Empty for chain-agnostic nodes (optimizer, chainless movement).
func (n *Node) Chain() string {
	switch n.Kind {
	case KindWallet, KindLending, KindVault:
		return n.StringAttr("chain")
	case KindMovement:
		if to := n.StringAttr("to_chain"); to != "" {
			return to
		}
		return n.StringAttr("from_chain")
	case KindPerp, KindOptions, KindPendle:
		return "hyperevm"
	case KindSpot, KindLp:
		return "base"
	}
	return ""
}

// DeriveLabel computes the node's short display label from its kind and the
// key attributes a user would recognize it by. Called after every attribute
// mutation so the label stays live.
func DeriveLabel(n *Node) string {
	suffix := ""
	if n.Trigger != nil {
		switch n.Trigger.Type {
		case TriggerOnEvent:
			suffix = " [on_event]"
		default:
			suffix = " [cron]"
		}
	}

	switch n.Kind {
	case KindWallet:
		return fmt.Sprintf("wallet(%s@%s)", n.StringAttr("token"), n.StringAttr("chain"))
	case KindPerp:
		action := n.StringAttr("action")
		parts := []string{n.StringAttr("venue"), action}
		if action == "open" || action == "adjust" {
			if direction := n.StringAttr("direction"); direction != "" {
				parts = append(parts, direction)
			}
			parts = append(parts, n.StringAttr("pair"))
			if leverage := n.FloatAttr("leverage"); leverage > 0 {
				parts = append(parts, fmt.Sprintf("%gx", leverage))
			}
		} else {
			parts = append(parts, n.StringAttr("pair"))
		}
		return fmt.Sprintf("perp(%s%s)", joinLabelParts(parts), suffix)
	case KindOptions:
		parts := []string{n.StringAttr("venue"), n.StringAttr("action"), n.StringAttr("asset")}
		if delta := n.FloatAttr("delta_target"); delta > 0 {
			parts = append(parts, fmt.Sprintf("%.0fd", delta*100))
		}
		return fmt.Sprintf("options(%s%s)", joinLabelParts(parts), suffix)
	case KindSpot:
		parts := []string{n.StringAttr("venue"), n.StringAttr("side"), n.StringAttr("pair")}
		return fmt.Sprintf("spot(%s%s)", joinLabelParts(parts), suffix)
	case KindLp:
		parts := []string{n.StringAttr("venue"), n.StringAttr("action"), n.StringAttr("pool")}
		return fmt.Sprintf("lp(%s%s)", joinLabelParts(parts), suffix)
	case KindMovement:
		movementType := n.StringAttr("movement_type")
		from := n.StringAttr("from_token")
		to := n.StringAttr("to_token")
		switch movementType {
		case "bridge":
			return fmt.Sprintf("movement(bridge %s %s %s->%s%s)",
				n.StringAttr("provider"), from, n.StringAttr("from_chain"), n.StringAttr("to_chain"), suffix)
		default:
			return fmt.Sprintf("movement(%s %s %s->%s%s)",
				movementType, n.StringAttr("provider"), from, to, suffix)
		}
	case KindLending:
		parts := []string{n.StringAttr("archetype"), n.StringAttr("action"), n.StringAttr("asset"), "on", n.StringAttr("chain")}
		return fmt.Sprintf("lending(%s%s)", joinLabelParts(parts), suffix)
	case KindVault:
		parts := []string{n.StringAttr("archetype"), n.StringAttr("action"), n.StringAttr("asset"), "on", n.StringAttr("chain")}
		return fmt.Sprintf("vault(%s%s)", joinLabelParts(parts), suffix)
	case KindPendle:
		parts := []string{n.StringAttr("action"), n.StringAttr("market")}
		return fmt.Sprintf("pendle(%s%s)", joinLabelParts(parts), suffix)
	case KindOptimizer:
		kelly := n.FloatAttr("kelly_fraction")
		venues := len(n.Allocations())
		drift := ""
		if threshold := n.FloatAttr("drift_threshold"); threshold > 0 {
			drift = fmt.Sprintf(" drift>%.0f%%", threshold*100)
		}
		return fmt.Sprintf("optimizer(%s %.0f%% kelly, %d venues%s%s)",
			n.StringAttr("strategy"), kelly*100, venues, drift, suffix)
	}
	return string(n.Kind)
}

func joinLabelParts(parts []string) string {
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// SortedAttrKeys returns the node's attribute keys in a stable order.
func (n *Node) SortedAttrKeys() []string {
	keys := make([]string, 0, len(n.Attrs))
	for key := range n.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
