// Package token derives the asset flowing along an edge from the two node
// descriptors it connects. All functions are pure in the nodes' current
// attributes: no graph state, no I/O.
package token

import (
	"strings"

	"github.com/parallaxfi/weft/core/graph"
)

// fallbackToken is used when neither endpoint declares a token. USDC is the
// common settlement asset across every supported venue.
const fallbackToken = "USDC"

// perpMarginDefault maps a perp venue to its native margin token, used when
// the node does not set margin_token explicitly.
func perpMarginDefault(venue string) string {
	if strings.EqualFold(venue, "hyena") {
		return "USDe"
	}
	return "USDC"
}

// splitPair breaks a "BASE/QUOTE" trading pair into its two symbols.
func splitPair(pair string) (base, quote string, ok bool) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// marginToken returns the effective margin token for a perp node.
func marginToken(n *graph.Node) string {
	if margin := n.StringAttr("margin_token"); margin != "" {
		return margin
	}
	return perpMarginDefault(n.StringAttr("venue"))
}

// OutputToken returns the token a node emits downstream, or "" for
// passthrough nodes (optimizer) whose output depends on context.
func OutputToken(n *graph.Node) string {
	switch n.Kind {
	case graph.KindWallet:
		return n.StringAttr("token")
	case graph.KindSpot:
		base, quote, ok := splitPair(n.StringAttr("pair"))
		if !ok {
			return ""
		}
		// A buy acquires the base asset; a sell converts it into the quote.
		if n.StringAttr("side") == "sell" {
			return quote
		}
		return base
	case graph.KindPerp:
		return marginToken(n)
	case graph.KindOptions:
		// Premiums and settlements pay out in USD.
		return fallbackToken
	case graph.KindLp:
		if n.StringAttr("action") == "claim_rewards" {
			return "AERO"
		}
		return fallbackToken
	case graph.KindMovement:
		return n.StringAttr("to_token")
	case graph.KindLending, graph.KindVault:
		return n.StringAttr("asset")
	case graph.KindPendle:
		return fallbackToken
	case graph.KindOptimizer:
		return ""
	}
	return ""
}

// InputToken returns the token a node expects from upstream, or "" for
// nodes that accept any token contextually (optimizer).
func InputToken(n *graph.Node) string {
	switch n.Kind {
	case graph.KindWallet:
		return n.StringAttr("token")
	case graph.KindSpot:
		base, quote, ok := splitPair(n.StringAttr("pair"))
		if !ok {
			return ""
		}
		// A buy is funded with the quote asset; a sell consumes the base.
		if n.StringAttr("side") == "sell" {
			return base
		}
		return quote
	case graph.KindPerp:
		return marginToken(n)
	case graph.KindOptions:
		// Covered calls are collateralized with the underlying itself.
		if n.StringAttr("action") == "sell_covered_call" {
			return n.StringAttr("asset")
		}
		return fallbackToken
	case graph.KindLp:
		return fallbackToken
	case graph.KindMovement:
		return n.StringAttr("from_token")
	case graph.KindLending, graph.KindVault:
		return n.StringAttr("asset")
	case graph.KindPendle:
		return fallbackToken
	case graph.KindOptimizer:
		return ""
	}
	return ""
}

// InferEdgeToken derives the token flowing from source to target. The
// source's emitted token deterministically wins even when the target expects
// something else: capital-flow direction takes precedence over consumer
// expectation, and a mismatch is the structural validator's job to flag, not
// inference's. Passthrough sources fall back to the target's expectation,
// then to USDC.
func InferEdgeToken(source, target *graph.Node) string {
	if out := OutputToken(source); out != "" {
		return out
	}
	if in := InputToken(target); in != "" {
		return in
	}
	return fallbackToken
}
