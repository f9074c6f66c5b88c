package workflow

import (
	"fmt"

	"github.com/parallaxfi/weft/core/graph"
	"github.com/parallaxfi/weft/core/token"
)

// exportedAttrs lists, per kind, the attributes that belong in the
// interchange document. Anything else on a node is editor state and is
// stripped on export so stray fields never leak downstream.
var exportedAttrs = map[graph.Kind][]string{
	graph.KindWallet:    {"chain", "token", "address"},
	graph.KindPerp:      {"venue", "pair", "action", "direction", "leverage", "margin_token"},
	graph.KindOptions:   {"venue", "asset", "action", "delta_target", "days_to_expiry", "min_apy", "batch_size", "roll_days_before"},
	graph.KindSpot:      {"venue", "pair", "side"},
	graph.KindLp:        {"venue", "pool", "action", "tick_lower", "tick_upper", "tick_spacing"},
	graph.KindMovement:  {"movement_type", "provider", "from_token", "to_token", "from_chain", "to_chain"},
	graph.KindLending:   {"archetype", "chain", "pool_address", "asset", "action", "rewards_controller", "defillama_slug"},
	graph.KindVault:     {"archetype", "chain", "vault_address", "asset", "action", "defillama_slug"},
	graph.KindPendle:    {"market", "action"},
	graph.KindOptimizer: {"strategy", "kelly_fraction", "max_allocation", "drift_threshold", "allocations"},
}

// importGridColumns is the fixed column count for placeholder positions
// assigned on import, pending an explicit layout pass.
const importGridColumns = 3

const (
	gridColumnSpacing = 280.0
	gridRowSpacing    = 140.0
	gridMargin        = 60.0
)

// Export converts the editable graph into its interchange document. Node
// attributes pass through a per-kind allow-list; both manifests are synced
// against every token and contract reference the graph makes, inserting
// empty placeholders for newly discovered pairs while preserving addresses a
// user already entered, and dropping entries no reference needs once every
// address in them is empty. The input manifests are not mutated; the synced
// copies are returned on the document.
func Export(name, description string, nodes []*graph.Node, edges []graph.Edge, tokens, contracts graph.Manifest) *Document {
	doc := &Document{
		Name:        name,
		Description: description,
		Nodes:       make([]DocumentNode, 0, len(nodes)),
		Edges:       make([]DocumentEdge, 0, len(edges)),
	}

	byID := make(map[string]*graph.Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
		doc.Nodes = append(doc.Nodes, DocumentNode{
			ID:      node.ID,
			Kind:    node.Kind,
			Attrs:   filterAttrs(node),
			Trigger: node.Trigger,
		})
	}

	for _, edge := range edges {
		doc.Edges = append(doc.Edges, DocumentEdge{
			FromNode: edge.Source,
			ToNode:   edge.Target,
			Token:    edge.Token,
			Amount:   edge.Amount,
		})
	}

	doc.Tokens, doc.Contracts = syncManifests(nodes, edges, byID, tokens, contracts)
	return doc
}

func filterAttrs(node *graph.Node) map[string]any {
	allowed := exportedAttrs[node.Kind]
	attrs := make(map[string]any, len(allowed))
	for _, key := range allowed {
		if value, exists := node.Attrs[key]; exists && value != nil {
			attrs[key] = value
		}
	}
	return attrs
}

// syncManifests computes the exported token and contract manifests from the
// references the graph actually makes.
func syncManifests(nodes []*graph.Node, edges []graph.Edge, byID map[string]*graph.Node, tokens, contracts graph.Manifest) (graph.Manifest, graph.Manifest) {
	tokenRefs := make(map[string]map[string]bool)
	contractRefs := make(map[string]map[string]bool)

	refToken := func(symbol, chain string) {
		if symbol == "" {
			return
		}
		if tokenRefs[symbol] == nil {
			tokenRefs[symbol] = make(map[string]bool)
		}
		if chain != "" {
			tokenRefs[symbol][chain] = true
		}
	}
	refContract := func(label, chain string) {
		if label == "" {
			return
		}
		if contractRefs[label] == nil {
			contractRefs[label] = make(map[string]bool)
		}
		if chain != "" {
			contractRefs[label][chain] = true
		}
	}

	for _, node := range nodes {
		chain := node.Chain()
		switch node.Kind {
		case graph.KindWallet:
			refToken(node.StringAttr("token"), chain)
		case graph.KindMovement:
			fromChain := node.StringAttr("from_chain")
			refToken(node.StringAttr("from_token"), fromChain)
			refToken(node.StringAttr("to_token"), chain)
		case graph.KindLending:
			refToken(node.StringAttr("asset"), chain)
			refContract(node.StringAttr("pool_address"), chain)
			refContract(node.StringAttr("rewards_controller"), chain)
		case graph.KindVault:
			refToken(node.StringAttr("asset"), chain)
			refContract(node.StringAttr("vault_address"), chain)
		}
	}

	for _, edge := range edges {
		chain := ""
		if source, exists := byID[edge.Source]; exists {
			chain = source.Chain()
		}
		refToken(edge.Token, chain)
	}

	return rebuildManifest(tokens, tokenRefs), rebuildManifest(contracts, contractRefs)
}

// rebuildManifest merges existing manifest values with the current reference
// set. Referenced pairs get placeholders; existing entries survive as long as
// they are still referenced or hold at least one filled address.
func rebuildManifest(existing graph.Manifest, refs map[string]map[string]bool) graph.Manifest {
	synced := existing.Clone()
	if synced == nil {
		synced = make(graph.Manifest)
	}

	for key, chains := range refs {
		synced.Ensure(key, "")
		for chain := range chains {
			synced.Ensure(key, chain)
		}
	}

	for key := range synced {
		if _, referenced := refs[key]; referenced {
			continue
		}
		if synced.AllEmpty(key) {
			delete(synced, key)
		}
	}

	if len(synced) == 0 {
		return nil
	}
	return synced
}

// ImportedGraph is the editable-graph form of an interchange document.
type ImportedGraph struct {
	Name        string
	Description string
	Tokens      graph.Manifest
	Contracts   graph.Manifest
	Nodes       []*graph.Node
	Edges       []graph.Edge
}

// Import converts an interchange document into editable graph state. Each
// node gets a deterministic placeholder grid position (row-major, fixed
// column count) pending a layout pass, and every edge's token is recomputed
// from the endpoints rather than trusted from the document, so stale tokens
// written by older tools or hand edits self-heal. Structurally invalid edges
// (unknown endpoint, self-loop, duplicate ordered pair) are dropped.
func Import(doc *Document) (*ImportedGraph, error) {
	imported := &ImportedGraph{
		Name:        doc.Name,
		Description: doc.Description,
		Tokens:      doc.Tokens.Clone(),
		Contracts:   doc.Contracts.Clone(),
		Nodes:       make([]*graph.Node, 0, len(doc.Nodes)),
		Edges:       make([]graph.Edge, 0, len(doc.Edges)),
	}

	byID := make(map[string]*graph.Node, len(doc.Nodes))
	for i, docNode := range doc.Nodes {
		if !graph.ValidKind(docNode.Kind) {
			return nil, fmt.Errorf("node %q has unknown type %q", docNode.ID, docNode.Kind)
		}
		if _, exists := byID[docNode.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %q", docNode.ID)
		}
		node := &graph.Node{
			ID:      docNode.ID,
			Kind:    docNode.Kind,
			Attrs:   docNode.Attrs,
			Trigger: docNode.Trigger,
			Position: graph.Position{
				X: float64(i%importGridColumns)*gridColumnSpacing + gridMargin,
				Y: float64(i/importGridColumns)*gridRowSpacing + gridMargin,
			},
		}
		node.Label = graph.DeriveLabel(node)
		byID[node.ID] = node
		imported.Nodes = append(imported.Nodes, node)
	}

	seenPairs := make(map[[2]string]bool, len(doc.Edges))
	for _, docEdge := range doc.Edges {
		source, sourceOK := byID[docEdge.FromNode]
		target, targetOK := byID[docEdge.ToNode]
		if !sourceOK || !targetOK || docEdge.FromNode == docEdge.ToNode {
			continue
		}
		pair := [2]string{docEdge.FromNode, docEdge.ToNode}
		if seenPairs[pair] {
			continue
		}
		seenPairs[pair] = true

		amount := docEdge.Amount
		if amount.Type == "" {
			amount = graph.AmountAllOf()
		}
		imported.Edges = append(imported.Edges, graph.Edge{
			Source:     docEdge.FromNode,
			Target:     docEdge.ToNode,
			Token:      token.InferEdgeToken(source, target),
			Amount:     amount,
			SourceKind: source.Kind,
		})
	}

	return imported, nil
}
