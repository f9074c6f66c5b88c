package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/parallaxfi/weft/core/graph"
	"github.com/parallaxfi/weft/core/workflow"
	"github.com/parallaxfi/weft/providers/persistence/inmemory"
)

func walletNode(id, token string) *graph.Node {
	return &graph.Node{ID: id, Kind: graph.KindWallet, Attrs: map[string]any{"token": token, "chain": "base"}}
}

func mustAddNode(t *testing.T, s *Store, node *graph.Node) {
	t.Helper()
	if err := s.AddNode(node); err != nil {
		t.Fatalf("AddNode(%s): %v", node.ID, err)
	}
}

func mustAddEdge(t *testing.T, s *Store, source, target string) {
	t.Helper()
	if err := s.AddEdge(source, target, ""); err != nil {
		t.Fatalf("AddEdge(%s->%s): %v", source, target, err)
	}
}

func TestAddNodeValidation(t *testing.T) {
	s := New()

	if err := s.AddNode(&graph.Node{ID: "", Kind: graph.KindWallet}); err == nil {
		t.Error("empty id accepted")
	}
	if err := s.AddNode(&graph.Node{ID: "x", Kind: "teleport"}); err == nil {
		t.Error("unknown kind accepted")
	}

	mustAddNode(t, s, walletNode("w1", "USDC"))
	if err := s.AddNode(walletNode("w1", "ETH")); err == nil {
		t.Error("duplicate id accepted")
	}

	if s.Selected() != "w1" {
		t.Errorf("Selected() = %q, want new node", s.Selected())
	}
	added, _ := s.Node("w1")
	if added.Label != "wallet(USDC@base)" {
		t.Errorf("label not derived: %q", added.Label)
	}
}

func TestAddEdgeDuplicateRejected(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, walletNode("w2", "USDC"))

	mustAddEdge(t, s, "w1", "w2")
	if err := s.AddEdge("w1", "w2", ""); err == nil {
		t.Fatal("duplicate edge accepted")
	}
	if got := len(s.Edges()); got != 1 {
		t.Errorf("got %d edges, want exactly 1", got)
	}
	// The reverse direction is a different ordered pair.
	mustAddEdge(t, s, "w2", "w1")
}

func TestAddEdgeSelfLoopAndMissingEndpoints(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))

	if err := s.AddEdge("w1", "w1", ""); err == nil {
		t.Error("self-loop accepted")
	}
	if err := s.AddEdge("w1", "ghost", ""); err == nil {
		t.Error("missing target accepted")
	}
	if err := s.AddEdge("ghost", "w1", ""); err == nil {
		t.Error("missing source accepted")
	}
}

func TestAddEdgeInfersToken(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, &graph.Node{ID: "lend1", Kind: graph.KindLending, Attrs: map[string]any{"asset": "USDC", "action": "supply"}})

	mustAddEdge(t, s, "w1", "lend1")

	edges := s.Edges()
	if edges[0].Token != "USDC" {
		t.Errorf("edge token = %q, want USDC", edges[0].Token)
	}
	if edges[0].Amount.Type != graph.AmountAll {
		t.Errorf("edge amount = %+v, want all", edges[0].Amount)
	}
	if edges[0].SourceKind != graph.KindWallet {
		t.Errorf("edge source kind = %q", edges[0].SourceKind)
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("a", "USDC"))
	mustAddNode(t, s, walletNode("b", "USDC"))
	mustAddNode(t, s, walletNode("c", "USDC"))
	mustAddEdge(t, s, "a", "b")
	mustAddEdge(t, s, "b", "c")

	if err := s.RemoveNode("b"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	if got := len(s.Nodes()); got != 2 {
		t.Errorf("got %d nodes, want 2", got)
	}
	if got := len(s.Edges()); got != 0 {
		t.Errorf("got %d edges, want 0 after cascade", got)
	}
	if s.Selected() == "b" {
		t.Error("selection still points at removed node")
	}
}

func TestUpdateNodeAttributesReinfersIncidentEdges(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, &graph.Node{ID: "opt", Kind: graph.KindOptimizer, Attrs: map[string]any{"strategy": "kelly"}})
	mustAddEdge(t, s, "w1", "opt")

	if s.Edges()[0].Token != "USDC" {
		t.Fatalf("precondition: token = %q", s.Edges()[0].Token)
	}

	if err := s.UpdateNodeAttributes("w1", map[string]any{"token": "ETH"}); err != nil {
		t.Fatalf("UpdateNodeAttributes: %v", err)
	}

	if got := s.Edges()[0].Token; got != "ETH" {
		t.Errorf("edge token after attribute edit = %q, want ETH", got)
	}
	node, _ := s.Node("w1")
	if node.Label != "wallet(ETH@base)" {
		t.Errorf("label not re-derived: %q", node.Label)
	}
}

func TestUpdateNodeAttributesNilDeletesKey(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))

	if err := s.UpdateNodeAttributes("w1", map[string]any{"token": nil, "address": "0xabc"}); err != nil {
		t.Fatalf("UpdateNodeAttributes: %v", err)
	}
	node, _ := s.Node("w1")
	if _, exists := node.Attrs["token"]; exists {
		t.Error("nil value did not delete the key")
	}
	if node.Attrs["address"] != "0xabc" {
		t.Error("merge lost the new key")
	}
}

func TestUndoRedo(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, walletNode("w2", "USDC"))
	mustAddEdge(t, s, "w1", "w2")

	s.Undo() // edge
	if len(s.Edges()) != 0 || len(s.Nodes()) != 2 {
		t.Fatalf("after first undo: %d nodes %d edges", len(s.Nodes()), len(s.Edges()))
	}
	s.Undo() // w2
	if len(s.Nodes()) != 1 {
		t.Fatalf("after second undo: %d nodes", len(s.Nodes()))
	}

	s.Redo()
	s.Redo()
	if len(s.Nodes()) != 2 || len(s.Edges()) != 1 {
		t.Fatalf("after redo: %d nodes %d edges", len(s.Nodes()), len(s.Edges()))
	}
}

func TestUndoEmptyIsSilentNoOp(t *testing.T) {
	s := New()
	s.Undo()
	s.Redo()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	if len(s.Nodes()) != 1 {
		t.Fatal("no-op undo corrupted state")
	}
}

func TestRedoClearedByNewMutation(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	s.Undo()
	mustAddNode(t, s, walletNode("w2", "USDC"))
	s.Redo() // must be a no-op: the w1 future was abandoned

	nodes := s.Nodes()
	if len(nodes) != 1 || nodes[0].ID != "w2" {
		t.Errorf("redo after mutation not cleared: %d nodes", len(nodes))
	}
}

func TestHistoryDepthBounded(t *testing.T) {
	s := New()
	for i := 0; i < maxHistoryDepth+5; i++ {
		mustAddNode(t, s, walletNode(fmt.Sprintf("w%d", i), "USDC"))
	}
	for i := 0; i < maxHistoryDepth+10; i++ {
		s.Undo()
	}
	// The oldest 5 additions fell off the ring, so 5 nodes survive every undo.
	if got := len(s.Nodes()); got != 5 {
		t.Errorf("got %d nodes after exhausting history, want 5", got)
	}
}

func TestUndoDoesNotRollBackAttributeEdits(t *testing.T) {
	// Attribute edits are continuous: no history entry of their own. Undo
	// rolls back to the snapshot before the last discrete mutation, which
	// predates the node entirely here.
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	if err := s.UpdateNodeAttributes("w1", map[string]any{"token": "ETH"}); err != nil {
		t.Fatal(err)
	}
	s.Undo()
	if len(s.Nodes()) != 0 {
		t.Errorf("got %d nodes, want 0", len(s.Nodes()))
	}
}

func TestClearKeepsNameAndManifests(t *testing.T) {
	s := New()
	s.SetName("Looper")
	if err := s.SetManifest(ManifestTokens, "USDC", map[string]string{"base": "0xabc"}); err != nil {
		t.Fatal(err)
	}
	mustAddNode(t, s, walletNode("w1", "USDC"))

	s.Clear()

	if len(s.Nodes()) != 0 || len(s.Edges()) != 0 {
		t.Error("Clear left graph content behind")
	}
	if s.Name() != "Looper" {
		t.Errorf("Clear dropped the name: %q", s.Name())
	}
	if s.Manifest(ManifestTokens)["USDC"]["base"] != "0xabc" {
		t.Error("Clear dropped the token manifest")
	}

	s.Undo()
	if len(s.Nodes()) != 1 {
		t.Error("Clear is not undoable")
	}
}

func TestSetManifestMergesAndValidates(t *testing.T) {
	s := New()
	if err := s.SetManifest("wallets", "USDC", nil); err == nil {
		t.Error("unknown manifest name accepted")
	}
	if err := s.SetManifest(ManifestTokens, "", nil); err == nil {
		t.Error("empty key accepted")
	}

	if err := s.SetManifest(ManifestContracts, "aave_pool", map[string]string{"hyperevm": "0x1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetManifest(ManifestContracts, "aave_pool", map[string]string{"hyperevm": "", "base": "0x2"}); err != nil {
		t.Fatal(err)
	}

	contracts := s.Manifest(ManifestContracts)
	if contracts["aave_pool"]["hyperevm"] != "0x1" {
		t.Error("empty address clobbered filled one")
	}
	if contracts["aave_pool"]["base"] != "0x2" {
		t.Error("merge lost the new chain")
	}
}

func TestOptimizerAllocationSync(t *testing.T) {
	s := New()
	mustAddNode(t, s, &graph.Node{ID: "opt", Kind: graph.KindOptimizer, Attrs: map[string]any{"strategy": "kelly"}})
	mustAddNode(t, s, &graph.Node{ID: "lend1", Kind: graph.KindLending, Attrs: map[string]any{"asset": "USDC"}})
	mustAddNode(t, s, &graph.Node{ID: "lend2", Kind: graph.KindLending, Attrs: map[string]any{"asset": "WETH"}})

	mustAddEdge(t, s, "opt", "lend1")
	mustAddEdge(t, s, "opt", "lend2")

	optimizer, _ := s.Node("opt")
	allocations := optimizer.Allocations()
	if len(allocations) != 2 || allocations[0].TargetNode != "lend1" || allocations[1].TargetNode != "lend2" {
		t.Fatalf("allocations after edges = %+v", allocations)
	}

	if err := s.RemoveEdge("opt", "lend1"); err != nil {
		t.Fatal(err)
	}
	optimizer, _ = s.Node("opt")
	allocations = optimizer.Allocations()
	if len(allocations) != 1 || allocations[0].TargetNode != "lend2" {
		t.Fatalf("allocations after edge removal = %+v", allocations)
	}

	if err := s.RemoveNode("lend2"); err != nil {
		t.Fatal(err)
	}
	optimizer, _ = s.Node("opt")
	if len(optimizer.Allocations()) != 0 {
		t.Fatalf("allocations after node removal = %+v", optimizer.Allocations())
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))

	copied, _ := s.Node("w1")
	copied.Attrs["token"] = "HACKED"

	fresh, _ := s.Node("w1")
	if fresh.Attrs["token"] != "USDC" {
		t.Error("Node() leaks internal state")
	}
}

func TestDebouncedAutosave(t *testing.T) {
	port := inmemory.New()
	s := New(
		WithPersistence(port, "test"),
		WithDebounce(20*time.Millisecond),
	)
	mustAddNode(t, s, walletNode("w1", "USDC")) // immediate flush

	s.SetName("Renamed") // debounced
	data, err := port.Load(context.Background(), "test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var saved struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Name == "Renamed" {
		t.Fatal("debounced write flushed immediately")
	}

	time.Sleep(80 * time.Millisecond)
	data, _ = port.Load(context.Background(), "test")
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Name != "Renamed" {
		t.Errorf("debounced write never flushed: %q", saved.Name)
	}
}

func TestCloseFlushesPendingDebounce(t *testing.T) {
	port := inmemory.New()
	s := New(
		WithPersistence(port, "test"),
		WithDebounce(time.Hour),
	)
	mustAddNode(t, s, walletNode("w1", "USDC"))
	s.SetName("Final")

	s.Close()

	data, err := port.Load(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	var saved struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Name != "Final" {
		t.Errorf("Close dropped the pending write: %q", saved.Name)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	port := inmemory.New()
	s := New(WithPersistence(port, "slot1"))
	s.SetName("Roundtrip")
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, walletNode("w2", "ETH"))
	mustAddEdge(t, s, "w1", "w2")
	s.Autosave(true)

	restored := New(WithPersistence(port, "slot1"))
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if restored.Name() != "Roundtrip" {
		t.Errorf("name = %q", restored.Name())
	}
	if len(restored.Nodes()) != 2 || len(restored.Edges()) != 1 {
		t.Errorf("restored %d nodes %d edges", len(restored.Nodes()), len(restored.Edges()))
	}
	if restored.Edges()[0].Amount.Type != graph.AmountAll {
		t.Errorf("edge amount lost in round trip: %+v", restored.Edges()[0].Amount)
	}
}

func TestLoadMissingSlotIsNotAnError(t *testing.T) {
	s := New(WithPersistence(inmemory.New(), "never-saved"))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load of missing slot: %v", err)
	}
	if s.Name() != "Untitled Strategy" {
		t.Errorf("name = %q", s.Name())
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	s := New()
	ch := s.Subscribe()

	for i := 0; i < 5; i++ {
		mustAddNode(t, s, walletNode(fmt.Sprintf("w%d", i), "USDC"))
	}

	select {
	case <-ch:
	default:
		t.Fatal("no signal after mutations")
	}
	// All five changes coalesced into one pending signal.
	select {
	case <-ch:
		t.Fatal("more than one pending signal")
	default:
	}
}

func TestImportExportDocument(t *testing.T) {
	s := New()
	mustAddNode(t, s, walletNode("w1", "USDC"))
	mustAddNode(t, s, &graph.Node{ID: "lend1", Kind: graph.KindLending, Attrs: map[string]any{
		"archetype": "aave_v3", "chain": "hyperevm", "asset": "USDC", "action": "supply",
	}})
	mustAddEdge(t, s, "w1", "lend1")
	s.SetName("Supply Loop")

	doc := s.ExportDocument()
	if doc.Name != "Supply Loop" || len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Fatalf("export: name=%q nodes=%d edges=%d", doc.Name, len(doc.Nodes), len(doc.Edges))
	}

	other := New()
	if err := other.ImportDocument(doc); err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if other.Name() != "Supply Loop" || len(other.Nodes()) != 2 || len(other.Edges()) != 1 {
		t.Errorf("import: name=%q nodes=%d edges=%d", other.Name(), len(other.Nodes()), len(other.Edges()))
	}
	if other.Edges()[0].Token != "USDC" {
		t.Errorf("edge token after import = %q", other.Edges()[0].Token)
	}

	other.Undo()
	if len(other.Nodes()) != 0 {
		t.Error("import is not undoable")
	}
}

func TestImportDocumentRejectsUnknownKind(t *testing.T) {
	s := New()
	doc := &workflow.Document{
		Name: "bad",
		Nodes: []workflow.DocumentNode{
			{ID: "x", Kind: "teleport"},
		},
	}
	if err := s.ImportDocument(doc); err == nil {
		t.Fatal("unknown node kind accepted")
	}
	if len(s.Nodes()) != 0 {
		t.Error("failed import mutated the store")
	}
}
