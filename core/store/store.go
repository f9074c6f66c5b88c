// Package store owns the canonical node/edge/selection state of a strategy
// graph: its mutation operations, undo/redo history, debounced persistence,
// and change notifications. It composes the token inference, layout and
// workflow codec engines.
//
// All methods are synchronous: a mutation's effect is visible to the very
// next read on the same Store, which is what lets consecutive tool calls in
// one agent turn observe each other's writes. The Subscribe channel is the
// asynchronous path presentation layers watch instead.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/parallaxfi/weft/core/graph"
	"github.com/parallaxfi/weft/core/layout"
	"github.com/parallaxfi/weft/core/token"
	"github.com/parallaxfi/weft/core/workflow"
	"github.com/parallaxfi/weft/providers/observability"
	"github.com/parallaxfi/weft/providers/persistence"
)

// defaultDebounce is how long continuous edits coalesce before an autosave.
const defaultDebounce = time.Second

// ManifestTokens and ManifestContracts name the two manifest instances for
// SetManifest and Manifest.
const (
	ManifestTokens    = "tokens"
	ManifestContracts = "contracts"
)

// Store is the single owner of one strategy graph. Create independent
// instances freely; nothing here is a global.
//
// A mutex guards all state: the debounce timer fires on its own goroutine
// and subscribers may read from theirs, so the single-caller convention for
// mutations is not enough on its own.
type Store struct {
	mu sync.Mutex

	name        string
	description string
	nodes       []*graph.Node
	edges       []graph.Edge
	tokens      graph.Manifest
	contracts   graph.Manifest
	selected    string

	hist history

	persist       persistence.Port
	slot          string
	observer      observability.Provider
	debounceDelay time.Duration
	debounce      *time.Timer

	subscribers []chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence injects the snapshot port and the slot name this store
// saves into.
func WithPersistence(port persistence.Port, slot string) Option {
	return func(s *Store) {
		s.persist = port
		s.slot = slot
	}
}

// WithObserver attaches an observability provider for store-level logging.
func WithObserver(observer observability.Provider) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// WithDebounce overrides the autosave debounce delay. Mostly for tests.
func WithDebounce(delay time.Duration) Option {
	return func(s *Store) {
		s.debounceDelay = delay
	}
}

// New creates an empty store named "Untitled Strategy".
func New(options ...Option) *Store {
	s := &Store{
		name:          "Untitled Strategy",
		tokens:        make(graph.Manifest),
		contracts:     make(graph.Manifest),
		debounceDelay: defaultDebounce,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Close stops the pending debounce timer, flushing any unsaved state first.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		if s.debounce.Stop() {
			s.flushLocked()
		}
		s.debounce = nil
	}
}

// --- Mutations ---

// AddNode appends a node, deselects everything else, selects the new node,
// pushes history and flushes persistence immediately. The node's label is
// derived from its attributes. Errors when the id is taken or the kind is
// not a member of the closed kind set.
func (s *Store) AddNode(node *graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if !graph.ValidKind(node.Kind) {
		return fmt.Errorf("unknown node kind %q", node.Kind)
	}
	if s.findNodeLocked(node.ID) != nil {
		return fmt.Errorf("node %q already exists", node.ID)
	}

	s.pushHistoryLocked()

	added := node.Clone()
	if added.Attrs == nil {
		added.Attrs = make(map[string]any)
	}
	added.Label = graph.DeriveLabel(added)
	s.nodes = append(s.nodes, added)
	s.selected = added.ID

	s.logLocked("Node added",
		observability.String(observability.AttrGraphNodeID, added.ID),
		observability.String(observability.AttrGraphNodeKind, string(added.Kind)),
	)
	s.autosaveLocked(true)
	s.notifyLocked()
	return nil
}

// RemoveNode deletes the node and cascades to every edge where it is source
// or target, clears a selection pointing at it, prunes optimizer allocation
// entries that targeted it, pushes history and flushes immediately.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findNodeLocked(id) == nil {
		return fmt.Errorf("node %q does not exist", id)
	}

	s.pushHistoryLocked()

	kept := s.nodes[:0]
	for _, node := range s.nodes {
		if node.ID != id {
			kept = append(kept, node)
		}
	}
	s.nodes = kept

	keptEdges := s.edges[:0]
	for _, edge := range s.edges {
		if edge.Source != id && edge.Target != id {
			keptEdges = append(keptEdges, edge)
		}
	}
	s.edges = keptEdges

	if s.selected == id {
		s.selected = ""
	}
	s.pruneAllocationsLocked(id)

	s.logLocked("Node removed", observability.String(observability.AttrGraphNodeID, id))
	s.autosaveLocked(true)
	s.notifyLocked()
	return nil
}

// UpdateNodeAttributes merges partial into the node's attribute record and
// recomputes its display label plus the token of every incident edge. Treated
// as a continuous edit: no history entry, and persistence is debounced.
func (s *Store) UpdateNodeAttributes(id string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findNodeLocked(id)
	if node == nil {
		return fmt.Errorf("node %q does not exist", id)
	}

	if node.Attrs == nil {
		node.Attrs = make(map[string]any, len(partial))
	}
	for key, value := range partial {
		if value == nil {
			delete(node.Attrs, key)
			continue
		}
		node.Attrs[key] = value
	}
	node.Label = graph.DeriveLabel(node)
	s.reinferIncidentEdgesLocked(id)

	s.autosaveLocked(false)
	s.notifyLocked()
	return nil
}

// SetTrigger replaces the node's trigger (nil clears it) and refreshes its
// label. Debounced like any other attribute edit.
func (s *Store) SetTrigger(id string, trigger *graph.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findNodeLocked(id)
	if node == nil {
		return fmt.Errorf("node %q does not exist", id)
	}
	node.Trigger = trigger
	node.Label = graph.DeriveLabel(node)

	s.autosaveLocked(false)
	s.notifyLocked()
	return nil
}

// AddEdge connects source to target. When tokenSymbol is empty the token is
// inferred from the endpoints. Errors on self-loops, missing endpoints and
// duplicate ordered pairs. Pushes history and flushes immediately. An edge
// out of an optimizer node keeps the optimizer's allocation table in sync.
func (s *Store) AddEdge(source, target, tokenSymbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == target {
		return fmt.Errorf("edge source and target must differ (%q)", source)
	}
	sourceNode := s.findNodeLocked(source)
	if sourceNode == nil {
		return fmt.Errorf("source node %q does not exist", source)
	}
	targetNode := s.findNodeLocked(target)
	if targetNode == nil {
		return fmt.Errorf("target node %q does not exist", target)
	}
	if s.findEdgeLocked(source, target) >= 0 {
		return fmt.Errorf("edge %s->%s already exists", source, target)
	}

	s.pushHistoryLocked()

	if tokenSymbol == "" {
		tokenSymbol = token.InferEdgeToken(sourceNode, targetNode)
	}
	s.edges = append(s.edges, graph.Edge{
		Source:     source,
		Target:     target,
		Token:      tokenSymbol,
		Amount:     graph.AmountAllOf(),
		SourceKind: sourceNode.Kind,
	})

	if sourceNode.Kind == graph.KindOptimizer {
		s.syncAllocationAddLocked(sourceNode, target)
	}

	s.logLocked("Edge added", observability.String(observability.AttrGraphEdge, source+"->"+target))
	s.autosaveLocked(true)
	s.notifyLocked()
	return nil
}

// RemoveEdge deletes the edge for the ordered pair, erroring when no such
// edge exists. Pushes history and flushes immediately.
func (s *Store) RemoveEdge(source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.findEdgeLocked(source, target)
	if index < 0 {
		return fmt.Errorf("edge %s->%s does not exist", source, target)
	}

	s.pushHistoryLocked()
	s.edges = append(s.edges[:index], s.edges[index+1:]...)

	if sourceNode := s.findNodeLocked(source); sourceNode != nil && sourceNode.Kind == graph.KindOptimizer {
		s.syncAllocationRemoveLocked(sourceNode, target)
	}

	s.logLocked("Edge removed", observability.String(observability.AttrGraphEdge, source+"->"+target))
	s.autosaveLocked(true)
	s.notifyLocked()
	return nil
}

// Undo restores the node/edge collections from the most recent history
// entry. Silent no-op when the undo stack is empty.
func (s *Store) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored, ok := s.hist.undo(captureSnapshot(s.nodes, s.edges))
	if !ok {
		return
	}
	s.restoreLocked(restored)
}

// Redo reverses the most recent Undo. Silent no-op when the redo stack is
// empty.
func (s *Store) Redo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored, ok := s.hist.redo(captureSnapshot(s.nodes, s.edges))
	if !ok {
		return
	}
	s.restoreLocked(restored)
}

func (s *Store) restoreLocked(entry snapshot) {
	s.nodes = entry.nodes
	s.edges = entry.edges
	if s.selected != "" && s.findNodeLocked(s.selected) == nil {
		s.selected = ""
	}
	s.autosaveLocked(true)
	s.notifyLocked()
}

// SetName renames the strategy. Debounced persistence.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.autosaveLocked(false)
	s.notifyLocked()
}

// SetDescription updates the strategy description. Debounced persistence.
func (s *Store) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = description
	s.autosaveLocked(false)
	s.notifyLocked()
}

// SetManifest writes the per-chain addresses for one key of the named
// manifest ("tokens" or "contracts"), merging over existing entries so a
// filled address is never clobbered by an empty one.
func (s *Store) SetManifest(manifest, key string, addresses map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target graph.Manifest
	switch manifest {
	case ManifestTokens:
		target = s.tokens
	case ManifestContracts:
		target = s.contracts
	default:
		return fmt.Errorf("unknown manifest %q (want %q or %q)", manifest, ManifestTokens, ManifestContracts)
	}
	if key == "" {
		return fmt.Errorf("manifest key must not be empty")
	}

	target.Merge(graph.Manifest{key: addresses})
	s.autosaveLocked(false)
	s.notifyLocked()
	return nil
}

// Clear removes every node and edge plus the selection, keeping name,
// description and manifests. Pushes history and flushes immediately.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushHistoryLocked()
	s.nodes = nil
	s.edges = nil
	s.selected = ""

	s.logLocked("Canvas cleared")
	s.autosaveLocked(true)
	s.notifyLocked()
}

// SelectNode marks a node as selected, or clears the selection when id is
// empty. Selection is presentation state: no history, no persistence.
func (s *Store) SelectNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.findNodeLocked(id) == nil {
		return fmt.Errorf("node %q does not exist", id)
	}
	s.selected = id
	s.notifyLocked()
	return nil
}

// ApplyLayout repositions every node with the deterministic topological
// layout. Positions are presentation state, so no history entry; persistence
// is debounced.
func (s *Store) ApplyLayout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout.Apply(s.nodes, s.edges)
	s.autosaveLocked(false)
	s.notifyLocked()
}

// ImportDocument replaces the whole graph with the document's contents.
// Manifests merge rather than replace so previously filled addresses
// survive a re-import. Pushes history and flushes immediately.
func (s *Store) ImportDocument(doc *workflow.Document) error {
	imported, err := workflow.Import(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushHistoryLocked()
	s.name = imported.Name
	s.description = imported.Description
	s.nodes = imported.Nodes
	s.edges = imported.Edges
	s.selected = ""
	s.tokens.Merge(imported.Tokens)
	s.contracts.Merge(imported.Contracts)

	s.logLocked("Workflow imported",
		observability.Int("graph.nodes", len(s.nodes)),
		observability.Int("graph.edges", len(s.edges)),
	)
	s.autosaveLocked(true)
	s.notifyLocked()
	return nil
}

// ExportDocument renders the graph as its interchange document. The codec's
// manifest sync (placeholder insertion, pruning of unreferenced all-empty
// entries) is written back to the store so the editor view matches what was
// exported.
func (s *Store) ExportDocument() *workflow.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := workflow.Export(s.name, s.description, s.nodes, s.edges, s.tokens, s.contracts)

	s.tokens = doc.Tokens.Clone()
	if s.tokens == nil {
		s.tokens = make(graph.Manifest)
	}
	s.contracts = doc.Contracts.Clone()
	if s.contracts == nil {
		s.contracts = make(graph.Manifest)
	}

	s.autosaveLocked(false)
	return doc
}

// --- Reads ---

// Name returns the strategy name.
func (s *Store) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Description returns the strategy description.
func (s *Store) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (*graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := s.findNodeLocked(id)
	if node == nil {
		return nil, false
	}
	return node.Clone(), true
}

// Nodes returns copies of every node in insertion order.
func (s *Store) Nodes() []*graph.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]*graph.Node, len(s.nodes))
	for i, node := range s.nodes {
		nodes[i] = node.Clone()
	}
	return nodes
}

// Edges returns a copy of the edge collection.
func (s *Store) Edges() []graph.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	edges := make([]graph.Edge, len(s.edges))
	copy(edges, s.edges)
	return edges
}

// Selected returns the id of the selected node, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Manifest returns a copy of the named manifest ("tokens" or "contracts").
func (s *Store) Manifest(manifest string) graph.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch manifest {
	case ManifestTokens:
		return s.tokens.Clone()
	case ManifestContracts:
		return s.contracts.Clone()
	}
	return nil
}

// Subscribe returns a channel that receives a signal after every state
// change. The channel is buffered with capacity one and never blocks the
// store: rapid changes coalesce into a single pending signal, so consumers
// re-read current state rather than counting events.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// --- Persistence ---

// persistedState is the single named slot's wire form, overwritten wholesale
// on every flush.
type persistedState struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Nodes       []*graph.Node  `json:"nodes"`
	Edges       []graph.Edge   `json:"edges"`
	Tokens      graph.Manifest `json:"tokens,omitempty"`
	Contracts   graph.Manifest `json:"contracts,omitempty"`
}

// Autosave serializes the full state into the persistence slot. With
// immediate=false the write is debounced; immediate=true bypasses the timer
// and writes now. Persistence failures are swallowed: in-memory state stays
// authoritative and the next successful flush recovers.
func (s *Store) Autosave(immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosaveLocked(immediate)
}

// Load restores state from the persistence slot. A missing snapshot is not
// an error; the store simply stays empty.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	data, err := s.persist.Load(ctx, s.slot)
	if err != nil {
		if err == persistence.ErrNotFound {
			return nil
		}
		return fmt.Errorf("loading snapshot %q: %w", s.slot, err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decoding snapshot %q: %w", s.slot, err)
	}

	s.name = state.Name
	s.description = state.Description
	s.nodes = state.Nodes
	s.edges = state.Edges
	s.tokens = state.Tokens
	if s.tokens == nil {
		s.tokens = make(graph.Manifest)
	}
	s.contracts = state.Contracts
	if s.contracts == nil {
		s.contracts = make(graph.Manifest)
	}
	s.selected = ""
	s.notifyLocked()
	return nil
}

func (s *Store) autosaveLocked(immediate bool) {
	if s.persist == nil {
		return
	}
	if immediate {
		if s.debounce != nil {
			s.debounce.Stop()
			s.debounce = nil
		}
		s.flushLocked()
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.debounceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.debounce = nil
		s.flushLocked()
	})
}

func (s *Store) flushLocked() {
	state := persistedState{
		Name:        s.name,
		Description: s.description,
		Nodes:       s.nodes,
		Edges:       s.edges,
		Tokens:      s.tokens,
		Contracts:   s.contracts,
	}
	data, err := json.Marshal(state)
	if err != nil {
		s.logWarnLocked("Snapshot encoding failed", observability.Error(err))
		return
	}
	if err := s.persist.Save(context.Background(), s.slot, data); err != nil {
		// Best effort: state stays authoritative in memory, the next
		// successful flush recovers.
		s.logWarnLocked("Snapshot save failed",
			observability.String(observability.AttrGraphSlot, s.slot),
			observability.Error(err),
		)
	}
}

// --- Internal helpers ---

func (s *Store) findNodeLocked(id string) *graph.Node {
	for _, node := range s.nodes {
		if node.ID == id {
			return node
		}
	}
	return nil
}

func (s *Store) findEdgeLocked(source, target string) int {
	for i, edge := range s.edges {
		if edge.Source == source && edge.Target == target {
			return i
		}
	}
	return -1
}

func (s *Store) pushHistoryLocked() {
	s.hist.push(captureSnapshot(s.nodes, s.edges))
}

// reinferIncidentEdgesLocked recomputes the token of every edge touching id
// so displayed tokens track attribute edits without user action.
func (s *Store) reinferIncidentEdgesLocked(id string) {
	for i := range s.edges {
		edge := &s.edges[i]
		if edge.Source != id && edge.Target != id {
			continue
		}
		sourceNode := s.findNodeLocked(edge.Source)
		targetNode := s.findNodeLocked(edge.Target)
		if sourceNode == nil || targetNode == nil {
			continue
		}
		edge.Token = token.InferEdgeToken(sourceNode, targetNode)
		edge.SourceKind = sourceNode.Kind
	}
}

// pruneAllocationsLocked drops allocation entries pointing at a removed node
// from every optimizer in the graph.
func (s *Store) pruneAllocationsLocked(removed string) {
	for _, node := range s.nodes {
		if node.Kind != graph.KindOptimizer {
			continue
		}
		allocations := node.Allocations()
		kept := allocations[:0]
		for _, allocation := range allocations {
			if allocation.TargetNode != removed {
				kept = append(kept, allocation)
			}
		}
		if len(kept) != len(allocations) {
			node.SetAllocations(kept)
			node.Label = graph.DeriveLabel(node)
		}
	}
}

func (s *Store) syncAllocationAddLocked(optimizer *graph.Node, target string) {
	allocations := optimizer.Allocations()
	for _, allocation := range allocations {
		if allocation.TargetNode == target {
			return
		}
	}
	allocations = append(allocations, graph.Allocation{TargetNode: target})
	optimizer.SetAllocations(allocations)
	optimizer.Label = graph.DeriveLabel(optimizer)
}

func (s *Store) syncAllocationRemoveLocked(optimizer *graph.Node, target string) {
	allocations := optimizer.Allocations()
	kept := allocations[:0]
	for _, allocation := range allocations {
		if allocation.TargetNode != target {
			kept = append(kept, allocation)
		}
	}
	if len(kept) != len(allocations) {
		optimizer.SetAllocations(kept)
		optimizer.Label = graph.DeriveLabel(optimizer)
	}
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) logLocked(msg string, attrs ...observability.Attribute) {
	if s.observer != nil {
		s.observer.Debug(context.Background(), msg, attrs...)
	}
}

func (s *Store) logWarnLocked(msg string, attrs ...observability.Attribute) {
	if s.observer != nil {
		s.observer.Warn(context.Background(), msg, attrs...)
	}
}
