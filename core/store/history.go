package store

import "github.com/parallaxfi/weft/core/graph"

// maxHistoryDepth bounds the undo stack. The oldest entry is evicted when a
// new snapshot would exceed it.
const maxHistoryDepth = 50

// snapshot is an immutable copy of the graph's structural state, captured
// just before a discrete mutation.
type snapshot struct {
	nodes []*graph.Node
	edges []graph.Edge
}

func captureSnapshot(nodes []*graph.Node, edges []graph.Edge) snapshot {
	nodeCopies := make([]*graph.Node, len(nodes))
	for i, node := range nodes {
		nodeCopies[i] = node.Clone()
	}
	edgeCopies := make([]graph.Edge, len(edges))
	copy(edgeCopies, edges)
	return snapshot{nodes: nodeCopies, edges: edgeCopies}
}

// history holds the bounded undo ring and the redo stack. Every new push
// clears the redo stack: once the user mutates past an undo point, the
// abandoned future is gone.
type history struct {
	past   []snapshot
	future []snapshot
}

func (h *history) push(entry snapshot) {
	h.past = append(h.past, entry)
	if len(h.past) > maxHistoryDepth {
		h.past = h.past[1:]
	}
	h.future = h.future[:0]
}

// undo pops the most recent past snapshot, pushing current onto the redo
// stack. Returns false when there is nothing to undo.
func (h *history) undo(current snapshot) (snapshot, bool) {
	if len(h.past) == 0 {
		return snapshot{}, false
	}
	restored := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return restored, true
}

// redo pops the most recent future snapshot, pushing current back onto the
// undo stack. Returns false when there is nothing to redo.
func (h *history) redo(current snapshot) (snapshot, bool) {
	if len(h.future) == 0 {
		return snapshot{}, false
	}
	restored := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return restored, true
}
