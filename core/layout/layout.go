// Package layout deterministically positions the node set by topological
// layering: roots at layer 0, every other node one past its deepest parent,
// columns spaced per layer and rows per index within a layer. Cycles never
// error; nodes a cycle keeps out of the sort are appended in their original
// collection order and still receive a defined layer.
package layout

import "github.com/parallaxfi/weft/core/graph"

const (
	columnSpacing = 280.0
	rowSpacing    = 140.0
	margin        = 60.0
)

// Apply repositions every node in place. Running it twice on an unchanged
// graph yields identical positions.
func Apply(nodes []*graph.Node, edges []graph.Edge) {
	if len(nodes) == 0 {
		return
	}

	order := topologicalOrder(nodes, edges)
	layers := assignLayers(order, edges)

	// Row index counts nodes already placed in each layer, in sort order.
	rowInLayer := make(map[int]int)
	position := make(map[string]graph.Position, len(order))
	for _, id := range order {
		layer := layers[id]
		row := rowInLayer[layer]
		rowInLayer[layer] = row + 1
		position[id] = graph.Position{
			X: float64(layer)*columnSpacing + margin,
			Y: float64(row)*rowSpacing + margin,
		}
	}

	for _, node := range nodes {
		node.Position = position[node.ID]
	}
}

// topologicalOrder runs Kahn's queue-based sort over the node set. Nodes left
// unsorted because they sit on a cycle are appended afterward in their
// original collection order.
func topologicalOrder(nodes []*graph.Node, edges []graph.Edge) []string {
	inDegree := make(map[string]int, len(nodes))
	children := make(map[string][]string, len(nodes))
	for _, node := range nodes {
		inDegree[node.ID] = 0
	}
	for _, edge := range edges {
		// Skip edges whose endpoints are not in the node set.
		if _, ok := inDegree[edge.Source]; !ok {
			continue
		}
		if _, ok := inDegree[edge.Target]; !ok {
			continue
		}
		children[edge.Source] = append(children[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	var queue []string
	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	sorted := make([]string, 0, len(nodes))
	placed := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		placed[id] = true
		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	// Cycle participants degrade gracefully: append in collection order.
	for _, node := range nodes {
		if !placed[node.ID] {
			sorted = append(sorted, node.ID)
		}
	}
	return sorted
}

// assignLayers computes layer(node) = 0 for a root, else 1 + the deepest
// parent already layered. Nodes are visited in topological order so every
// sorted parent is layered before its children; cycle leftovers take the max
// over whatever parents have a layer by the time they are reached.
func assignLayers(order []string, edges []graph.Edge) map[string]int {
	parents := make(map[string][]string)
	for _, edge := range edges {
		parents[edge.Target] = append(parents[edge.Target], edge.Source)
	}

	layers := make(map[string]int, len(order))
	for _, id := range order {
		layer := 0
		for _, parent := range parents[id] {
			if parentLayer, ok := layers[parent]; ok && parentLayer+1 > layer {
				layer = parentLayer + 1
			}
		}
		layers[id] = layer
	}
	return layers
}
