// Package graph defines the canonical strategy-graph data model: typed
// nodes, token-labeled edges with amount specifications, and the sparse
// token/contract address manifests. Mutation, history and persistence live
// in core/store; this package is pure data.
package graph
