// Package tool provides the typed tool framework used by the agent runtime:
// a generic Tool[I, O] that derives its JSON-schema parameters from the input
// type, and a Catalog for name-based dispatch of model-issued tool calls.
package tool
