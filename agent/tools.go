package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/parallaxfi/weft/core/graph"
	"github.com/parallaxfi/weft/core/store"
	"github.com/parallaxfi/weft/core/workflow"
	"github.com/parallaxfi/weft/providers/collab"
	"github.com/parallaxfi/weft/providers/tool"
)

// RegisterTools binds the full graph-editing and collaborator tool catalog
// to one store and one services client. Handlers read and mutate the store
// directly, so the effect of one call is visible to the next call in the
// same turn; the model never waits for the presentation layer to settle.
func RegisterTools(catalog *tool.Catalog, graphStore *store.Store, services *collab.Client) {
	catalog.AddTools(
		newAddNodeTool(graphStore),
		newRemoveNodeTool(graphStore),
		newUpdateNodeTool(graphStore),
		newAddEdgeTool(graphStore),
		newRemoveEdgeTool(graphStore),
		newSetManifestTool(graphStore),
		newSetNameTool(graphStore),
		newClearCanvasTool(graphStore),
		newAutoLayoutTool(graphStore),
		newImportWorkflowTool(graphStore),
		newGetCanvasStateTool(graphStore),
		newValidateTool(graphStore, services),
		newBacktestTool(graphStore, services),
		newFetchDataTool(graphStore, services),
		newListDataTool(services),
		newStartDaemonTool(graphStore, services),
		newStopDaemonTool(services),
		newListRunsTool(services),
		newGetRunStatusTool(services),
	)
}

// emptyInput is the schema for tools that take no parameters.
type emptyInput struct{}

type statusOutput struct {
	Status string `json:"status"`
}

// --- Graph mutation tools ---

type addNodeInput struct {
	ID      string         `json:"id,omitempty" jsonschema:"description=Node id; generated from the kind when omitted,optional"`
	Kind    string         `json:"kind" jsonschema:"description=Node kind,enum=wallet,enum=perp,enum=options,enum=spot,enum=lp,enum=movement,enum=lending,enum=vault,enum=pendle,enum=optimizer,required"`
	Attrs   map[string]any `json:"attrs,omitempty" jsonschema:"description=Kind-specific attributes (e.g. chain and token for a wallet; venue and pair and side for spot),optional"`
	Trigger *graph.Trigger `json:"trigger,omitempty" jsonschema:"description=Optional periodic trigger (cron interval or on_event),optional"`
}

type addNodeOutput struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func newAddNodeTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("add_node", func(_ context.Context, input addNodeInput) (addNodeOutput, error) {
		id := input.ID
		if id == "" {
			id = generateNodeID(input.Kind)
		}
		node := &graph.Node{
			ID:      id,
			Kind:    graph.Kind(input.Kind),
			Attrs:   input.Attrs,
			Trigger: input.Trigger,
		}
		if err := graphStore.AddNode(node); err != nil {
			return addNodeOutput{}, err
		}
		added, _ := graphStore.Node(id)
		return addNodeOutput{ID: id, Label: added.Label}, nil
	}, tool.WithDescription("Adds a node to the strategy canvas and selects it. Provide kind-specific attrs; the display label and edge tokens are derived automatically."))
}

// generateNodeID produces a short unique id prefixed with the kind, e.g.
// "spot_1b9f3c2a".
func generateNodeID(kind string) string {
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	return kind + "_" + compact[:8]
}

type nodeIDInput struct {
	ID string `json:"id" jsonschema:"description=Id of the node,required"`
}

func newRemoveNodeTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("remove_node", func(_ context.Context, input nodeIDInput) (statusOutput, error) {
		if err := graphStore.RemoveNode(input.ID); err != nil {
			return statusOutput{}, err
		}
		return statusOutput{Status: "removed"}, nil
	}, tool.WithDescription("Removes a node and every edge connected to it."))
}

type updateNodeInput struct {
	ID    string         `json:"id" jsonschema:"description=Id of the node to update,required"`
	Attrs map[string]any `json:"attrs" jsonschema:"description=Partial attribute record merged into the node; set a key to null to delete it,required"`
}

func newUpdateNodeTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("update_node", func(_ context.Context, input updateNodeInput) (addNodeOutput, error) {
		if err := graphStore.UpdateNodeAttributes(input.ID, input.Attrs); err != nil {
			return addNodeOutput{}, err
		}
		updated, _ := graphStore.Node(input.ID)
		return addNodeOutput{ID: input.ID, Label: updated.Label}, nil
	}, tool.WithDescription("Merges attributes into an existing node. Incident edge tokens and the display label are recomputed."))
}

type addEdgeInput struct {
	Source string `json:"source" jsonschema:"description=Id of the source node,required"`
	Target string `json:"target" jsonschema:"description=Id of the target node,required"`
	Token  string `json:"token,omitempty" jsonschema:"description=Token symbol; inferred from the endpoints when omitted,optional"`
}

type addEdgeOutput struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Token  string `json:"token"`
}

func newAddEdgeTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("add_edge", func(_ context.Context, input addEdgeInput) (addEdgeOutput, error) {
		if err := graphStore.AddEdge(input.Source, input.Target, input.Token); err != nil {
			return addEdgeOutput{}, err
		}
		for _, edge := range graphStore.Edges() {
			if edge.Source == input.Source && edge.Target == input.Target {
				return addEdgeOutput{Source: edge.Source, Target: edge.Target, Token: edge.Token}, nil
			}
		}
		return addEdgeOutput{Source: input.Source, Target: input.Target}, nil
	}, tool.WithDescription("Connects two nodes with a directed capital-flow edge. The token is inferred from the source node when not given."))
}

type removeEdgeInput struct {
	Source string `json:"source" jsonschema:"description=Id of the source node,required"`
	Target string `json:"target" jsonschema:"description=Id of the target node,required"`
}

func newRemoveEdgeTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("remove_edge", func(_ context.Context, input removeEdgeInput) (statusOutput, error) {
		if err := graphStore.RemoveEdge(input.Source, input.Target); err != nil {
			return statusOutput{}, err
		}
		return statusOutput{Status: "removed"}, nil
	}, tool.WithDescription("Removes the edge between two nodes."))
}

type setManifestInput struct {
	Manifest  string            `json:"manifest" jsonschema:"description=Which manifest to write,enum=tokens,enum=contracts,required"`
	Key       string            `json:"key" jsonschema:"description=Token symbol or contract label,required"`
	Addresses map[string]string `json:"addresses" jsonschema:"description=Chain name to address; empty string marks a placeholder,required"`
}

func newSetManifestTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("set_manifest", func(_ context.Context, input setManifestInput) (statusOutput, error) {
		if err := graphStore.SetManifest(input.Manifest, input.Key, input.Addresses); err != nil {
			return statusOutput{}, err
		}
		return statusOutput{Status: "updated"}, nil
	}, tool.WithDescription("Writes per-chain addresses for one entry of the tokens or contracts manifest. Filled addresses are never overwritten by empty ones."))
}

type setNameInput struct {
	Name        string `json:"name" jsonschema:"description=Strategy name,required"`
	Description string `json:"description,omitempty" jsonschema:"description=Optional strategy description,optional"`
}

func newSetNameTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("set_name", func(_ context.Context, input setNameInput) (statusOutput, error) {
		graphStore.SetName(input.Name)
		if input.Description != "" {
			graphStore.SetDescription(input.Description)
		}
		return statusOutput{Status: "updated"}, nil
	}, tool.WithDescription("Renames the strategy and optionally sets its description."))
}

func newClearCanvasTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("clear_canvas", func(_ context.Context, _ emptyInput) (statusOutput, error) {
		graphStore.Clear()
		return statusOutput{Status: "cleared"}, nil
	}, tool.WithDescription("Removes every node and edge from the canvas. Manifests and the strategy name are kept; the action is undoable."))
}

func newAutoLayoutTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("auto_layout", func(_ context.Context, _ emptyInput) (statusOutput, error) {
		graphStore.ApplyLayout()
		return statusOutput{Status: "layouted"}, nil
	}, tool.WithDescription("Repositions all nodes with the deterministic topological layout."))
}

type importWorkflowInput struct {
	Workflow map[string]any `json:"workflow" jsonschema:"description=Complete workflow interchange document with name and nodes and edges,required"`
}

type importWorkflowOutput struct {
	Name  string `json:"name"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

func newImportWorkflowTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("import_workflow", func(_ context.Context, input importWorkflowInput) (importWorkflowOutput, error) {
		encoded, err := json.Marshal(input.Workflow)
		if err != nil {
			return importWorkflowOutput{}, fmt.Errorf("encoding workflow: %w", err)
		}
		doc, err := workflow.Decode(encoded)
		if err != nil {
			return importWorkflowOutput{}, err
		}
		if err := graphStore.ImportDocument(doc); err != nil {
			return importWorkflowOutput{}, err
		}
		return importWorkflowOutput{
			Name:  graphStore.Name(),
			Nodes: len(graphStore.Nodes()),
			Edges: len(graphStore.Edges()),
		}, nil
	}, tool.WithDescription("Replaces the canvas with the given workflow document. Edge tokens are re-inferred and nodes placed on a grid pending auto_layout."))
}

func newGetCanvasStateTool(graphStore *store.Store) tool.GenericTool {
	return tool.NewTool("get_canvas_state", func(_ context.Context, _ emptyInput) (*workflow.Document, error) {
		return graphStore.ExportDocument(), nil
	}, tool.WithDescription("Returns the current canvas as its workflow interchange document: name, nodes, edges and both manifests."))
}

// --- Collaborator tools ---

func newValidateTool(graphStore *store.Store, services *collab.Client) tool.GenericTool {
	return tool.NewTool("validate", func(ctx context.Context, _ emptyInput) (*collab.ValidationResult, error) {
		return services.Validate(ctx, graphStore.ExportDocument())
	}, tool.WithDescription("Runs the offline structural validator against the current canvas and returns its findings."))
}

type backtestInput struct {
	Start   string  `json:"start,omitempty" jsonschema:"description=Start date (YYYY-MM-DD),optional"`
	End     string  `json:"end,omitempty" jsonschema:"description=End date (YYYY-MM-DD),optional"`
	Capital float64 `json:"capital,omitempty" jsonschema:"description=Starting capital in USD,optional"`
}

func newBacktestTool(graphStore *store.Store, services *collab.Client) tool.GenericTool {
	return tool.NewTool("backtest", func(ctx context.Context, input backtestInput) (*collab.BacktestResult, error) {
		return services.Backtest(ctx, collab.BacktestRequest{
			Workflow: graphStore.ExportDocument(),
			Start:    input.Start,
			End:      input.End,
			Capital:  input.Capital,
		})
	}, tool.WithDescription("Runs a historical simulation of the current canvas over the given window."))
}

type fetchDataInput struct {
	Sources []string `json:"sources,omitempty" jsonschema:"description=Specific data sources to fetch; defaults to everything the workflow needs,optional"`
	Start   string   `json:"start,omitempty" jsonschema:"description=Start date (YYYY-MM-DD),optional"`
	End     string   `json:"end,omitempty" jsonschema:"description=End date (YYYY-MM-DD),optional"`
}

func newFetchDataTool(graphStore *store.Store, services *collab.Client) tool.GenericTool {
	return tool.NewTool("fetch_data", func(ctx context.Context, input fetchDataInput) (*collab.FetchDataResult, error) {
		return services.FetchData(ctx, collab.FetchDataRequest{
			Workflow: graphStore.ExportDocument(),
			Sources:  input.Sources,
			Start:    input.Start,
			End:      input.End,
		})
	}, tool.WithDescription("Fetches the market data the current canvas's venues need for backtesting."))
}

func newListDataTool(services *collab.Client) tool.GenericTool {
	return tool.NewTool("list_data", func(ctx context.Context, _ emptyInput) ([]collab.DatasetInfo, error) {
		return services.ListData(ctx)
	}, tool.WithDescription("Lists the locally available datasets and their date ranges."))
}

func newStartDaemonTool(graphStore *store.Store, services *collab.Client) tool.GenericTool {
	return tool.NewTool("start_daemon", func(ctx context.Context, _ emptyInput) (*collab.RunInfo, error) {
		return services.StartDaemon(ctx, graphStore.ExportDocument())
	}, tool.WithDescription("Starts live execution of the current canvas and returns the run."))
}

type runIDInput struct {
	RunID string `json:"run_id" jsonschema:"description=Id of the run,required"`
}

func newStopDaemonTool(services *collab.Client) tool.GenericTool {
	return tool.NewTool("stop_daemon", func(ctx context.Context, input runIDInput) (*collab.RunInfo, error) {
		return services.StopDaemon(ctx, input.RunID)
	}, tool.WithDescription("Stops a live execution run."))
}

func newListRunsTool(services *collab.Client) tool.GenericTool {
	return tool.NewTool("list_runs", func(ctx context.Context, _ emptyInput) ([]collab.RunInfo, error) {
		return services.ListRuns(ctx)
	}, tool.WithDescription("Lists all known execution runs and their statuses."))
}

func newGetRunStatusTool(services *collab.Client) tool.GenericTool {
	return tool.NewTool("get_run_status", func(ctx context.Context, input runIDInput) (*collab.RunInfo, error) {
		return services.GetRunStatus(ctx, input.RunID)
	}, tool.WithDescription("Returns the current status of one execution run."))
}
