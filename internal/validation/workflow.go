package validation

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/preclear-labs/preclear/internal/compliance"
	"github.com/preclear-labs/preclear/internal/documents"
)

// State keys shared between pipeline nodes.
const (
	KeyShipmentID = "shipment_id"
	KeyDocuments  = "documents"
	KeyDataset    = "dataset"
	KeyAnalyses   = "analyses"
	KeyResult     = "result"
)

// Execute runs the validation pipeline for a single shipment. It builds the
// state graph (load → analyze? → aggregate), executes it, and extracts the
// Result from the final state. A shipment with zero documents skips the
// analyze node entirely.
func Execute(ctx context.Context, rt *Runtime, shipmentID uuid.UUID) (*Result, error) {
	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initialState := state.New(nil)
	initialState = initialState.Set(KeyShipmentID, shipmentID)

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	return extractResult(finalState)
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("preclear-validate")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("load", LoadNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("analyze", AnalyzeNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("aggregate", AggregateNode(rt)); err != nil {
		return nil, err
	}

	// load → analyze (when the shipment has documents)
	if err := graph.AddEdge("load", "analyze", hasDocuments); err != nil {
		return nil, err
	}

	// load → aggregate (empty shipment, nothing to analyze)
	if err := graph.AddEdge("load", "aggregate", state.Not(hasDocuments)); err != nil {
		return nil, err
	}

	// analyze → aggregate (unconditional)
	if err := graph.AddEdge("analyze", "aggregate", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("load"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("aggregate"); err != nil {
		return nil, err
	}

	return graph, nil
}

func hasDocuments(s state.State) bool {
	val, ok := s.Get(KeyDocuments)
	if !ok {
		return false
	}

	docs, ok := val.([]documents.Document)
	if !ok {
		return false
	}

	return len(docs) > 0
}

func extractResult(s state.State) (*Result, error) {
	val, ok := s.Get(KeyResult)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s in final state", ErrInvalidState, KeyResult)
	}

	result, ok := val.(Result)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not Result", ErrInvalidState, KeyResult)
	}

	return &result, nil
}

func extractShipmentID(s state.State) (uuid.UUID, error) {
	val, ok := s.Get(KeyShipmentID)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing %s in state", ErrInvalidState, KeyShipmentID)
	}

	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s is not uuid.UUID", ErrInvalidState, KeyShipmentID)
	}

	return id, nil
}

func extractDocuments(s state.State) ([]documents.Document, error) {
	val, ok := s.Get(KeyDocuments)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s in state", ErrInvalidState, KeyDocuments)
	}

	docs, ok := val.([]documents.Document)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not []documents.Document", ErrInvalidState, KeyDocuments)
	}

	return docs, nil
}

func extractDataset(s state.State) (*compliance.Dataset, error) {
	val, ok := s.Get(KeyDataset)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s in state", ErrInvalidState, KeyDataset)
	}

	ds, ok := val.(*compliance.Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not *compliance.Dataset", ErrInvalidState, KeyDataset)
	}

	return ds, nil
}

func workerCount(rt *Runtime, documentCount int) int {
	limit := rt.Workers
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	return max(min(limit, documentCount), 1)
}

func now() time.Time {
	return time.Now().UTC()
}
