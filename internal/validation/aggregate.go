package validation

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// AggregateNode returns a state node that folds per-document analyses into
// one Result. Issues are flattened in document upload order; within a
// document they keep rule evaluation order.
func AggregateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		shipmentID, err := extractShipmentID(s)
		if err != nil {
			return s, fmt.Errorf("aggregate: %w", err)
		}

		docs, err := extractDocuments(s)
		if err != nil {
			return s, fmt.Errorf("aggregate: %w", err)
		}

		var analyses []docAnalysis
		if val, ok := s.Get(KeyAnalyses); ok {
			analyses, ok = val.([]docAnalysis)
			if !ok {
				return s, fmt.Errorf("aggregate: %w: %s is not []docAnalysis", ErrInvalidState, KeyAnalyses)
			}
		}

		issues := make([]Issue, 0)
		outcomes := make([]DocumentOutcome, 0, len(analyses))
		for _, a := range analyses {
			issues = append(issues, a.Issues...)
			outcomes = append(outcomes, a.Outcome)
		}

		result := Result{
			ShipmentID: shipmentID,
			Status:     deriveStatus(len(docs), issues),
			Score:      computeScore(issues),
			Issues:     issues,
			Documents:  outcomes,
			ComputedAt: now(),
		}

		rt.Logger.InfoContext(
			ctx, "aggregate node complete",
			"shipment_id", shipmentID,
			"status", result.Status,
			"issue_count", len(result.Issues),
		)

		s = s.Set(KeyResult, result)
		return s, nil
	})
}
