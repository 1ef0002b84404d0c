package validation

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// LoadNode returns a state node that loads the shipment's document set and
// snapshots the compliance dataset. The snapshot taken here is the one used
// for every document in the run; a dataset reload during the run never mixes
// rules into in-flight matching. An uninitialized dataset is fatal to the
// run and surfaces as a graph execution error.
func LoadNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		shipmentID, err := extractShipmentID(s)
		if err != nil {
			return s, fmt.Errorf("load: %w", err)
		}

		ds, err := rt.Dataset.Snapshot()
		if err != nil {
			return s, fmt.Errorf("load: %w", err)
		}

		docs, err := rt.Documents.ListByShipment(ctx, shipmentID)
		if err != nil {
			return s, fmt.Errorf("load: %w: %w", ErrLoadDocuments, err)
		}

		rt.Logger.InfoContext(
			ctx, "load node complete",
			"shipment_id", shipmentID,
			"document_count", len(docs),
			"rule_count", len(ds.Rules),
		)

		s = s.Set(KeyDocuments, docs)
		s = s.Set(KeyDataset, ds)
		return s, nil
	})
}
