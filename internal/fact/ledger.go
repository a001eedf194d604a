package fact

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

type LedgerParams struct {
	fx.In

	Warehouse domain.Repository
	Node      *snowflake.Node
	Clock     clock.Clock
}

// Ledger records which (order, fact type) pairs have been applied. Aggregate
// recomputation only considers orders absent from the ledger.
type Ledger struct {
	warehouse domain.Repository
	node      *snowflake.Node
	clock     clock.Clock
}

func NewLedger(p LedgerParams) *Ledger {
	return &Ledger{
		warehouse: p.Warehouse,
		node:      p.Node,
		clock:     p.Clock,
	}
}

func (l *Ledger) IsProcessed(ctx context.Context, db *gorm.DB, orderID int64, factType string) (bool, error) {
	return l.warehouse.IsOrderProcessed(ctx, db, orderID, factType)
}

// Unprocessed filters orderIDs down to those not yet marked for factType,
// preserving input order.
func (l *Ledger) Unprocessed(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) ([]int64, error) {
	return l.warehouse.UnprocessedOrders(ctx, db, orderIDs, factType)
}

// Mark records the orders as applied for factType. Orders already marked are
// left untouched so a replay never trips the uniqueness constraint.
func (l *Ledger) Mark(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	pending, err := l.warehouse.UnprocessedOrders(ctx, db, orderIDs, factType)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	now := l.clock.Now()
	rows := make([]domain.ProcessedOrder, 0, len(pending))
	for _, id := range pending {
		rows = append(rows, domain.ProcessedOrder{
			ID:            l.node.Generate().Int64(),
			OrderID:       id,
			FactType:      factType,
			ProcessedDate: now,
		})
	}
	return l.warehouse.MarkOrdersProcessed(ctx, db, rows)
}

// Reset removes ledger entries so the orders are recomputed next cycle. An
// empty factType clears every fact type.
func (l *Ledger) Reset(ctx context.Context, db *gorm.DB, orderIDs []int64, factType string) error {
	return l.warehouse.ResetProcessed(ctx, db, orderIDs, factType)
}
