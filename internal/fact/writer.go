// Package fact writes fact rows. Order and payment facts are append-once by
// business id; metric facts are overwritten in place on replay.
package fact

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/warehouse/domain"
	dbpkg "github.com/dineflow/ordersync/pkg/db"
)

// Module wires the fact writer and the processed-order ledger.
var Module = fx.Module("fact",
	fx.Provide(NewWriter),
	fx.Provide(NewLedger),
)

type WriterParams struct {
	fx.In

	Warehouse domain.Repository
	Logger    *zap.Logger
}

// Writer persists fact rows idempotently.
type Writer struct {
	warehouse domain.Repository
	log       *zap.Logger
}

func NewWriter(p WriterParams) *Writer {
	return &Writer{
		warehouse: p.Warehouse,
		log:       p.Logger.Named("fact"),
	}
}

// OrderFact inserts the row unless a fact for the same order already exists,
// in which case the existing surrogate key is returned and created is false.
// A unique-constraint violation on insert means a concurrent writer won the
// race; the row it inserted is read back instead.
func (w *Writer) OrderFact(ctx context.Context, db *gorm.DB, row *domain.FactOrder) (key int64, created bool, err error) {
	existing, err := w.warehouse.FindOrderFact(ctx, db, row.OrderID)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		return existing.OrderKey, false, nil
	}
	if err := w.warehouse.CreateOrderFact(ctx, db, row); err != nil {
		if !dbpkg.IsDuplicateKeyErr(err) {
			return 0, false, err
		}
		w.log.Warn("order fact already inserted, reusing existing row", zap.Int64("order_id", row.OrderID))
		existing, err := w.warehouse.FindOrderFact(ctx, db, row.OrderID)
		if err != nil {
			return 0, false, err
		}
		if existing == nil {
			return 0, false, fmt.Errorf("order fact %d: duplicate insert but row not found", row.OrderID)
		}
		return existing.OrderKey, false, nil
	}
	return row.OrderKey, true, nil
}

// PaymentFact inserts the row unless a fact for the same payment already
// exists.
func (w *Writer) PaymentFact(ctx context.Context, db *gorm.DB, row *domain.FactPayment) (key int64, created bool, err error) {
	existing, err := w.warehouse.FindPaymentFact(ctx, db, row.PaymentID)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		return existing.PaymentKey, false, nil
	}
	if err := w.warehouse.CreatePaymentFact(ctx, db, row); err != nil {
		if !dbpkg.IsDuplicateKeyErr(err) {
			return 0, false, err
		}
		w.log.Warn("payment fact already inserted, reusing existing row", zap.Int64("payment_id", row.PaymentID))
		existing, err := w.warehouse.FindPaymentFact(ctx, db, row.PaymentID)
		if err != nil {
			return 0, false, err
		}
		if existing == nil {
			return 0, false, fmt.Errorf("payment fact %d: duplicate insert but row not found", row.PaymentID)
		}
		return existing.PaymentKey, false, nil
	}
	return row.PaymentKey, true, nil
}

// CustomerMetricsFact writes the per-order snapshot, overwriting the measures
// of an existing row so a replay with corrected numbers converges.
func (w *Writer) CustomerMetricsFact(ctx context.Context, db *gorm.DB, row *domain.FactCustomerMetrics) error {
	existing, err := w.warehouse.FindCustomerMetricsFact(ctx, db, row.OrderID)
	if err != nil {
		return err
	}
	if existing == nil {
		return w.warehouse.CreateCustomerMetricsFact(ctx, db, row)
	}
	row.MetricKey = existing.MetricKey
	return w.warehouse.SaveCustomerMetricsFact(ctx, db, row)
}
