package cron

import (
	"context"
	"fmt"

	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

// maxLoggedDrift caps how many drifting items are logged individually.
const maxLoggedDrift = 20

type ReservationAuditJobParams struct {
	Logger     *logger.Logger
	Repository driftFinder
	Metrics    driftRecorder
}

type driftFinder interface {
	FindReservationDrift(ctx context.Context) ([]requests.ReservationDrift, error)
}

type driftRecorder interface {
	SetDrift(items int)
}

// NewReservationAuditJob compares each item's reserved bucket with the
// quantity held by its open requests. It only reports; it never repairs.
func NewReservationAuditJob(params ReservationAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("request repository required")
	}
	return &reservationAuditJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
	}, nil
}

type reservationAuditJob struct {
	logg    *logger.Logger
	repo    driftFinder
	metrics driftRecorder
}

func (j *reservationAuditJob) Name() string { return "reservation-audit" }

func (j *reservationAuditJob) Run(ctx context.Context) error {
	drift, err := j.repo.FindReservationDrift(ctx)
	if err != nil {
		return fmt.Errorf("reservation audit: %w", err)
	}
	if j.metrics != nil {
		j.metrics.SetDrift(len(drift))
	}
	if len(drift) == 0 {
		j.logg.Info(ctx, "reserved quantities match open requests")
		return nil
	}

	for i, row := range drift {
		if i == maxLoggedDrift {
			break
		}
		rowCtx := j.logg.WithFields(ctx, map[string]any{
			"inventory_item_id": row.InventoryItemID.String(),
			"reserved_qty":      row.ReservedQty,
			"expected_qty":      row.ExpectedQty,
		})
		j.logg.Warn(rowCtx, "reserved quantity drift")
	}
	j.logg.Warn(j.logg.WithField(ctx, "drift_items", len(drift)), "reservation audit found drift")
	return nil
}
