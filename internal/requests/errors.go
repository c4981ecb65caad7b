package requests

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
)

// retryable reports whether a failed attempt may succeed when run again on
// fresh rows.
func retryable(err error) bool {
	return errors.Is(err, reservation.ErrConcurrencyConflict) || db.IsRetryable(err)
}

// mapTransitionError turns ledger and storage failures into API errors while
// keeping the original error reachable through Unwrap.
func mapTransitionError(err error) error {
	if err == nil {
		return nil
	}

	var (
		insufficient *reservation.InsufficientStockError
		notFound     *reservation.NotFoundError
		unsupported  *reservation.UnsupportedTransitionError
		underflow    *reservation.UnderflowError
		invalidQty   *reservation.InvalidQuantityError
		typed        *pkgerrors.Error
	)

	switch {
	case errors.As(err, &typed):
		return typed
	case errors.As(err, &insufficient):
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "insufficient stock").
			WithDetails(map[string]any{
				"item_id":   insufficient.ItemID,
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			})
	case errors.As(err, &notFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("%s not found", notFound.Entity))
	case retryable(err):
		return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "inventory changed concurrently, retry the request")
	case errors.As(err, &unsupported):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, unsupported.Error())
	case errors.As(err, &underflow):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reserved stock is out of balance for this item")
	case errors.As(err, &invalidQty):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, invalidQty.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item request not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply item request transition")
	}
}

// outcomeOf classifies a mapped error for the transition counter.
func outcomeOf(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficientStock:
		return metrics.OutcomeInsufficient
	case pkgerrors.CodeConcurrencyConflict:
		return metrics.OutcomeConflict
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
