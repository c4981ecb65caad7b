package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/internal/requests"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

type fakeDriftFinder struct {
	rows []requests.ReservationDrift
	err  error
}

func (f fakeDriftFinder) FindReservationDrift(context.Context) ([]requests.ReservationDrift, error) {
	return f.rows, f.err
}

type recordedDrift struct {
	value int
	calls int
}

func (r *recordedDrift) SetDrift(items int) {
	r.value = items
	r.calls++
}

func TestReservationAuditJobExportsDriftCount(t *testing.T) {
	recorder := &recordedDrift{}
	job, err := NewReservationAuditJob(ReservationAuditJobParams{
		Logger: logger.Nop(),
		Repository: fakeDriftFinder{rows: []requests.ReservationDrift{
			{InventoryItemID: uuid.New(), ReservedQty: 5, ExpectedQty: 3},
			{InventoryItemID: uuid.New(), ReservedQty: 0, ExpectedQty: 2},
		}},
		Metrics: recorder,
	})
	require.NoError(t, err)
	require.Equal(t, "reservation-audit", job.Name())

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 2, recorder.value)
	require.Equal(t, 1, recorder.calls)
}

func TestReservationAuditJobResetsGaugeWhenClean(t *testing.T) {
	recorder := &recordedDrift{value: 9}
	job, err := NewReservationAuditJob(ReservationAuditJobParams{
		Logger:     logger.Nop(),
		Repository: fakeDriftFinder{},
		Metrics:    recorder,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Zero(t, recorder.value)
}

func TestReservationAuditJobPropagatesErrors(t *testing.T) {
	job, err := NewReservationAuditJob(ReservationAuditJobParams{
		Logger:     logger.Nop(),
		Repository: fakeDriftFinder{err: errors.New("boom")},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}
