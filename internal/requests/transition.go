package requests

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/internal/reservation"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/db/models"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/enums"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/outbox/payloads"
)

const (
	opCreate  = "create"
	opUpdate  = "update"
	opApprove = "approve"
	opReject  = "reject"
	opFulfill = "fulfill"
	opDelete  = "delete"
)

// mutateFn derives the next state of a request from its locked current state.
// current is nil on create; returning nil deletes the request.
type mutateFn func(ctx context.Context, tx *gorm.DB, current *models.ItemRequest) (*models.ItemRequest, error)

type transitionResult struct {
	request   *models.ItemRequest
	deltas    []reservation.Delta
	unchanged bool
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*RequestDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.RequestPriorityMedium
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
	}

	result, err := s.transition(ctx, actor, opCreate, uuid.Nil, func(ctx context.Context, tx *gorm.DB, _ *models.ItemRequest) (*models.ItemRequest, error) {
		if err := s.ensureCategory(ctx, tx, input.CategoryID); err != nil {
			return nil, err
		}
		return &models.ItemRequest{
			Title:           title,
			Description:     trimmedPtr(input.Description),
			CategoryID:      input.CategoryID,
			Priority:        priority,
			Status:          enums.RequestStatusPending,
			UserID:          actor.UserID,
			Quantity:        input.Quantity,
			InventoryItemID: input.InventoryItemID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return newRequestDTO(result.request, result.deltas), nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateInput) (*RequestDTO, error) {
	if input.Status != nil && !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers change request status")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
	}

	result, err := s.transition(ctx, actor, opUpdate, id, func(ctx context.Context, tx *gorm.DB, current *models.ItemRequest) (*models.ItemRequest, error) {
		if !actor.Role.CanDecide() {
			if !actor.owns(current) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
			}
			if current.Status != enums.RequestStatusPending {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be edited")
			}
		}

		next := *current
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
			}
			next.Title = title
		}
		if input.Description != nil {
			next.Description = trimmedPtr(input.Description)
		}
		if input.CategoryID != nil {
			if err := s.ensureCategory(ctx, tx, input.CategoryID); err != nil {
				return nil, err
			}
			next.CategoryID = input.CategoryID
		}
		if input.Priority != nil {
			next.Priority = *input.Priority
		}
		if input.Quantity != nil {
			next.Quantity = *input.Quantity
		}
		if input.UnlinkItem {
			next.InventoryItemID = nil
		} else if input.InventoryItemID != nil {
			itemID := *input.InventoryItemID
			next.InventoryItemID = &itemID
		}
		if input.Status != nil {
			s.applyDecision(&next, current.Status, *input.Status, actor, input.RejectionReason)
		}
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	return newRequestDTO(result.request, result.deltas), nil
}

func (s *service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	return s.decide(ctx, actor, opApprove, id, enums.RequestStatusApproved, nil)
}

func (s *service) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*RequestDTO, error) {
	return s.decide(ctx, actor, opReject, id, enums.RequestStatusRejected, &reason)
}

func (s *service) Fulfill(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	return s.decide(ctx, actor, opFulfill, id, enums.RequestStatusFulfilled, nil)
}

func (s *service) decide(ctx context.Context, actor Actor, op string, id uuid.UUID, status enums.RequestStatus, reason *string) (*RequestDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers decide requests")
	}
	result, err := s.transition(ctx, actor, op, id, func(_ context.Context, _ *gorm.DB, current *models.ItemRequest) (*models.ItemRequest, error) {
		next := *current
		s.applyDecision(&next, current.Status, status, actor, reason)
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	return newRequestDTO(result.request, result.deltas), nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	_, err := s.transition(ctx, actor, opDelete, id, func(_ context.Context, _ *gorm.DB, current *models.ItemRequest) (*models.ItemRequest, error) {
		if actor.Role == enums.UserRoleAdmin {
			return nil, nil
		}
		if !actor.owns(current) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
		}
		if current.Status != enums.RequestStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be deleted")
		}
		return nil, nil
	})
	return err
}

// applyDecision moves next to status and stamps the matching audit fields.
// Re-applying the current status leaves the audit trail untouched.
func (s *service) applyDecision(next *models.ItemRequest, from, status enums.RequestStatus, actor Actor, reason *string) {
	next.Status = status
	if from == status {
		return
	}
	now := s.now()
	actorID := actor.UserID
	switch status {
	case enums.RequestStatusApproved:
		next.ApprovedAt = &now
		next.ApprovedBy = &actorID
	case enums.RequestStatusRejected:
		next.RejectedAt = &now
		next.RejectedBy = &actorID
		next.RejectionReason = trimmedPtr(reason)
	case enums.RequestStatusFulfilled:
		next.FulfillmentDate = &now
	}
}

// transition runs one request write inside a transaction, retrying the whole
// attempt when the stock rows moved underneath it.
func (s *service) transition(ctx context.Context, actor Actor, op string, id uuid.UUID, mutate mutateFn) (*transitionResult, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"operation":  op,
		"actor_id":   actor.UserID.String(),
		"actor_role": string(actor.Role),
	})
	if id != uuid.Nil {
		logCtx = s.logg.WithItemRequestID(logCtx, id.String())
	}

	attempt := 0
	var result *transitionResult
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.metrics.IncRetry(op)
			s.logg.Debug(s.logg.WithField(logCtx, "attempt", attempt), "retrying item request transition")
		}
		res, err := s.attempt(ctx, actor, op, id, mutate)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		mapped := mapTransitionError(err)
		outcome := outcomeOf(mapped)
		s.metrics.ObserveTransition(op, outcome)
		if outcome == metrics.OutcomeError || outcome == metrics.OutcomeConflict {
			s.logg.Error(logCtx, "item request transition failed", err)
		} else {
			s.logg.Info(s.logg.WithField(logCtx, "reason", err.Error()), "item request transition refused")
		}
		return nil, mapped
	}

	if result.unchanged {
		s.metrics.ObserveTransition(op, metrics.OutcomeUnchanged)
		s.logg.Debug(s.logg.WithField(logCtx, "item_request_id", result.request.ID.String()), "item request transition changed nothing")
		return result, nil
	}

	s.metrics.ObserveTransition(op, metrics.OutcomeApplied)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"item_request_id": result.request.ID.String(),
		"status":          string(result.request.Status),
		"stock_changes":   len(result.deltas),
		"attempts":        attempt,
	}), "item request transition applied")
	return result, nil
}

func (s *service) backoff() retry.Backoff {
	b := retry.NewExponential(s.retry.BaseBackoff)
	if s.retry.MaxBackoff > 0 {
		b = retry.WithCappedDuration(s.retry.MaxBackoff, b)
	}
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(s.retry.MaxAttempts-1), b)
}

func (s *service) attempt(ctx context.Context, actor Actor, op string, id uuid.UUID, mutate mutateFn) (*transitionResult, error) {
	var result *transitionResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var current *models.ItemRequest
		if id != uuid.Nil {
			locked, err := txRepo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return mapLoadError(err)
			}
			current = locked
		}

		next, err := mutate(ctx, tx, current)
		if err != nil {
			return err
		}

		deltas, err := s.ledger.Apply(ctx, tx, reservation.Transition{
			Previous: snapshotOf(current),
			Next:     snapshotOf(next),
		})
		if err != nil {
			return err
		}
		if current != nil && next != nil && len(deltas) == 0 && sameRequest(current, next) {
			result = &transitionResult{request: current, unchanged: true}
			return nil
		}

		switch {
		case current == nil:
			if err := txRepo.Create(ctx, next); err != nil {
				return err
			}
		case next == nil:
			if err := txRepo.Delete(ctx, current.ID); err != nil {
				return err
			}
		default:
			if err := txRepo.Save(ctx, next); err != nil {
				return err
			}
		}

		if err := s.emit(ctx, tx, actor, current, next, deltas); err != nil {
			return err
		}
		if err := s.notifyDecision(ctx, tx, current, next); err != nil {
			return err
		}

		result = &transitionResult{request: next, deltas: deltas}
		if next == nil {
			result.request = current
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// sameRequest reports whether a mutation left every stored field as it was.
func sameRequest(a, b *models.ItemRequest) bool {
	return a.Title == b.Title &&
		a.Priority == b.Priority &&
		a.Status == b.Status &&
		a.Quantity == b.Quantity &&
		samePtr(a.Description, b.Description) &&
		samePtr(a.CategoryID, b.CategoryID) &&
		samePtr(a.InventoryItemID, b.InventoryItemID) &&
		samePtr(a.ApprovedAt, b.ApprovedAt) &&
		samePtr(a.ApprovedBy, b.ApprovedBy) &&
		samePtr(a.RejectedAt, b.RejectedAt) &&
		samePtr(a.RejectedBy, b.RejectedBy) &&
		samePtr(a.RejectionReason, b.RejectionReason) &&
		samePtr(a.FulfillmentDate, b.FulfillmentDate)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, current, next *models.ItemRequest, deltas []reservation.Delta) error {
	var (
		eventType enums.OutboxEventType
		subject   *models.ItemRequest
		previous  enums.RequestStatus
	)
	switch {
	case current == nil:
		eventType, subject = enums.EventRequestCreated, next
	case next == nil:
		eventType, subject, previous = enums.EventRequestDeleted, current, current.Status
	case current.Status != next.Status:
		eventType, subject, previous = enums.EventRequestStatusChanged, next, current.Status
	default:
		eventType, subject, previous = enums.EventRequestUpdated, next, current.Status
	}

	data := payloads.RequestEvent{
		RequestID:       subject.ID,
		UserID:          subject.UserID,
		Status:          subject.Status,
		PreviousStatus:  previous,
		Quantity:        subject.Quantity,
		InventoryItemID: subject.InventoryItemID,
		OccurredAt:      s.now(),
	}
	for _, d := range deltas {
		data.Deltas = append(data.Deltas, payloads.StockDelta{
			InventoryItemID: d.InventoryItemID,
			AvailableDelta:  d.AvailableDelta,
			ReservedDelta:   d.ReservedDelta,
		})
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateItemRequest,
		AggregateID:   subject.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data:          data,
		OccurredAt:    data.OccurredAt,
	})
}

// notifyDecision tells the owner when an admin or manager settles or
// approves their request.
func (s *service) notifyDecision(ctx context.Context, tx *gorm.DB, current, next *models.ItemRequest) error {
	if current == nil || next == nil || current.Status == next.Status {
		return nil
	}

	var (
		kind    enums.NotificationType
		title   string
		message string
	)
	switch next.Status {
	case enums.RequestStatusApproved:
		kind, title = enums.NotificationTypeRequestApproved, "Request approved"
		message = fmt.Sprintf("Your request %q has been approved.", next.Title)
	case enums.RequestStatusRejected:
		kind, title = enums.NotificationTypeRequestRejected, "Request rejected"
		message = fmt.Sprintf("Your request %q has been rejected.", next.Title)
		if next.RejectionReason != nil {
			message = fmt.Sprintf("Your request %q has been rejected: %s", next.Title, *next.RejectionReason)
		}
	case enums.RequestStatusFulfilled:
		kind, title = enums.NotificationTypeRequestFulfilled, "Request fulfilled"
		message = fmt.Sprintf("Your request %q has been fulfilled.", next.Title)
	default:
		return nil
	}

	requestID := next.ID
	return s.notifications.WithTx(tx).Create(ctx, &models.Notification{
		UserID:    next.UserID,
		Type:      kind,
		Title:     title,
		Message:   message,
		RequestID: &requestID,
	})
}

func (s *service) ensureCategory(ctx context.Context, tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	exists, err := s.repo.WithTx(tx).CategoryExists(ctx, *id)
	if err != nil {
		return err
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}

func snapshotOf(request *models.ItemRequest) *reservation.Snapshot {
	if request == nil {
		return nil
	}
	return &reservation.Snapshot{
		Status:          request.Status,
		Quantity:        request.Quantity,
		InventoryItemID: request.InventoryItemID,
	}
}
