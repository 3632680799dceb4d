package workspace

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

// PendingDelete is a deletion awaiting confirmation. When execution fails it
// stays pending with Error set so the operator sees the server's reason.
type PendingDelete struct {
	Resource   billingapi.Resource `json:"resource"`
	ID         string              `json:"id"`
	StoreID    string              `json:"store_id"`
	Error      string              `json:"error,omitempty"`
	generation uint64
}

// RequestDelete opens a confirmation for removing resource/id. It replaces any
// earlier unconfirmed request.
func (s *Service) RequestDelete(resource billingapi.Resource, id string) (PendingDelete, error) {
	if _, ok := billingapi.ParseResource(string(resource)); !ok || resource == billingapi.ResourceStores {
		return PendingDelete{}, ErrUnsupportedResource
	}
	snap, gen, err := s.scope()
	if err != nil {
		return PendingDelete{}, err
	}

	pending := &PendingDelete{
		Resource:   resource,
		ID:         strings.TrimSpace(id),
		StoreID:    snap.StoreID(),
		generation: gen,
	}

	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()

	return *pending, nil
}

// PendingDeletion returns the open confirmation, if any.
func (s *Service) PendingDeletion() (PendingDelete, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingDelete{}, false
	}
	return *s.pending, true
}

// CancelDelete closes the confirmation without deleting.
func (s *Service) CancelDelete() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// ConfirmDelete executes the pending deletion. On failure the confirmation
// stays open carrying the server message.
func (s *Service) ConfirmDelete(ctx context.Context) (PendingDelete, error) {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return PendingDelete{}, ErrNoPendingDelete
	}
	if !s.session.Broker().Current(pending.generation) {
		s.CancelDelete()
		return PendingDelete{}, events.ErrStaleStore
	}

	err := s.api.Delete(ctx, pending.Resource, pending.ID)
	if err != nil {
		s.mu.Lock()
		if s.pending == pending {
			pending.Error = billingapi.Message(err)
		}
		out := *pending
		s.mu.Unlock()

		s.logger.Warn("delete failed",
			zap.String("resource", string(pending.Resource)),
			zap.String("id", pending.ID),
			zap.Error(err))
		return out, err
	}

	s.mu.Lock()
	if s.pending == pending {
		s.pending = nil
	}
	s.mu.Unlock()

	s.Invalidate(pending.Resource)
	s.logger.Info("deleted",
		zap.String("resource", string(pending.Resource)),
		zap.String("id", pending.ID))

	out := *pending
	out.Error = ""
	return out, nil
}
