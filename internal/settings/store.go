// Package settings manages the durable per-community configuration
// document: load at startup, merge setup mutations, persist the full
// document after every change.
package settings

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/persistence"
)

// RolePatch carries the role fields of a setup-roles command. Nil fields
// are left untouched.
type RolePatch struct {
	Resident          *string
	Visitor           *string
	BorderAuthority   *string
	ForeignMinister   *string
	HeadOfState       *string
	DeputyHeadOfState *string
	Oversight         *string
}

// ChannelPatch carries the channel fields of a setup-channel command.
type ChannelPatch struct {
	EntryChannel   *string
	TicketCategory *string
	LogChannel     *string
}

// Store holds the in-memory settings document and writes it through to a
// DocumentStore on every mutation. Setup is an administrator-only,
// low-frequency action; last writer wins.
type Store struct {
	mu      sync.RWMutex
	doc     domain.Settings
	backend persistence.DocumentStore
	logger  *zap.Logger
}

// NewStore loads the persisted document, or defaults when none exists.
func NewStore(ctx context.Context, backend persistence.DocumentStore, logger *zap.Logger) (*Store, error) {
	s := &Store{backend: backend, logger: logger}

	data, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		s.doc = domain.DefaultSettings()
		logger.Info("no persisted settings found; using defaults")
		return s, nil
	}

	doc := domain.DefaultSettings()
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Get returns the current document.
func (s *Store) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// SetRoles merges the provided role ids and persists. It returns the
// updated document.
func (s *Store) SetRoles(ctx context.Context, patch RolePatch) (domain.Settings, error) {
	return s.mutate(ctx, func(doc *domain.Settings) {
		applyField(&doc.Roles.Resident, patch.Resident)
		applyField(&doc.Roles.Visitor, patch.Visitor)
		applyField(&doc.Roles.BorderAuthority, patch.BorderAuthority)
		applyField(&doc.Roles.ForeignMinister, patch.ForeignMinister)
		applyField(&doc.Roles.HeadOfState, patch.HeadOfState)
		applyField(&doc.Roles.DeputyHeadOfState, patch.DeputyHeadOfState)
		applyField(&doc.Roles.Oversight, patch.Oversight)
	})
}

// SetChannels merges the provided channel ids and persists.
func (s *Store) SetChannels(ctx context.Context, patch ChannelPatch) (domain.Settings, error) {
	return s.mutate(ctx, func(doc *domain.Settings) {
		applyField(&doc.EntryChannelID, patch.EntryChannel)
		applyField(&doc.TicketCategoryID, patch.TicketCategory)
		applyField(&doc.LogChannelID, patch.LogChannel)
	})
}

// SetMessage updates the welcome prompt text. Empty strings leave the
// corresponding field unchanged.
func (s *Store) SetMessage(ctx context.Context, title, body string) (domain.Settings, error) {
	return s.mutate(ctx, func(doc *domain.Settings) {
		if title != "" {
			doc.WelcomeTitle = title
		}
		if body != "" {
			doc.WelcomeBody = body
		}
	})
}

// NextTicketNumber increments and persists the ticket counter, returning
// the new value.
func (s *Store) NextTicketNumber(ctx context.Context) (int, error) {
	var n int
	_, err := s.mutate(ctx, func(doc *domain.Settings) {
		doc.TicketCounter++
		n = doc.TicketCounter
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// mutate applies fn to a copy of the document, persists the result, and
// commits it to memory only when the write succeeds.
func (s *Store) mutate(ctx context.Context, fn func(*domain.Settings)) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc
	fn(&doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return s.doc, err
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("failed to persist settings", zap.Error(err))
		return s.doc, err
	}

	s.doc = doc
	return doc, nil
}

func applyField(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
