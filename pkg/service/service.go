// Package service holds the entity accessors the HTTP layer calls. It runs
// against any store.Store and never learns which backend served a call.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"bloodbank/pkg/config"
	"bloodbank/pkg/models"
	"bloodbank/pkg/store"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = store.ErrNotFound
	ErrConflict           = store.ErrConflict
)

type Service struct {
	store    store.Store
	log      *zap.Logger
	now      func() time.Time
	adminIDs map[string]struct{}
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAdminIDs replaces the administrator whitelist.
func WithAdminIDs(ids []string) Option {
	return func(s *Service) {
		s.adminIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			s.adminIDs[id] = struct{}{}
		}
	}
}

func New(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store: st,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	WithAdminIDs(config.DefaultAdminIDs())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) IsAdminID(id string) bool {
	_, ok := s.adminIDs[id]
	return ok
}

// userNames resolves display fields for denormalised listings. Lookups are
// cached per call; a user that cannot be resolved gets the placeholder name.
type userNames struct {
	svc   *Service
	ctx   context.Context
	cache map[string]*models.User
}

func (s *Service) newUserNames(ctx context.Context) *userNames {
	return &userNames{svc: s, ctx: ctx, cache: make(map[string]*models.User)}
}

func (n *userNames) lookup(id string) *models.User {
	if u, ok := n.cache[id]; ok {
		return u
	}
	var user *models.User
	if id != "" {
		u, err := n.svc.store.UserByID(n.ctx, id)
		if err == nil {
			user = u
		} else if !errors.Is(err, store.ErrNotFound) {
			n.svc.log.Debug("user lookup for listing failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	n.cache[id] = user
	return user
}

func (n *userNames) name(id string) string {
	if u := n.lookup(id); u != nil {
		return u.Name
	}
	return models.UnknownUserName
}

func (n *userNames) mobile(id string) string {
	if u := n.lookup(id); u != nil {
		return u.Mobile
	}
	return ""
}
