package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	"github.com/zhouzirui/support-desk/backend/internal/model/identity"
	"github.com/zhouzirui/support-desk/backend/internal/model/session"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
)

//go:generate mockgen -source=service.go -destination=../../mocks/mock_backend.go -package=mocks

// Backend is the subset of the messaging backend the bootstrap needs.
type Backend interface {
	UpsertIdentities(ctx context.Context, identities []identity.Identity) error
	CreateChannel(ctx context.Context, channelType, channelID string, members []string, createdBy string) (messaging.Channel, error)
	IssueToken(identityID string) (string, error)
}

// Options tunes a Service.
type Options struct {
	APIKey      string
	ChannelType string
	// CustomerIDNonce appends a per-session suffix to derived customer ids.
	CustomerIDNonce bool
}

// Service bootstraps customer support sessions. It holds no state between
// calls; everything it creates lives in the messaging backend.
type Service struct {
	backend Backend
	opts    Options
	log     *logging.Logger
	newID   func() string
}

// NewService wires the bootstrap to a messaging backend.
func NewService(backend Backend, opts Options, log *logging.Logger) *Service {
	if opts.ChannelType == "" {
		opts.ChannelType = messaging.DefaultChannelType
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		backend: backend,
		opts:    opts,
		log:     log.Sub("session"),
		newID:   uuid.NewString,
	}
}

// Bootstrap registers the customer and admin, opens a fresh channel between
// them and returns a token scoped to the customer. Steps are not retried and
// not rolled back: a failure after the upsert leaves the identity records in
// place.
func (s *Service) Bootstrap(ctx context.Context, firstName, lastName string) (session.Descriptor, error) {
	customer, err := identity.DeriveCustomer(firstName, lastName)
	if err != nil {
		return session.Descriptor{}, err
	}
	if s.opts.CustomerIDNonce {
		customer = identity.WithNonce(customer, s.newID()[:8])
	}
	admin := identity.Admin()

	log := s.log.With("customer_id", customer.ID)

	if err := s.backend.UpsertIdentities(ctx, []identity.Identity{customer, admin}); err != nil {
		log.Error().Err(err).Msg("upsert identities failed")
		return session.Descriptor{}, err
	}

	channelID := s.newID()
	channel, err := s.backend.CreateChannel(ctx, s.opts.ChannelType, channelID, []string{customer.ID, admin.ID}, admin.ID)
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("create channel failed")
		return session.Descriptor{}, err
	}
	if channel.ID == "" {
		channel.ID = channelID
	}

	token, err := s.backend.IssueToken(customer.ID)
	if err != nil {
		log.Error().Err(err).Msg("issue token failed")
		return session.Descriptor{}, err
	}
	if token == "" {
		return session.Descriptor{}, errors.New("messaging backend issued an empty token")
	}

	log.Info().Str("channel_id", channel.ID).Msg("session bootstrapped")

	return session.Descriptor{
		CustomerID:    customer.ID,
		CustomerToken: token,
		ChannelID:     channel.ID,
		APIKey:        s.opts.APIKey,
	}, nil
}
