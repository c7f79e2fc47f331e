// Package relay posts advisory messages from the synthetic safety-advisor
// identity into deduplicated two-party channels.
package relay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sniksnak-service/internal/identity"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/observability"
	"sniksnak-service/internal/repositories"
)

// Outcome describes what a relay attempt did.
type Outcome string

const (
	// OutcomeDelivered: a new advisory message was inserted.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDeduplicated: an identical advisory already existed in the channel.
	OutcomeDeduplicated Outcome = "deduplicated"
	// OutcomeDegraded: the system identity is unresolved; the caller's flag is
	// already recorded, so this is a partial success, not a failure.
	OutcomeDegraded Outcome = "degraded"
)

// Broker finds-or-creates relay channels and posts deduplicated messages.
type Broker struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	registry *identity.Registry
	logger   *zap.Logger
}

// NewBroker constructs a Broker.
func NewBroker(chats repositories.ChatRepository, messages repositories.MessageRepository, registry *identity.Registry, logger *zap.Logger) *Broker {
	return &Broker{
		chats:    chats,
		messages: messages,
		registry: registry,
		logger:   logger,
	}
}

// EnsureChannel finds or creates the deduplicated channel between any two
// accounts. The pair is canonicalized and upserted atomically in the store;
// a == b yields the self-referential channel.
func (b *Broker) EnsureChannel(ctx context.Context, a, other int) (models.Chat, error) {
	return b.chats.EnsureChat(ctx, a, other)
}

// Post inserts content into the channel unless an identical message already
// exists there. Returns true when a new message was inserted.
func (b *Broker) Post(ctx context.Context, chatID, senderID int, content string) (bool, error) {
	_, created, err := b.messages.CreateMessageIfAbsent(ctx, chatID, senderID, content)
	return created, err
}

// Relay delivers an advisory from the system identity to a human. When the
// system identity is misconfigured the relay degrades instead of failing:
// the triggering flag is already recorded, and that must survive.
func (b *Broker) Relay(ctx context.Context, humanID int, advisory string) (Outcome, error) {
	system, err := b.registry.SystemAccount()
	if err != nil {
		b.logger.Error("relay degraded: system identity unresolved", zap.Error(err))
		observability.IncRelayOutcome(string(OutcomeDegraded))
		return OutcomeDegraded, nil
	}

	channel, err := b.EnsureChannel(ctx, humanID, system.ID)
	if err != nil {
		return "", fmt.Errorf("ensure relay channel: %w", err)
	}

	created, err := b.Post(ctx, channel.ID, system.ID, advisory)
	if err != nil {
		return "", fmt.Errorf("post advisory: %w", err)
	}
	if !created {
		observability.IncRelayOutcome(string(OutcomeDeduplicated))
		return OutcomeDeduplicated, nil
	}

	observability.IncRelayOutcome(string(OutcomeDelivered))
	return OutcomeDelivered, nil
}

// AdvisoryText renders the advisory body with a deep link into the flagged
// conversation, so a parent whose tier permits it can navigate straight to
// the context.
func AdvisoryText(childUsername, category string, chatID int) string {
	return fmt.Sprintf(
		"We noticed a message in one of %s's conversations that may need your attention (category: %s). You can review the conversation at /chats/%d.",
		childUsername, category, chatID)
}
