// Package consent manages cross-family contact requests and the
// parent-to-parent introduction workflow.
package consent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sniksnak-service/internal/models"
	"sniksnak-service/internal/observability"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

// ChannelBroker is the relay primitive the coordinator builds on:
// find-or-create a deduplicated channel between arbitrary accounts and post
// content-deduplicated messages into it.
type ChannelBroker interface {
	EnsureChannel(ctx context.Context, a, other int) (models.Chat, error)
	Post(ctx context.Context, chatID, senderID int, content string) (bool, error)
}

// InitiateResult reports what initiating contact produced.
type InitiateResult struct {
	Chat   models.Chat               `json:"chat"`
	Status models.IntroductionStatus `json:"status"`
}

// Coordinator drives the introduction state machine. There is one path for
// same-parent and cross-family pairs: the parents' channel simply collapses
// to a self-referential conversation when the canonical parent pair does.
type Coordinator struct {
	accounts repositories.AccountRepository
	consent  repositories.ConsentRepository
	broker   ChannelBroker
	audit    *telemetry.AuditEmitter
	logger   *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	accounts repositories.AccountRepository,
	consent repositories.ConsentRepository,
	broker ChannelBroker,
	audit *telemetry.AuditEmitter,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		accounts: accounts,
		consent:  consent,
		broker:   broker,
		audit:    audit,
		logger:   logger,
	}
}

// InitiateContact runs when a child opens a conversation with another child.
// It is re-entrant: repeated calls for the same pair upsert the same records
// and dedupe the same messages, never producing a second channel.
func (c *Coordinator) InitiateContact(ctx context.Context, initiatorID, targetChildID int) (InitiateResult, error) {
	childrenChat, err := c.broker.EnsureChannel(ctx, initiatorID, targetChildID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("ensure children chat: %w", err)
	}

	// Inform the contacted child's parent in-app regardless of family shape.
	if _, err := c.consent.UpsertContactRequest(ctx, targetChildID, initiatorID, childrenChat.ID); err != nil {
		return InitiateResult{}, fmt.Errorf("upsert contact request: %w", err)
	}

	record, created, err := c.consent.UpsertIntroduction(ctx, childrenChat.ID, initiatorID, targetChildID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("upsert introduction: %w", err)
	}
	if created {
		observability.IncConsentTransition(string(models.IntroductionPending))
	}
	if record.Status != models.IntroductionPending {
		// Terminal record: nothing further to relay.
		return InitiateResult{Chat: childrenChat, Status: record.Status}, nil
	}

	sameFamily, err := c.accounts.ShareParent(ctx, initiatorID, targetChildID)
	if err != nil {
		// Family shape only annotates the audit trail; the relay below does
		// not depend on it.
		c.logger.Warn("family lookup failed",
			zap.Int("initiator_id", initiatorID), zap.Int("target_child_id", targetChildID), zap.Error(err))
	}

	if err := c.relayIntroduction(ctx, initiatorID, targetChildID); err != nil {
		// The request and introduction are recorded; the parent relay is
		// downstream of them and therefore best-effort.
		c.logger.Warn("introduction relay incomplete",
			zap.Int("initiator_id", initiatorID), zap.Int("target_child_id", targetChildID), zap.Error(err))
	}

	c.audit.Emit(ctx, "contact.initiated", "", &initiatorID, map[string]any{
		"target_child_id": targetChildID,
		"chat_id":         childrenChat.ID,
		"same_family":     sameFamily,
	})

	return InitiateResult{Chat: childrenChat, Status: record.Status}, nil
}

// Accept transitions the introduction to accepted and posts deduplicated
// confirmations into both the children's and the parents' conversations.
func (c *Coordinator) Accept(ctx context.Context, invitingChildID, invitedChildID int) error {
	record, err := c.consent.SetIntroductionStatus(ctx, invitingChildID, invitedChildID, models.IntroductionAccepted)
	if err != nil {
		return err
	}
	observability.IncConsentTransition(string(models.IntroductionAccepted))

	inviting, invited, err := c.childPair(ctx, record.InvitingChildID, record.InvitedChildID)
	if err != nil {
		return err
	}

	confirmation := fmt.Sprintf("%s and %s are now allowed to chat with each other.", inviting.Username, invited.Username)
	if _, err := c.broker.Post(ctx, record.ChatID, record.InvitingChildID, confirmation); err != nil {
		c.logger.Warn("children confirmation failed", zap.Int("chat_id", record.ChatID), zap.Error(err))
	}

	if parentA, parentB, ok := c.resolveParents(ctx, record.InvitingChildID, record.InvitedChildID); ok {
		parentsChat, err := c.broker.EnsureChannel(ctx, parentA, parentB)
		if err != nil {
			c.logger.Warn("parents channel failed", zap.Error(err))
		} else if _, err := c.broker.Post(ctx, parentsChat.ID, parentA, confirmation); err != nil {
			c.logger.Warn("parents confirmation failed", zap.Int("chat_id", parentsChat.ID), zap.Error(err))
		}
	}

	c.audit.Emit(ctx, "introduction.accepted", "", nil, map[string]any{
		"inviting_child_id": record.InvitingChildID,
		"invited_child_id":  record.InvitedChildID,
	})
	return nil
}

// Reject transitions the introduction to rejected. No further relay action.
func (c *Coordinator) Reject(ctx context.Context, invitingChildID, invitedChildID int) error {
	record, err := c.consent.SetIntroductionStatus(ctx, invitingChildID, invitedChildID, models.IntroductionRejected)
	if err != nil {
		return err
	}
	observability.IncConsentTransition(string(models.IntroductionRejected))

	c.audit.Emit(ctx, "introduction.rejected", "", nil, map[string]any{
		"inviting_child_id": record.InvitingChildID,
		"invited_child_id":  record.InvitedChildID,
	})
	return nil
}

// relayIntroduction resolves each child's parent and posts the approval
// request from the inviting parent into the parent-to-parent channel.
func (c *Coordinator) relayIntroduction(ctx context.Context, initiatorID, targetChildID int) error {
	parentA, parentB, ok := c.resolveParents(ctx, initiatorID, targetChildID)
	if !ok {
		return fmt.Errorf("one of the children has no linked parent")
	}

	initiator, target, err := c.childPair(ctx, initiatorID, targetChildID)
	if err != nil {
		return err
	}

	parentsChat, err := c.broker.EnsureChannel(ctx, parentA, parentB)
	if err != nil {
		return fmt.Errorf("ensure parents channel: %w", err)
	}

	intro := fmt.Sprintf(
		"%s would like to start chatting with %s. Do you approve this contact?",
		initiator.Username, target.Username)
	if _, err := c.broker.Post(ctx, parentsChat.ID, parentA, intro); err != nil {
		return fmt.Errorf("post introduction: %w", err)
	}
	return nil
}

func (c *Coordinator) resolveParents(ctx context.Context, childA, childB int) (int, int, bool) {
	linksA, err := c.accounts.ListParents(ctx, childA)
	if err != nil || len(linksA) == 0 {
		return 0, 0, false
	}
	linksB, err := c.accounts.ListParents(ctx, childB)
	if err != nil || len(linksB) == 0 {
		return 0, 0, false
	}
	return linksA[0].ParentID, linksB[0].ParentID, true
}

func (c *Coordinator) childPair(ctx context.Context, idA, idB int) (models.Account, models.Account, error) {
	a, err := c.accounts.GetAccount(ctx, idA)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	b, err := c.accounts.GetAccount(ctx, idB)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	return a, b, nil
}
