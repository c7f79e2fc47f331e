package moderation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"sniksnak-service/internal/identity"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/notify"
	"sniksnak-service/internal/observability"
	"sniksnak-service/internal/relay"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

// unattributedActor records classifier flags when the system identity is
// misconfigured: the flag must be recorded even then.
const unattributedActor = 0

// AdvisoryRelay delivers advisories to parents.
type AdvisoryRelay interface {
	Relay(ctx context.Context, humanID int, advisory string) (relay.Outcome, error)
}

// ImageScanner validates and classifies attachment URLs.
type ImageScanner interface {
	Scan(ctx context.Context, imageURL string) (ImageResult, error)
}

// Scanner runs the asynchronous scan pipeline for outgoing messages. It is
// fire-and-forget from the send path's perspective: a slow or failing scan
// never delays or fails message delivery.
type Scanner struct {
	flags    repositories.FlagRepository
	accounts repositories.AccountRepository
	broker   AdvisoryRelay
	images   ImageScanner
	registry *identity.Registry
	audit    *telemetry.AuditEmitter
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewScanner constructs a Scanner. images and notifier may be nil when the
// corresponding collaborator is not configured.
func NewScanner(
	flags repositories.FlagRepository,
	accounts repositories.AccountRepository,
	broker AdvisoryRelay,
	images ImageScanner,
	registry *identity.Registry,
	audit *telemetry.AuditEmitter,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		flags:    flags,
		accounts: accounts,
		broker:   broker,
		images:   images,
		registry: registry,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// ScanMessage classifies a stored message's text and attachment. Errors are
// logged, counted and swallowed; nothing here propagates to the sender.
func (s *Scanner) ScanMessage(ctx context.Context, msg models.Message) {
	ctx, span := otel.Tracer("sniksnak-service/moderation").Start(ctx, "moderation.scan")
	span.SetAttributes(attribute.Int("message.id", msg.ID), attribute.Int("chat.id", msg.ChatID))
	defer span.End()

	if match, ok := ScanText(msg.Content); ok {
		observability.IncScan("text", "flagged")
		s.handleFinding(ctx, msg, match.Term, match.Category)
	} else {
		observability.IncScan("text", "clean")
	}

	if msg.AttachmentURL == nil || s.images == nil {
		return
	}

	result, err := s.images.Scan(ctx, *msg.AttachmentURL)
	if err != nil {
		// Validation error: the URL never reached the classifier.
		observability.IncScan("image", "invalid")
		s.logger.Debug("attachment rejected before classification",
			zap.Int("message_id", msg.ID), zap.Error(err))
		return
	}
	if result.Reason == ReasonDetectionFailed {
		observability.IncScan("image", "degraded")
		return
	}
	if result.Unsafe {
		observability.IncScan("image", "flagged")
		category := result.Category
		if category == "" {
			category = "unsafe-image"
		}
		s.handleFinding(ctx, msg, *msg.AttachmentURL, category)
		return
	}
	observability.IncScan("image", "clean")
}

// handleFinding records the risk record and flag, then relays advisories to
// every linked parent. Everything downstream of the flag write is
// best-effort.
func (s *Scanner) handleFinding(ctx context.Context, msg models.Message, term, category string) {
	observability.IncFinding(category)

	if _, err := s.flags.CreateFlaggedMessage(ctx, msg.SenderID, msg.ID, term, category); err != nil {
		s.logger.Error("failed to store risk record",
			zap.Int("message_id", msg.ID), zap.String("category", category), zap.Error(err))
		return
	}

	actorID := unattributedActor
	system, err := s.registry.SystemAccount()
	if err != nil {
		s.logger.Error("recording classifier flag without system identity", zap.Error(err))
	} else {
		actorID = system.ID
	}

	reason := fmt.Sprintf("%s: %q", category, term)
	_, created, err := s.flags.RecordFlag(ctx, msg.ID, actorID, &reason)
	if err != nil {
		s.logger.Error("failed to record flag", zap.Int("message_id", msg.ID), zap.Error(err))
		return
	}
	if !created {
		// Already flagged by the classifier; parents were notified then.
		return
	}

	s.audit.Emit(ctx, "message.flagged", "", nil, map[string]any{
		"message_id": msg.ID,
		"chat_id":    msg.ChatID,
		"category":   category,
	})

	s.NotifyParents(ctx, msg, category)
}

// NotifyParents relays an advisory about the message to every parent linked
// to its sender. Used by the pipeline on first-time flags and by the manual
// flagging surface.
func (s *Scanner) NotifyParents(ctx context.Context, msg models.Message, category string) {
	child, err := s.accounts.GetAccount(ctx, msg.SenderID)
	if err != nil {
		s.logger.Warn("sender lookup failed, skipping advisories",
			zap.Int("sender_id", msg.SenderID), zap.Error(err))
		return
	}

	links, err := s.accounts.ListParents(ctx, msg.SenderID)
	if err != nil {
		s.logger.Warn("parent lookup failed, skipping advisories",
			zap.Int("sender_id", msg.SenderID), zap.Error(err))
		return
	}

	advisory := relay.AdvisoryText(child.Username, category, msg.ChatID)
	for _, link := range links {
		outcome, err := s.broker.Relay(ctx, link.ParentID, advisory)
		if err != nil {
			s.logger.Warn("advisory relay failed",
				zap.Int("parent_id", link.ParentID), zap.Error(err))
			continue
		}
		if outcome == relay.OutcomeDelivered {
			s.emailParent(ctx, link.ParentID, advisory)
		}
	}
}

func (s *Scanner) emailParent(ctx context.Context, parentID int, advisory string) {
	if s.notifier == nil {
		return
	}
	parent, err := s.accounts.GetAccount(ctx, parentID)
	if err != nil || parent.Email == nil {
		return
	}
	// Best-effort; SendAdvisory logs its own failures.
	_ = s.notifier.SendAdvisory(ctx, *parent.Email, "SnikSnak safety advisory", advisory)
}
