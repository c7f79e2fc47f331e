package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sniksnak-service/internal/invite"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/policy"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

// FamilyHandler serves the parent-facing surface: provisioning children,
// tuning surveillance and reading what the tier permits.
type FamilyHandler struct {
	accountRepo repositories.AccountRepository
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	flagRepo    repositories.FlagRepository
	consentRepo repositories.ConsentRepository
	invites     *invite.Service
	audit       *telemetry.AuditEmitter
}

// NewFamilyHandler builds a FamilyHandler.
func NewFamilyHandler(
	accountRepo repositories.AccountRepository,
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	flagRepo repositories.FlagRepository,
	consentRepo repositories.ConsentRepository,
	invites *invite.Service,
	audit *telemetry.AuditEmitter,
) *FamilyHandler {
	return &FamilyHandler{
		accountRepo: accountRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		flagRepo:    flagRepo,
		consentRepo: consentRepo,
		invites:     invites,
		audit:       audit,
	}
}

func requireParent(c *gin.Context) bool {
	if c.GetString("role") != string(models.RoleParent) {
		c.JSON(http.StatusForbidden, gin.H{"error": "parent role required"})
		return false
	}
	return true
}

// linkForChild resolves the caller's link to the child in the path, writing
// the error response itself when there is none.
func (h *FamilyHandler) linkForChild(c *gin.Context) (models.ParentChildLink, bool) {
	childID, err := strconv.Atoi(c.Param("child_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return models.ParentChildLink{}, false
	}

	link, err := h.accountRepo.GetLink(c.Request.Context(), c.GetInt("userID"), childID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not linked to this child"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve link"})
		}
		return models.ParentChildLink{}, false
	}
	return link, true
}

// ProvisionChild creates a child account, links it to the calling parent and
// returns a signed invite token for the child's first login.
func (h *FamilyHandler) ProvisionChild(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	var req struct {
		Username string      `json:"username" binding:"required"`
		Tier     policy.Tier `json:"surveillance_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Tier == "" {
		req.Tier = policy.TierStrict
	}
	if !policy.ValidTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown surveillance level"})
		return
	}

	parentID := c.GetInt("userID")
	child, err := h.accountRepo.CreateAccount(c.Request.Context(), req.Username, nil, models.RoleChild)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create child account"})
		return
	}

	link, err := h.accountRepo.CreateLink(c.Request.Context(), parentID, child.ID, req.Tier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link child"})
		return
	}

	token, err := h.invites.Sign(child.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue invite"})
		return
	}

	h.audit.Emit(c.Request.Context(), "child.provisioned", requestIDFromContext(c), userIDFromContext(c), map[string]any{
		"child_id":           child.ID,
		"surveillance_level": string(link.SurveillanceLevel),
	})

	c.JSON(http.StatusCreated, gin.H{"child": child, "link": link, "invite_token": token})
}

// ListChildren returns the caller's parent-child links.
func (h *FamilyHandler) ListChildren(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	links, err := h.accountRepo.ListChildren(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load children"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"children": links})
}

// SetSurveillanceTier updates the tier on the caller's link to the child.
// A caller without a link gets a forbidden outcome, not a created link.
func (h *FamilyHandler) SetSurveillanceTier(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	childID, err := strconv.Atoi(c.Param("child_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	var req struct {
		Tier policy.Tier `json:"surveillance_level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !policy.ValidTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown surveillance level"})
		return
	}

	parentID := c.GetInt("userID")
	if err := h.accountRepo.SetSurveillanceTier(c.Request.Context(), parentID, childID, req.Tier); err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not linked to this child"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update surveillance level"})
		return
	}

	h.audit.Emit(c.Request.Context(), "surveillance.changed", requestIDFromContext(c), userIDFromContext(c), map[string]any{
		"child_id":           childID,
		"surveillance_level": string(req.Tier),
	})

	c.JSON(http.StatusOK, gin.H{"child_id": childID, "surveillance_level": req.Tier})
}

// ListChildChats returns the child's conversations the caller's tier permits.
func (h *FamilyHandler) ListChildChats(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	link, ok := h.linkForChild(c)
	if !ok {
		return
	}

	vis := policy.ForTier(link.SurveillanceLevel)
	chats, err := h.chatRepo.ListChatsForChild(c.Request.Context(), link.ChildID, vis)
	if err != nil {
		if errors.Is(err, repositories.ErrNoReadAccess) {
			c.JSON(http.StatusForbidden, gin.H{"error": "surveillance level does not permit reading"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChildChatMessages returns a child conversation's messages when the tier
// permits reading that particular conversation.
func (h *FamilyHandler) GetChildChatMessages(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	link, ok := h.linkForChild(c)
	if !ok {
		return
	}

	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, link.ChildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found for this child"})
		return
	}

	switch policy.ForTier(link.SurveillanceLevel) {
	case policy.VisibilityFull:
	case policy.VisibilityFlaggedOnly:
		flagged, err := h.chatRepo.ChatHasFlags(c.Request.Context(), chatID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access"})
			return
		}
		if !flagged {
			c.JSON(http.StatusForbidden, gin.H{"error": "surveillance level only permits flagged conversations"})
			return
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "surveillance level does not permit reading"})
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListContactRequests returns who has tried to reach the child. Available to
// any linked parent regardless of tier.
func (h *FamilyHandler) ListContactRequests(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	link, ok := h.linkForChild(c)
	if !ok {
		return
	}

	reqs, err := h.consentRepo.ListContactRequestsForChild(c.Request.Context(), link.ChildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load contact requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contact_requests": reqs})
}

// ListChildFlags returns the classifier's risk records for the child.
// Available to any linked parent regardless of tier.
func (h *FamilyHandler) ListChildFlags(c *gin.Context) {
	if !requireParent(c) {
		return
	}

	link, ok := h.linkForChild(c)
	if !ok {
		return
	}

	flagged, err := h.flagRepo.ListFlaggedMessagesForChild(c.Request.Context(), link.ChildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load flagged messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flagged_messages": flagged})
}
