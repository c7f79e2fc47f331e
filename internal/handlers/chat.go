package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sniksnak-service/internal/consent"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/policy"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

// ContactCoordinator drives the consent workflow for child-to-child contact.
type ContactCoordinator interface {
	InitiateContact(ctx context.Context, initiatorID, targetChildID int) (consent.InitiateResult, error)
	Accept(ctx context.Context, invitingChildID, invitedChildID int) error
	Reject(ctx context.Context, invitingChildID, invitedChildID int) error
}

// MessageScanner is the fire-and-forget scan pipeline.
type MessageScanner interface {
	ScanMessage(ctx context.Context, msg models.Message)
	NotifyParents(ctx context.Context, msg models.Message, category string)
}

// ChatHandler manages conversation endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	accountRepo repositories.AccountRepository
	flagRepo    repositories.FlagRepository
	coordinator ContactCoordinator
	scanner     MessageScanner
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	accountRepo repositories.AccountRepository,
	flagRepo repositories.FlagRepository,
	coordinator ContactCoordinator,
	scanner MessageScanner,
	audit *telemetry.AuditEmitter,
) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		accountRepo: accountRepo,
		flagRepo:    flagRepo,
		coordinator: coordinator,
		scanner:     scanner,
		audit:       audit,
	}
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")

	chats, err := h.chatRepo.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat creates or returns the conversation with another user. When two
// children from different families meet here, the consent workflow runs and
// the conversation starts in a pending state.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	other, err := h.accountRepo.GetAccount(c.Request.Context(), req.FriendID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	if c.GetString("role") == string(models.RoleChild) && other.Role == models.RoleChild {
		result, err := h.coordinator.InitiateContact(c.Request.Context(), userID, req.FriendID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not initiate contact"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"chat_id": result.Chat.ID, "status": result.Status})
		return
	}

	chat, err := h.chatRepo.EnsureChat(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// GetChat returns one conversation the caller participates in. Advisory
// messages deep-link here via /chats/{id}.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	c.JSON(http.StatusOK, chat)
}

// GetChatMessages returns the messages of a conversation the caller
// participates in.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a message and hands it to the scan pipeline. The
// scan is fire-and-forget: it can never delay or fail the send.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	var req struct {
		Content       string  `json:"content"`
		AttachmentURL *string `json:"attachment_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && req.AttachmentURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs content or an attachment"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), chatID, userID, req.Content, req.AttachmentURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	go h.scanner.ScanMessage(context.Background(), msg)

	c.JSON(http.StatusCreated, msg)
}

// FlagMessage records a flag on a message. Idempotent: re-flagging by the
// same actor returns the existing flag.
func (h *ChatHandler) FlagMessage(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ChatID != chatID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to chat"})
		return
	}

	allowed, err := h.mayFlag(c, msg, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to flag this message"})
		return
	}

	var req struct {
		Reason *string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	_, created, err := h.flagRepo.RecordFlag(c.Request.Context(), messageID, userID, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record flag"})
		return
	}

	if created {
		h.audit.Emit(c.Request.Context(), "message.flagged.manual", requestIDFromContext(c), userIDFromContext(c), map[string]any{
			"message_id": messageID,
			"chat_id":    chatID,
		})
		go h.scanner.NotifyParents(context.Background(), msg, "parental-flag")
	}

	c.JSON(http.StatusOK, gin.H{"flagged": true})
}

// ListMessageFlags returns the flags recorded on a message, for the same
// audience that may flag it.
func (h *ChatHandler) ListMessageFlags(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ChatID != chatID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to chat"})
		return
	}

	allowed, err := h.mayFlag(c, msg, c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view flags on this message"})
		return
	}

	flags, err := h.flagRepo.ListFlags(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load flags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

// mayFlag allows participants, and parents whose surveillance tier grants
// any read visibility over the sender.
func (h *ChatHandler) mayFlag(c *gin.Context, msg models.Message, userID int) (bool, error) {
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), msg.ChatID, userID)
	if err != nil {
		return false, err
	}
	if member {
		return true, nil
	}

	link, err := h.accountRepo.GetLink(c.Request.Context(), userID, msg.SenderID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			return false, nil
		}
		return false, err
	}
	return link.SurveillanceLevel != policy.TierMild, nil
}
