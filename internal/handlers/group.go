package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sniksnak-service/internal/repositories"
)

// GroupHandler manages group conversations. Group messages live in the same
// message store as pair messages, so the scan pipeline covers them too.
type GroupHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.MessageRepository
	scanner     MessageScanner
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, messageRepo repositories.MessageRepository, scanner MessageScanner) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo, messageRepo: messageRepo, scanner: scanner}
}

// CreateGroup creates a group with the caller as owner.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), c.GetInt("userID"), req.Name, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, group)
}

// ListGroups returns the groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// memberGroup resolves the group in the path and checks membership, writing
// the error response itself on failure.
func (h *GroupHandler) memberGroup(c *gin.Context) (int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return 0, false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
		return 0, false
	}
	return groupID, true
}

// GetGroupMessages returns a group conversation's messages.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), group.ChatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostGroupMessage stores a group message and hands it to the scan pipeline.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
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

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), group.ChatID, c.GetInt("userID"), req.Content, req.AttachmentURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	go h.scanner.ScanMessage(context.Background(), msg)

	c.JSON(http.StatusCreated, msg)
}
