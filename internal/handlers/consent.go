package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sniksnak-service/internal/models"
	"sniksnak-service/internal/repositories"
)

// ConsentHandler exposes the introduction decisions to parents.
type ConsentHandler struct {
	accountRepo repositories.AccountRepository
	consentRepo repositories.ConsentRepository
	coordinator ContactCoordinator
}

// NewConsentHandler builds a ConsentHandler.
func NewConsentHandler(
	accountRepo repositories.AccountRepository,
	consentRepo repositories.ConsentRepository,
	coordinator ContactCoordinator,
) *ConsentHandler {
	return &ConsentHandler{accountRepo: accountRepo, consentRepo: consentRepo, coordinator: coordinator}
}

type introductionRequest struct {
	InvitingChildID int `json:"inviting_child_id" binding:"required"`
	InvitedChildID  int `json:"invited_child_id" binding:"required"`
}

// authorize requires the caller to be a parent linked to one of the two
// children named by the introduction.
func (h *ConsentHandler) authorize(c *gin.Context, req introductionRequest) bool {
	if !requireParent(c) {
		return false
	}

	parentID := c.GetInt("userID")
	for _, childID := range []int{req.InvitingChildID, req.InvitedChildID} {
		_, err := h.accountRepo.GetLink(c.Request.Context(), parentID, childID)
		if err == nil {
			return true
		}
		if !errors.Is(err, repositories.ErrLinkNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access"})
			return false
		}
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "not linked to either child"})
	return false
}

// GetIntroduction returns the current introduction record between two
// children, so a parent can check where an approval stands.
func (h *ConsentHandler) GetIntroduction(c *gin.Context) {
	invitingChildID, err := strconv.Atoi(c.Param("inviting_child_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inviting child id"})
		return
	}
	invitedChildID, err := strconv.Atoi(c.Param("invited_child_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invited child id"})
		return
	}

	if !h.authorize(c, introductionRequest{InvitingChildID: invitingChildID, InvitedChildID: invitedChildID}) {
		return
	}

	record, err := h.consentRepo.GetIntroduction(c.Request.Context(), invitingChildID, invitedChildID)
	if err != nil {
		if errors.Is(err, repositories.ErrIntroductionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "introduction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load introduction"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Accept approves the introduction between two children.
func (h *ConsentHandler) Accept(c *gin.Context) {
	var req introductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorize(c, req) {
		return
	}

	if err := h.coordinator.Accept(c.Request.Context(), req.InvitingChildID, req.InvitedChildID); err != nil {
		if errors.Is(err, repositories.ErrIntroductionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "introduction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept introduction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.IntroductionAccepted})
}

// Reject declines the introduction between two children.
func (h *ConsentHandler) Reject(c *gin.Context) {
	var req introductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorize(c, req) {
		return
	}

	if err := h.coordinator.Reject(c.Request.Context(), req.InvitingChildID, req.InvitedChildID); err != nil {
		if errors.Is(err, repositories.ErrIntroductionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "introduction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reject introduction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.IntroductionRejected})
}
