package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sniksnak-service/internal/invite"
	"sniksnak-service/internal/middleware"
	"sniksnak-service/internal/repositories"
	"sniksnak-service/internal/telemetry"
)

// AuthHandler exchanges invite tokens for sessions.
type AuthHandler struct {
	accountRepo repositories.AccountRepository
	invites     *invite.Service
	jwtSecret   []byte
	audit       *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(accountRepo repositories.AccountRepository, invites *invite.Service, jwtSecret []byte, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{accountRepo: accountRepo, invites: invites, jwtSecret: jwtSecret, audit: audit}
}

// RedeemInvite verifies an invite token and returns a session for the child
// account it names. Tokens are stateless, so redeeming twice inside the
// validity window simply issues another session.
func (h *AuthHandler) RedeemInvite(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	childID, err := h.invites.Verify(req.Token)
	if err != nil {
		if errors.Is(err, invite.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invite expired"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid invite"})
		return
	}

	account, err := h.accountRepo.GetAccount(c.Request.Context(), childID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	session, err := middleware.IssueSession(h.jwtSecret, account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session"})
		return
	}

	h.audit.Emit(c.Request.Context(), "invite.redeemed", requestIDFromContext(c), &account.ID, nil)

	c.JSON(http.StatusOK, gin.H{"token": session, "account": account})
}
