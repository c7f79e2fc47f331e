package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sniksnak-service/internal/invite"
	"sniksnak-service/internal/middleware"
	"sniksnak-service/internal/mocks"
	"sniksnak-service/internal/models"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/redeem-invite", handler.RedeemInvite)
	return r
}

func TestRedeemInviteSuccess(t *testing.T) {
	accountRepo := new(mocks.AccountRepositoryMock)
	invites := invite.NewService([]byte("invite-secret"))
	jwtSecret := []byte("jwt-secret")
	handler := NewAuthHandler(accountRepo, invites, jwtSecret, nil)
	router := setupAuthRouter(handler)

	token, err := invites.Sign(9)
	require.NoError(t, err)

	accountRepo.On("GetAccount", mock.Anything, 9).
		Return(models.Account{ID: 9, Username: "emma", Role: models.RoleChild}, nil).Once()

	body := bytes.NewBufferString(fmt.Sprintf(`{"token":%q}`, token))
	req := httptest.NewRequest(http.MethodPost, "/auth/redeem-invite", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	session, ok := resp["token"].(string)
	require.True(t, ok)
	userID, role, err := middleware.ParseSession(jwtSecret, session)
	require.NoError(t, err)
	assert.Equal(t, 9, userID)
	assert.Equal(t, models.RoleChild, role)

	accountRepo.AssertExpectations(t)
}

func TestRedeemInviteGarbageToken(t *testing.T) {
	handler := NewAuthHandler(new(mocks.AccountRepositoryMock), invite.NewService([]byte("s")), []byte("j"), nil)
	router := setupAuthRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/redeem-invite", bytes.NewBufferString(`{"token":"nonsense"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRedeemInviteWrongSecret(t *testing.T) {
	other := invite.NewService([]byte("other-secret"))
	token, err := other.Sign(9)
	require.NoError(t, err)

	handler := NewAuthHandler(new(mocks.AccountRepositoryMock), invite.NewService([]byte("s")), []byte("j"), nil)
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(fmt.Sprintf(`{"token":%q}`, token))
	req := httptest.NewRequest(http.MethodPost, "/auth/redeem-invite", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
