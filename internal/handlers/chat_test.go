package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sniksnak-service/internal/consent"
	"sniksnak-service/internal/mocks"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/policy"
	"sniksnak-service/internal/repositories"
)

// scanRecorder captures fire-and-forget pipeline calls so tests can wait on
// them instead of racing the goroutine.
type scanRecorder struct {
	scanned  chan models.Message
	notified chan string
}

func newScanRecorder() *scanRecorder {
	return &scanRecorder{scanned: make(chan models.Message, 1), notified: make(chan string, 1)}
}

func (s *scanRecorder) ScanMessage(ctx context.Context, msg models.Message) {
	s.scanned <- msg
}

func (s *scanRecorder) NotifyParents(ctx context.Context, msg models.Message, category string) {
	s.notified <- category
}

func setupChatRouter(handler *ChatHandler, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("role", string(role))
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.POST("/chats/start", handler.StartChat)
	r.GET("/chats/:chat_id", handler.GetChat)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	r.GET("/chats/:chat_id/messages/:message_id/flags", handler.ListMessageFlags)
	r.POST("/chats/:chat_id/messages/:message_id/flags", handler.FlagMessage)
	return r
}

func TestListChatsSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("ListChats", mock.Anything, 1).Return([]models.ChatSummary{{ChatID: 3, FriendID: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestListChatsRepoError(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("ListChats", mock.Anything, 1).Return(([]models.ChatSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestStartChatChildToChildRunsConsent(t *testing.T) {
	accountRepo := new(mocks.AccountRepositoryMock)
	coordinator := new(mocks.ContactCoordinatorMock)
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), nil, accountRepo, nil, coordinator, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	accountRepo.On("GetAccount", mock.Anything, 2).Return(models.Account{ID: 2, Role: models.RoleChild}, nil).Once()
	chatID := 10
	coordinator.On("InitiateContact", mock.Anything, 1, 2).
		Return(consent.InitiateResult{Chat: models.Chat{ID: chatID}, Status: models.IntroductionPending}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/start", bytes.NewBufferString(`{"friend_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, float64(chatID), resp["chat_id"])
	assert.Equal(t, string(models.IntroductionPending), resp["status"])

	accountRepo.AssertExpectations(t)
	coordinator.AssertExpectations(t)
}

func TestStartChatParentBypassesConsent(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, accountRepo, nil, new(mocks.ContactCoordinatorMock), nil, nil)
	router := setupChatRouter(handler, models.RoleParent)

	accountRepo.On("GetAccount", mock.Anything, 2).Return(models.Account{ID: 2, Role: models.RoleChild}, nil).Once()
	chatRepo.On("EnsureChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/start", bytes.NewBufferString(`{"friend_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
	accountRepo.AssertExpectations(t)
}

func TestStartChatSelf(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), nil, new(mocks.AccountRepositoryMock), nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	req := httptest.NewRequest(http.MethodPost, "/chats/start", bytes.NewBufferString(`{"friend_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChat(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	user1, user2 := 1, 2
	chatRepo.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5, User1ID: &user1, User2ID: &user2}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var chat models.Chat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chat))
	assert.Equal(t, 5, chat.ID)
	chatRepo.AssertExpectations(t)
}

func TestGetChatNotMember(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	chatRepo.AssertNotCalled(t, "GetChat", mock.Anything, mock.Anything)
}

func TestGetChatMissing(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	chatRepo.On("GetChat", mock.Anything, 5).Return(models.Chat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestGetChatMessagesNotMember(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, new(mocks.MessageRepositoryMock), nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestGetChatMessagesInvalidID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	req := httptest.NewRequest(http.MethodGet, "/chats/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostChatMessageTriggersScan(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	scanner := newScanRecorder()
	handler := NewChatHandler(chatRepo, messageRepo, nil, nil, nil, scanner, nil)
	router := setupChatRouter(handler, models.RoleChild)

	stored := models.Message{ID: 7, ChatID: 5, SenderID: 1, Content: "hi"}
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, "hi", (*string)(nil)).Return(stored, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case msg := <-scanner.scanned:
		assert.Equal(t, stored.ID, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("scan was not triggered")
	}

	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostChatMessageEmptyBody(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, new(mocks.MessageRepositoryMock), nil, nil, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlagMessageFirstTimeNotifies(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	flagRepo := new(mocks.FlagRepositoryMock)
	scanner := newScanRecorder()
	handler := NewChatHandler(chatRepo, messageRepo, nil, flagRepo, nil, scanner, nil)
	router := setupChatRouter(handler, models.RoleChild)

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 2}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(msg, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	flagRepo.On("RecordFlag", mock.Anything, 7, 1, (*string)(nil)).
		Return(models.Flag{ID: 1, MessageID: 7, FlaggedBy: 1}, true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages/7/flags", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case category := <-scanner.notified:
		assert.Equal(t, "parental-flag", category)
	case <-time.After(time.Second):
		t.Fatal("parents were not notified")
	}

	flagRepo.AssertExpectations(t)
}

func TestFlagMessageRepeatIsIdempotent(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	flagRepo := new(mocks.FlagRepositoryMock)
	scanner := newScanRecorder()
	handler := NewChatHandler(chatRepo, messageRepo, nil, flagRepo, nil, scanner, nil)
	router := setupChatRouter(handler, models.RoleChild)

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 2}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(msg, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	flagRepo.On("RecordFlag", mock.Anything, 7, 1, (*string)(nil)).
		Return(models.Flag{ID: 1, MessageID: 7, FlaggedBy: 1}, false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages/7/flags", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-scanner.notified:
		t.Fatal("repeat flag must not notify again")
	case <-time.After(50 * time.Millisecond):
	}

	flagRepo.AssertExpectations(t)
}

func TestListMessageFlags(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	flagRepo := new(mocks.FlagRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, nil, flagRepo, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 2}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(msg, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	flagRepo.On("ListFlags", mock.Anything, 7).
		Return([]models.Flag{{ID: 1, MessageID: 7, FlaggedBy: 1}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages/7/flags", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Flags []models.Flag `json:"flags"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Flags, 1)
	flagRepo.AssertExpectations(t)
}

func TestListMessageFlagsOutsiderForbidden(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	flagRepo := new(mocks.FlagRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, accountRepo, flagRepo, nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 2}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(msg, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()
	accountRepo.On("GetLink", mock.Anything, 1, 2).
		Return(models.ParentChildLink{}, repositories.ErrLinkNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages/7/flags", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	flagRepo.AssertNotCalled(t, "ListFlags", mock.Anything, mock.Anything)
}

func TestListMessageFlagsWrongChat(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, nil, new(mocks.FlagRepositoryMock), nil, nil, nil)
	router := setupChatRouter(handler, models.RoleChild)

	messageRepo.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ChatID: 9, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages/7/flags", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlagMessageMildParentForbidden(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	accountRepo := new(mocks.AccountRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, accountRepo, new(mocks.FlagRepositoryMock), nil, nil, nil)
	router := setupChatRouter(handler, models.RoleParent)

	msg := models.Message{ID: 7, ChatID: 5, SenderID: 2}
	messageRepo.On("GetMessage", mock.Anything, 7).Return(msg, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()
	accountRepo.On("GetLink", mock.Anything, 1, 2).
		Return(models.ParentChildLink{ParentID: 1, ChildID: 2, SurveillanceLevel: policy.TierMild}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages/7/flags", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	accountRepo.AssertExpectations(t)
}
