package relay_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sniksnak-service/internal/identity"
	"sniksnak-service/internal/mocks"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/relay"
)

func systemRegistry() *identity.Registry {
	registry := identity.NewRegistry()
	registry.SetSystemAccount(models.Account{ID: 99, Username: "safety-advisor", Role: models.RoleSystem})
	return registry
}

func TestRelayDelivered(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	broker := relay.NewBroker(chats, messages, systemRegistry(), zap.NewNop())

	chats.On("EnsureChat", mock.Anything, 5, 99).Return(models.Chat{ID: 42}, nil).Once()
	messages.On("CreateMessageIfAbsent", mock.Anything, 42, 99, "advisory").
		Return(models.Message{ID: 1, ChatID: 42, SenderID: 99, Content: "advisory"}, true, nil).Once()

	outcome, err := broker.Relay(context.Background(), 5, "advisory")
	require.NoError(t, err)
	assert.Equal(t, relay.OutcomeDelivered, outcome)

	chats.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestRelayDeduplicated(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	broker := relay.NewBroker(chats, messages, systemRegistry(), zap.NewNop())

	chats.On("EnsureChat", mock.Anything, 5, 99).Return(models.Chat{ID: 42}, nil).Once()
	messages.On("CreateMessageIfAbsent", mock.Anything, 42, 99, "advisory").
		Return(models.Message{}, false, nil).Once()

	outcome, err := broker.Relay(context.Background(), 5, "advisory")
	require.NoError(t, err)
	assert.Equal(t, relay.OutcomeDeduplicated, outcome)
}

func TestRelayDegradedWithoutSystemIdentity(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	broker := relay.NewBroker(chats, messages, identity.NewRegistry(), zap.NewNop())

	outcome, err := broker.Relay(context.Background(), 5, "advisory")

	// No channel, no message, and crucially no error: the triggering flag is
	// already recorded and must stand.
	require.NoError(t, err)
	assert.Equal(t, relay.OutcomeDegraded, outcome)
	chats.AssertNotCalled(t, "EnsureChat", mock.Anything, mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "CreateMessageIfAbsent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvisoryTextDeepLink(t *testing.T) {
	text := relay.AdvisoryText("emma", "violence", 42)
	assert.True(t, strings.Contains(text, "emma"))
	assert.True(t, strings.Contains(text, "violence"))
	assert.True(t, strings.Contains(text, "/chats/42"))
}
