package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sniksnak-service/internal/consent"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/moderation"
	"sniksnak-service/internal/policy"
	"sniksnak-service/internal/relay"
	"sniksnak-service/internal/repositories"
)

type AccountRepositoryMock struct {
	mock.Mock
}

func (m *AccountRepositoryMock) CreateAccount(ctx context.Context, username string, email *string, role models.Role) (models.Account, error) {
	args := m.Called(ctx, username, email, role)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) GetAccount(ctx context.Context, id int) (models.Account, error) {
	args := m.Called(ctx, id)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	args := m.Called(ctx, username)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *AccountRepositoryMock) CreateLink(ctx context.Context, parentID, childID int, tier policy.Tier) (models.ParentChildLink, error) {
	args := m.Called(ctx, parentID, childID, tier)
	var link models.ParentChildLink
	if val := args.Get(0); val != nil {
		link = val.(models.ParentChildLink)
	}
	return link, args.Error(1)
}

func (m *AccountRepositoryMock) GetLink(ctx context.Context, parentID, childID int) (models.ParentChildLink, error) {
	args := m.Called(ctx, parentID, childID)
	var link models.ParentChildLink
	if val := args.Get(0); val != nil {
		link = val.(models.ParentChildLink)
	}
	return link, args.Error(1)
}

func (m *AccountRepositoryMock) SetSurveillanceTier(ctx context.Context, parentID, childID int, tier policy.Tier) error {
	args := m.Called(ctx, parentID, childID, tier)
	return args.Error(0)
}

func (m *AccountRepositoryMock) ListChildren(ctx context.Context, parentID int) ([]models.ParentChildLink, error) {
	args := m.Called(ctx, parentID)
	var links []models.ParentChildLink
	if val := args.Get(0); val != nil {
		links = val.([]models.ParentChildLink)
	}
	return links, args.Error(1)
}

func (m *AccountRepositoryMock) ListParents(ctx context.Context, childID int) ([]models.ParentChildLink, error) {
	args := m.Called(ctx, childID)
	var links []models.ParentChildLink
	if val := args.Get(0); val != nil {
		links = val.([]models.ParentChildLink)
	}
	return links, args.Error(1)
}

func (m *AccountRepositoryMock) ShareParent(ctx context.Context, childA, childB int) (bool, error) {
	args := m.Called(ctx, childA, childB)
	return args.Bool(0), args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) EnsureChat(ctx context.Context, userID, otherID int) (models.Chat, error) {
	args := m.Called(ctx, userID, otherID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForChild(ctx context.Context, childID int, vis policy.Visibility) ([]models.Chat, error) {
	args := m.Called(ctx, childID, vis)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) ChatHasFlags(ctx context.Context, chatID int) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID, senderID int, content string, attachmentURL *string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, attachmentURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessageIfAbsent(ctx context.Context, chatID, senderID int, content string) (models.Message, bool, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type FlagRepositoryMock struct {
	mock.Mock
}

func (m *FlagRepositoryMock) RecordFlag(ctx context.Context, messageID, actorID int, reason *string) (models.Flag, bool, error) {
	args := m.Called(ctx, messageID, actorID, reason)
	var flag models.Flag
	if val := args.Get(0); val != nil {
		flag = val.(models.Flag)
	}
	return flag, args.Bool(1), args.Error(2)
}

func (m *FlagRepositoryMock) ListFlags(ctx context.Context, messageID int) ([]models.Flag, error) {
	args := m.Called(ctx, messageID)
	var flags []models.Flag
	if val := args.Get(0); val != nil {
		flags = val.([]models.Flag)
	}
	return flags, args.Error(1)
}

func (m *FlagRepositoryMock) CreateFlaggedMessage(ctx context.Context, childID, messageID int, matchedTerm, category string) (models.FlaggedMessage, error) {
	args := m.Called(ctx, childID, messageID, matchedTerm, category)
	var fm models.FlaggedMessage
	if val := args.Get(0); val != nil {
		fm = val.(models.FlaggedMessage)
	}
	return fm, args.Error(1)
}

func (m *FlagRepositoryMock) ListFlaggedMessagesForChild(ctx context.Context, childID int) ([]models.FlaggedMessage, error) {
	args := m.Called(ctx, childID)
	var fms []models.FlaggedMessage
	if val := args.Get(0); val != nil {
		fms = val.([]models.FlaggedMessage)
	}
	return fms, args.Error(1)
}

type ConsentRepositoryMock struct {
	mock.Mock
}

func (m *ConsentRepositoryMock) UpsertContactRequest(ctx context.Context, childID, contactUserID, chatID int) (models.PendingContactRequest, error) {
	args := m.Called(ctx, childID, contactUserID, chatID)
	var req models.PendingContactRequest
	if val := args.Get(0); val != nil {
		req = val.(models.PendingContactRequest)
	}
	return req, args.Error(1)
}

func (m *ConsentRepositoryMock) ListContactRequestsForChild(ctx context.Context, childID int) ([]models.PendingContactRequest, error) {
	args := m.Called(ctx, childID)
	var reqs []models.PendingContactRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.PendingContactRequest)
	}
	return reqs, args.Error(1)
}

func (m *ConsentRepositoryMock) UpsertIntroduction(ctx context.Context, chatID, invitingChildID, invitedChildID int) (models.IntroductionRecord, bool, error) {
	args := m.Called(ctx, chatID, invitingChildID, invitedChildID)
	var rec models.IntroductionRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.IntroductionRecord)
	}
	return rec, args.Bool(1), args.Error(2)
}

func (m *ConsentRepositoryMock) GetIntroduction(ctx context.Context, childA, childB int) (models.IntroductionRecord, error) {
	args := m.Called(ctx, childA, childB)
	var rec models.IntroductionRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.IntroductionRecord)
	}
	return rec, args.Error(1)
}

func (m *ConsentRepositoryMock) SetIntroductionStatus(ctx context.Context, childA, childB int, status models.IntroductionStatus) (models.IntroductionRecord, error) {
	args := m.Called(ctx, childA, childB, status)
	var rec models.IntroductionRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.IntroductionRecord)
	}
	return rec, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

type ContactCoordinatorMock struct {
	mock.Mock
}

func (m *ContactCoordinatorMock) InitiateContact(ctx context.Context, initiatorID, targetChildID int) (consent.InitiateResult, error) {
	args := m.Called(ctx, initiatorID, targetChildID)
	var result consent.InitiateResult
	if val := args.Get(0); val != nil {
		result = val.(consent.InitiateResult)
	}
	return result, args.Error(1)
}

func (m *ContactCoordinatorMock) Accept(ctx context.Context, invitingChildID, invitedChildID int) error {
	args := m.Called(ctx, invitingChildID, invitedChildID)
	return args.Error(0)
}

func (m *ContactCoordinatorMock) Reject(ctx context.Context, invitingChildID, invitedChildID int) error {
	args := m.Called(ctx, invitingChildID, invitedChildID)
	return args.Error(0)
}

type ChannelBrokerMock struct {
	mock.Mock
}

func (m *ChannelBrokerMock) EnsureChannel(ctx context.Context, a, other int) (models.Chat, error) {
	args := m.Called(ctx, a, other)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChannelBrokerMock) Post(ctx context.Context, chatID, senderID int, content string) (bool, error) {
	args := m.Called(ctx, chatID, senderID, content)
	return args.Bool(0), args.Error(1)
}

type AdvisoryRelayMock struct {
	mock.Mock
}

func (m *AdvisoryRelayMock) Relay(ctx context.Context, humanID int, advisory string) (relay.Outcome, error) {
	args := m.Called(ctx, humanID, advisory)
	var outcome relay.Outcome
	if val := args.Get(0); val != nil {
		outcome = val.(relay.Outcome)
	}
	return outcome, args.Error(1)
}

type VisionClientMock struct {
	mock.Mock
}

func (m *VisionClientMock) Classify(ctx context.Context, imageURL string) (moderation.ImageResult, error) {
	args := m.Called(ctx, imageURL)
	var result moderation.ImageResult
	if val := args.Get(0); val != nil {
		result = val.(moderation.ImageResult)
	}
	return result, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) SendAdvisory(ctx context.Context, recipient, subject, body string) error {
	args := m.Called(ctx, recipient, subject, body)
	return args.Error(0)
}

var _ repositories.AccountRepository = (*AccountRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.FlagRepository = (*FlagRepositoryMock)(nil)
var _ repositories.ConsentRepository = (*ConsentRepositoryMock)(nil)
var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ consent.ChannelBroker = (*ChannelBrokerMock)(nil)
var _ moderation.VisionClient = (*VisionClientMock)(nil)
