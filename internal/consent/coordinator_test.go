package consent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sniksnak-service/internal/consent"
	"sniksnak-service/internal/mocks"
	"sniksnak-service/internal/models"
	"sniksnak-service/internal/policy"
)

func coordinatorFixture() (*consent.Coordinator, *mocks.AccountRepositoryMock, *mocks.ConsentRepositoryMock, *mocks.ChannelBrokerMock) {
	accounts := new(mocks.AccountRepositoryMock)
	consentRepo := new(mocks.ConsentRepositoryMock)
	broker := new(mocks.ChannelBrokerMock)
	coordinator := consent.NewCoordinator(accounts, consentRepo, broker, nil, zap.NewNop())
	return coordinator, accounts, consentRepo, broker
}

func link(parentID, childID int) models.ParentChildLink {
	return models.ParentChildLink{ParentID: parentID, ChildID: childID, SurveillanceLevel: policy.TierStrict}
}

func TestInitiateContactCrossFamily(t *testing.T) {
	coordinator, accounts, consentRepo, broker := coordinatorFixture()

	childrenChat := models.Chat{ID: 20}
	parentsChat := models.Chat{ID: 30}

	broker.On("EnsureChannel", mock.Anything, 2, 3).Return(childrenChat, nil).Once()
	consentRepo.On("UpsertContactRequest", mock.Anything, 3, 2, 20).
		Return(models.PendingContactRequest{ID: 1, ChildID: 3, ContactUserID: 2, ChatID: 20}, nil).Once()
	consentRepo.On("UpsertIntroduction", mock.Anything, 20, 2, 3).
		Return(models.IntroductionRecord{ID: 1, ChatID: 20, InvitingChildID: 2, InvitedChildID: 3, Status: models.IntroductionPending}, true, nil).Once()
	accounts.On("ShareParent", mock.Anything, 2, 3).Return(false, nil).Once()
	accounts.On("ListParents", mock.Anything, 2).Return([]models.ParentChildLink{link(10, 2)}, nil).Once()
	accounts.On("ListParents", mock.Anything, 3).Return([]models.ParentChildLink{link(11, 3)}, nil).Once()
	accounts.On("GetAccount", mock.Anything, 2).Return(models.Account{ID: 2, Username: "emma"}, nil).Once()
	accounts.On("GetAccount", mock.Anything, 3).Return(models.Account{ID: 3, Username: "noah"}, nil).Once()
	broker.On("EnsureChannel", mock.Anything, 10, 11).Return(parentsChat, nil).Once()
	broker.On("Post", mock.Anything, 30, 10, mock.MatchedBy(func(content string) bool {
		return len(content) > 0
	})).Return(true, nil).Once()

	result, err := coordinator.InitiateContact(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Chat.ID)
	assert.Equal(t, models.IntroductionPending, result.Status)

	broker.AssertExpectations(t)
	consentRepo.AssertExpectations(t)
	accounts.AssertExpectations(t)
}

func TestInitiateContactSameParentSelfReferentialChannel(t *testing.T) {
	coordinator, accounts, consentRepo, broker := coordinatorFixture()

	childrenChat := models.Chat{ID: 20}
	selfChat := models.Chat{ID: 31}

	broker.On("EnsureChannel", mock.Anything, 2, 3).Return(childrenChat, nil).Once()
	consentRepo.On("UpsertContactRequest", mock.Anything, 3, 2, 20).
		Return(models.PendingContactRequest{ID: 1}, nil).Once()
	consentRepo.On("UpsertIntroduction", mock.Anything, 20, 2, 3).
		Return(models.IntroductionRecord{ID: 1, ChatID: 20, InvitingChildID: 2, InvitedChildID: 3, Status: models.IntroductionPending}, true, nil).Once()
	// Siblings: both children resolve to parent 10, and the approval request
	// lands in the parent's conversation with themself.
	accounts.On("ShareParent", mock.Anything, 2, 3).Return(true, nil).Once()
	accounts.On("ListParents", mock.Anything, 2).Return([]models.ParentChildLink{link(10, 2)}, nil).Once()
	accounts.On("ListParents", mock.Anything, 3).Return([]models.ParentChildLink{link(10, 3)}, nil).Once()
	accounts.On("GetAccount", mock.Anything, 2).Return(models.Account{ID: 2, Username: "emma"}, nil).Once()
	accounts.On("GetAccount", mock.Anything, 3).Return(models.Account{ID: 3, Username: "noah"}, nil).Once()
	broker.On("EnsureChannel", mock.Anything, 10, 10).Return(selfChat, nil).Once()
	broker.On("Post", mock.Anything, 31, 10, mock.Anything).Return(true, nil).Once()

	result, err := coordinator.InitiateContact(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, models.IntroductionPending, result.Status)

	broker.AssertExpectations(t)
}

func TestInitiateContactTerminalRecordSkipsRelay(t *testing.T) {
	coordinator, accounts, consentRepo, broker := coordinatorFixture()

	childrenChat := models.Chat{ID: 20}
	broker.On("EnsureChannel", mock.Anything, 2, 3).Return(childrenChat, nil).Once()
	consentRepo.On("UpsertContactRequest", mock.Anything, 3, 2, 20).
		Return(models.PendingContactRequest{ID: 1}, nil).Once()
	consentRepo.On("UpsertIntroduction", mock.Anything, 20, 2, 3).
		Return(models.IntroductionRecord{ID: 1, ChatID: 20, Status: models.IntroductionAccepted}, false, nil).Once()

	result, err := coordinator.InitiateContact(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, models.IntroductionAccepted, result.Status)

	accounts.AssertNotCalled(t, "ListParents", mock.Anything, mock.Anything)
	broker.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiateContactMissingParentStillRecords(t *testing.T) {
	coordinator, accounts, consentRepo, broker := coordinatorFixture()

	childrenChat := models.Chat{ID: 20}
	broker.On("EnsureChannel", mock.Anything, 2, 3).Return(childrenChat, nil).Once()
	consentRepo.On("UpsertContactRequest", mock.Anything, 3, 2, 20).
		Return(models.PendingContactRequest{ID: 1}, nil).Once()
	consentRepo.On("UpsertIntroduction", mock.Anything, 20, 2, 3).
		Return(models.IntroductionRecord{ID: 1, ChatID: 20, Status: models.IntroductionPending}, true, nil).Once()
	accounts.On("ShareParent", mock.Anything, 2, 3).Return(false, nil).Once()
	accounts.On("ListParents", mock.Anything, 2).Return([]models.ParentChildLink{}, nil).Once()

	// The relay cannot run, but the contact request and introduction stand.
	result, err := coordinator.InitiateContact(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, models.IntroductionPending, result.Status)

	consentRepo.AssertExpectations(t)
}

func TestAcceptPostsConfirmations(t *testing.T) {
	coordinator, accounts, consentRepo, broker := coordinatorFixture()

	record := models.IntroductionRecord{ID: 1, ChatID: 20, InvitingChildID: 2, InvitedChildID: 3, Status: models.IntroductionAccepted}
	consentRepo.On("SetIntroductionStatus", mock.Anything, 2, 3, models.IntroductionAccepted).
		Return(record, nil).Once()
	accounts.On("GetAccount", mock.Anything, 2).Return(models.Account{ID: 2, Username: "emma"}, nil).Once()
	accounts.On("GetAccount", mock.Anything, 3).Return(models.Account{ID: 3, Username: "noah"}, nil).Once()
	broker.On("Post", mock.Anything, 20, 2, mock.Anything).Return(true, nil).Once()
	accounts.On("ListParents", mock.Anything, 2).Return([]models.ParentChildLink{link(10, 2)}, nil).Once()
	accounts.On("ListParents", mock.Anything, 3).Return([]models.ParentChildLink{link(11, 3)}, nil).Once()
	broker.On("EnsureChannel", mock.Anything, 10, 11).Return(models.Chat{ID: 30}, nil).Once()
	broker.On("Post", mock.Anything, 30, 10, mock.Anything).Return(true, nil).Once()

	require.NoError(t, coordinator.Accept(context.Background(), 2, 3))

	broker.AssertExpectations(t)
	consentRepo.AssertExpectations(t)
}

func TestRejectOnlyUpdatesStatus(t *testing.T) {
	coordinator, _, consentRepo, broker := coordinatorFixture()

	record := models.IntroductionRecord{ID: 1, ChatID: 20, InvitingChildID: 2, InvitedChildID: 3, Status: models.IntroductionRejected}
	consentRepo.On("SetIntroductionStatus", mock.Anything, 2, 3, models.IntroductionRejected).
		Return(record, nil).Once()

	require.NoError(t, coordinator.Reject(context.Background(), 2, 3))

	broker.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	broker.AssertNotCalled(t, "EnsureChannel", mock.Anything, mock.Anything, mock.Anything)
}
