package storyboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
	apperrors "storyboard-ai-api/pkg/errors"
	"storyboard-ai-api/pkg/logger"
)

const sessionID = "4f9e3c1a-1d2b-4a5c-9e8f-0a1b2c3d4e5f"

type serviceFixture struct {
	sessions  *mockSessionRepo
	events    *mockEventRepo
	locker    *mockLocker
	publisher *mockPublisher
	images    *mockImageGenerator
	unlocked  int
}

func newServiceFixture() *serviceFixture {
	return &serviceFixture{
		sessions:  &mockSessionRepo{},
		events:    &mockEventRepo{},
		locker:    &mockLocker{},
		publisher: &mockPublisher{},
		images:    &mockImageGenerator{},
	}
}

func (f *serviceFixture) service(text, vision *scriptedChatModel) *Service {
	var factory *mockChatModelFactory
	switch {
	case text != nil && vision != nil:
		factory = newFactory(text, vision)
	case text != nil:
		factory = newFactory(text, nil)
	case vision != nil:
		factory = newFactory(nil, vision)
	default:
		factory = newFactory(nil, nil)
	}
	opts := testOptions()
	return NewService(
		f.sessions, f.events, f.locker, f.publisher,
		NewStoryGenerator(factory, opts),
		NewArtStyleGenerator(factory, f.images, opts),
		NewIllustrator(factory, f.images, opts),
	)
}

func (f *serviceFixture) grantLock() {
	unlock := func(context.Context) error {
		f.unlocked++
		return nil
	}
	f.locker.On("TryLock", mock.Anything, sessionID).Return(unlock, true, nil)
}

func storedSession(scenes entity.Scenes) *entity.StorySession {
	s := entity.NewStorySession("A girl sails to a mysterious island", len(scenes), scenes)
	s.UUID = sessionID
	return s
}

func TestService_CreateStory(t *testing.T) {
	f := newServiceFixture()
	f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*entity.StorySession")).Return(nil)
	f.publisher.On("PublishSessionEvent", mock.Anything, mock.MatchedBy(func(e *entity.SessionEvent) bool {
		return e.Type == entity.SessionEventStoryCreated && e.RequestID == "req-1" && e.Payload["scene_count"] == 3
	})).Return(nil)

	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-1")
	svc := f.service(newScriptedChatModel(storyJSON(t, 3)), nil)
	session, err := svc.CreateStory(ctx, "A girl sails to a mysterious island", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, session.UUID)
	assert.Len(t, session.Scenes, 3)
	assert.Equal(t, 3, session.SceneCount)

	f.sessions.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestService_CreateStory_GenerationFailureSkipsPersistence(t *testing.T) {
	f := newServiceFixture()
	svc := f.service(newScriptedChatModel(storyJSON(t, 2)), nil)

	_, err := svc.CreateStory(context.Background(), "A girl sails to a mysterious island", 3)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishSessionEvent", mock.Anything, mock.Anything)
}

func TestService_CreateStory_PublishFailureIsIgnored(t *testing.T) {
	f := newServiceFixture()
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishSessionEvent", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc := f.service(newScriptedChatModel(storyJSON(t, 2)), nil)
	_, err := svc.CreateStory(context.Background(), "A girl sails to a mysterious island", 2)
	require.NoError(t, err)
}

func TestService_RefineStory(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.sessions.On("Update", mock.Anything, mock.MatchedBy(func(s *entity.StorySession) bool {
		return len(s.Scenes) == 4
	})).Return(nil)
	f.publisher.On("PublishSessionEvent", mock.Anything, mock.MatchedBy(func(e *entity.SessionEvent) bool {
		return e.Type == entity.SessionEventStoryRefined && e.SessionUUID == sessionID
	})).Return(nil)

	svc := f.service(newScriptedChatModel(storyJSON(t, 4)), nil)
	out, err := svc.RefineStory(context.Background(), sessionID, "add an epilogue")
	require.NoError(t, err)
	assert.Len(t, out.Session.Scenes, 4)
	assert.Len(t, out.Warnings, 1)
	assert.Equal(t, 1, f.unlocked)
	f.sessions.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestService_RefineStory_Busy(t *testing.T) {
	f := newServiceFixture()
	f.locker.On("TryLock", mock.Anything, sessionID).Return(nil, false, nil)

	svc := f.service(newScriptedChatModel(), nil)
	_, err := svc.RefineStory(context.Background(), sessionID, "add an epilogue")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionBusy))
	assert.Equal(t, 409, apperrors.AsAppError(err).HTTPStatus)
	f.sessions.AssertNotCalled(t, "GetByUUID", mock.Anything, mock.Anything)
}

func TestService_RefineStory_NotFound(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(nil, nil)

	svc := f.service(newScriptedChatModel(), nil)
	_, err := svc.RefineStory(context.Background(), sessionID, "add an epilogue")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSessionNotFound))
	assert.Equal(t, 1, f.unlocked)
}

func TestService_RefineStory_EmptyStory(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(nil), nil)

	cm := newScriptedChatModel()
	svc := f.service(cm, nil)
	_, err := svc.RefineStory(context.Background(), sessionID, "add an epilogue")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyStory))
	assert.Equal(t, 0, cm.callCount())
}

func TestService_RefineStory_VersionConflict(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.sessions.On("Update", mock.Anything, mock.Anything).Return(repository.ErrVersionConflict)

	svc := f.service(newScriptedChatModel(storyJSON(t, 3)), nil)
	_, err := svc.RefineStory(context.Background(), sessionID, "make it rain")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVersionConflict))
	f.publisher.AssertNotCalled(t, "PublishSessionEvent", mock.Anything, mock.Anything)
}

func TestService_SuggestArtStyles_UsesFirstScene(t *testing.T) {
	f := newServiceFixture()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.images.On("Generate", mock.Anything, mock.Anything).Return("https://img.example.com/s.png", nil)

	cm := newScriptedChatModel(threeStyles)
	svc := f.service(cm, nil)
	styles, err := svc.SuggestArtStyles(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, styles, 3)

	user := cm.inputs[0][len(cm.inputs[0])-1].Content
	assert.Contains(t, user, "Dawn breaks over the harbor")
	f.locker.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything)
}

func TestService_SuggestArtStyles_EmptyStory(t *testing.T) {
	f := newServiceFixture()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(entity.Scenes{}), nil)

	svc := f.service(newScriptedChatModel(), nil)
	_, err := svc.SuggestArtStyles(context.Background(), sessionID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyStory))
	assert.Equal(t, 422, apperrors.AsAppError(err).HTTPStatus)
}

func TestService_FinalizeStory(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.sessions.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.images.On("Generate", mock.Anything, mock.Anything).Return("https://img.example.com/f.png", nil)
	f.publisher.On("PublishSessionEvent", mock.Anything, mock.MatchedBy(func(e *entity.SessionEvent) bool {
		return e.Type == entity.SessionEventIllustrationFinalized
	})).Return(nil)

	svc := f.service(nil, newScriptedChatModel(consistencyReply))
	session, err := svc.FinalizeStory(context.Background(), sessionID, "https://img.example.com/ref.png")
	require.NoError(t, err)
	for _, s := range session.Scenes {
		assert.Equal(t, "https://img.example.com/f.png", s.CharacterImagePrompt())
		assert.Empty(t, s.BackgroundPrompt)
	}
	assert.Equal(t, 1, f.unlocked)
}

func TestService_FinalizeStory_FailureLeavesSessionUntouched(t *testing.T) {
	f := newServiceFixture()
	f.grantLock()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.images.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	svc := f.service(nil, newScriptedChatModel(consistencyReply))
	_, err := svc.FinalizeStory(context.Background(), sessionID, "https://img.example.com/ref.png")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSceneImageFailed))
	f.sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.unlocked)
}

func TestService_ListEvents(t *testing.T) {
	f := newServiceFixture()
	p := repository.NewPagination(1, 20)
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(storedSession(sampleScenes()), nil)
	f.events.On("ListBySession", mock.Anything, sessionID, p).
		Return(repository.NewPagedResult([]*entity.SessionEvent{}, 0, p), nil)

	svc := f.service(nil, nil)
	res, err := svc.ListEvents(context.Background(), sessionID, p)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
}

func TestService_GetSession_DatabaseError(t *testing.T) {
	f := newServiceFixture()
	f.sessions.On("GetByUUID", mock.Anything, sessionID).Return(nil, errors.New("conn refused"))

	svc := f.service(nil, nil)
	_, err := svc.GetSession(context.Background(), sessionID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDatabaseError))
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.TryLock(ctx, "a")
	assert.False(t, ok)

	_, ok, _ = l.TryLock(ctx, "b")
	assert.True(t, ok)

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))
	_, ok, _ = l.TryLock(ctx, "a")
	assert.True(t, ok)
}
