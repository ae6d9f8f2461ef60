package storyboard

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/mock"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
	workflowport "storyboard-ai-api/internal/workflow/port"
)

// scriptedChatModel 按顺序返回预设内容
type scriptedChatModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	inputs  [][]*schema.Message
}

func newScriptedChatModel(replies ...string) *scriptedChatModel {
	return &scriptedChatModel{replies: replies}
}

func (m *scriptedChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return schema.AssistantMessage(reply, nil), nil
}

func (m *scriptedChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedChatModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type mockChatModelFactory struct {
	mock.Mock
}

func (m *mockChatModelFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	args := m.Called(ctx, name)
	cm, _ := args.Get(0).(model.BaseChatModel)
	return cm, args.Error(1)
}

func (m *mockChatModelFactory) GetVision(ctx context.Context, name string) (model.BaseChatModel, error) {
	args := m.Called(ctx, name)
	cm, _ := args.Get(0).(model.BaseChatModel)
	return cm, args.Error(1)
}

func (m *mockChatModelFactory) ProviderName(name string) string {
	return m.Called(name).String(0)
}

// newFactory 文本与视觉调用分别走 text / vision 两个脚本模型
func newFactory(text, vision model.BaseChatModel) *mockChatModelFactory {
	f := &mockChatModelFactory{}
	f.On("ProviderName", mock.Anything).Return("fake").Maybe()
	if text != nil {
		f.On("Get", mock.Anything, mock.Anything).Return(text, nil).Maybe()
	}
	if vision != nil {
		f.On("GetVision", mock.Anything, mock.Anything).Return(vision, nil).Maybe()
	}
	return f
}

type mockImageGenerator struct {
	mock.Mock
}

func (m *mockImageGenerator) Generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockImageGenerator) Name() string {
	return "mock"
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, session *entity.StorySession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) GetByUUID(ctx context.Context, uuid string) (*entity.StorySession, error) {
	args := m.Called(ctx, uuid)
	s, _ := args.Get(0).(*entity.StorySession)
	return s, args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, session *entity.StorySession) error {
	return m.Called(ctx, session).Error(0)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event *entity.SessionEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) ListBySession(ctx context.Context, sessionUUID string, p repository.Pagination) (*repository.PagedResult[*entity.SessionEvent], error) {
	args := m.Called(ctx, sessionUUID, p)
	r, _ := args.Get(0).(*repository.PagedResult[*entity.SessionEvent])
	return r, args.Error(1)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryLock(ctx context.Context, sessionID string) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, sessionID)
	unlock, _ := args.Get(0).(func(context.Context) error)
	return unlock, args.Bool(1), args.Error(2)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, event *entity.SessionEvent) error {
	return m.Called(ctx, event).Error(0)
}

func testOptions() Options {
	return Options{
		Provider:       "fake",
		ImageSize:      "1024x1024",
		ImageQuality:   "standard",
		MaxConcurrency: 4,
	}
}

func sampleScenes() entity.Scenes {
	return entity.Scenes{
		{ID: 1, Narrator: "Dawn breaks over the harbor", Character: "Mia", CharacterDescription: "a girl in a yellow raincoat", Dialogue: "Let's go!", BackgroundPrompt: "misty harbor"},
		{ID: 2, Narrator: "The boat leaves", Character: "Mia", CharacterDescription: "a girl in a yellow raincoat", Dialogue: "Goodbye!", BackgroundPrompt: "open sea"},
		{ID: 3, Narrator: "An island appears", Character: "Mia", CharacterDescription: "a girl in a yellow raincoat", Dialogue: "Land!", BackgroundPrompt: "green island"},
	}
}
