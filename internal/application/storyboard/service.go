package storyboard

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
	apperrors "storyboard-ai-api/pkg/errors"
	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/metrics"
	"storyboard-ai-api/pkg/tracer"
)

const (
	StageStoryGenerate   = "story_generate"
	StageStoryRefine     = "story_refine"
	StageArtStyleSuggest = "art_style_suggest"
	StageArtStyleRefine  = "art_style_refine"
	StageFinalIllustrate = "final_illustration"
)

// RefineOutput 精修后的会话与警告
type RefineOutput struct {
	Session  *entity.StorySession
	Warnings []string
}

// Service 请求级编排：加锁 -> 加载会话 -> 执行单个阶段 -> 持久化 -> 发布事件
type Service struct {
	sessions  repository.StorySessionRepository
	events    repository.SessionEventRepository
	locker    SessionLocker
	publisher EventPublisher

	stories     *StoryGenerator
	styles      *ArtStyleGenerator
	illustrator *Illustrator
}

func NewService(
	sessions repository.StorySessionRepository,
	events repository.SessionEventRepository,
	locker SessionLocker,
	publisher EventPublisher,
	stories *StoryGenerator,
	styles *ArtStyleGenerator,
	illustrator *Illustrator,
) *Service {
	return &Service{
		sessions:    sessions,
		events:      events,
		locker:      locker,
		publisher:   publisher,
		stories:     stories,
		styles:      styles,
		illustrator: illustrator,
	}
}

// CreateStory 生成故事并创建会话
func (s *Service) CreateStory(ctx context.Context, briefing string, sceneCount int) (*entity.StorySession, error) {
	var session *entity.StorySession
	err := s.runStage(ctx, StageStoryGenerate, func(ctx context.Context) error {
		scenes, err := s.stories.Generate(ctx, briefing, sceneCount)
		if err != nil {
			return err
		}
		session = entity.NewStorySession(briefing, sceneCount, scenes)
		if err := s.sessions.Create(ctx, session); err != nil {
			return databaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.SessionIDKey, session.UUID)
	logger.Info(ctx, "story session created", "scenes", len(session.Scenes))
	s.publish(ctx, session, entity.SessionEventStoryCreated, nil)
	return session, nil
}

// RefineStory 精修已有故事
func (s *Service) RefineStory(ctx context.Context, sessionID, instruction string) (*RefineOutput, error) {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock)

	session, err := s.loadWithStory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var result *RefineResult
	err = s.runStage(ctx, StageStoryRefine, func(ctx context.Context) error {
		result, err = s.stories.Refine(ctx, session.Scenes, instruction)
		if err != nil {
			return err
		}
		session.ReplaceScenes(result.Scenes)
		return s.save(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	payload := entity.EventPayload{}
	if len(result.Warnings) > 0 {
		payload["warnings"] = result.Warnings
	}
	s.publish(ctx, session, entity.SessionEventStoryRefined, payload)
	return &RefineOutput{Session: session, Warnings: result.Warnings}, nil
}

// SuggestArtStyles 以第一个分镜为参考生成 3 个画风预览
func (s *Service) SuggestArtStyles(ctx context.Context, sessionID string) ([]entity.ArtStyleSuggestion, error) {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
	session, err := s.loadWithStory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var styles []entity.ArtStyleSuggestion
	err = s.runStage(ctx, StageArtStyleSuggest, func(ctx context.Context) error {
		styles, err = s.styles.Suggest(ctx, session.Scenes[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return styles, nil
}

// RefineArtStyle 精修单张画风预览图，与会话无关
func (s *Service) RefineArtStyle(ctx context.Context, imageURL, originalPrompt, refinement string) (string, error) {
	var url string
	err := s.runStage(ctx, StageArtStyleRefine, func(ctx context.Context) error {
		var err error
		url, err = s.styles.Refine(ctx, imageURL, originalPrompt, refinement)
		return err
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// FinalizeStory 生成终稿插画并写回会话
func (s *Service) FinalizeStory(ctx context.Context, sessionID, referenceImageURL string) (*entity.StorySession, error) {
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, unlock)

	session, err := s.loadWithStory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	err = s.runStage(ctx, StageFinalIllustrate, func(ctx context.Context) error {
		scenes, err := s.illustrator.Finalize(ctx, session.Scenes, referenceImageURL)
		if err != nil {
			return err
		}
		session.ReplaceScenes(scenes)
		return s.save(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, session, entity.SessionEventIllustrationFinalized, entity.EventPayload{
		"reference_image_url": referenceImageURL,
	})
	return session, nil
}

// GetSession 读取会话
func (s *Service) GetSession(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	return s.load(ctx, sessionID)
}

// ListEvents 分页读取会话事件
func (s *Service) ListEvents(ctx context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.SessionEvent], error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	result, err := s.events.ListBySession(ctx, sessionID, pagination)
	if err != nil {
		return nil, databaseError(err)
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	session, err := s.sessions.GetByUUID(ctx, sessionID)
	if err != nil {
		return nil, databaseError(err)
	}
	if session == nil {
		return nil, apperrors.SessionNotFound(sessionID)
	}
	return session, nil
}

func (s *Service) loadWithStory(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasStory() {
		return nil, emptyStoryError(sessionID)
	}
	return session, nil
}

func (s *Service) save(ctx context.Context, session *entity.StorySession) error {
	err := s.sessions.Update(ctx, session)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return versionConflictError(session.UUID, err)
	default:
		return databaseError(err)
	}
}

func (s *Service) lock(ctx context.Context, sessionID string) (func(context.Context) error, error) {
	unlock, ok, err := s.locker.TryLock(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "acquire session lock failed")
	}
	if !ok {
		metrics.SessionLockContentionTotal.Inc()
		logger.Warn(ctx, "session is busy")
		return nil, sessionBusyError(sessionID)
	}
	return unlock, nil
}

func (s *Service) unlock(ctx context.Context, unlock func(context.Context) error) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		logger.Warn(ctx, "release session lock failed", "error", err.Error())
	}
}

// runStage 为阶段注入日志上下文、追踪 span 与指标
func (s *Service) runStage(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx = logger.WithContext(ctx, logger.StageKey, stage)
	ctx, span := tracer.Start(ctx, "storyboard."+stage)
	defer span.End()
	span.SetAttributes(attribute.String("storyboard.stage", stage))

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StageTotal.WithLabelValues(stage, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "stage failed", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	metrics.StageTotal.WithLabelValues(stage, "success").Inc()
	logger.Info(ctx, "stage completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// publish 尽力发布事件，失败只记录日志
func (s *Service) publish(ctx context.Context, session *entity.StorySession, eventType entity.SessionEventType, payload entity.EventPayload) {
	if s.publisher == nil {
		return
	}
	if payload == nil {
		payload = entity.EventPayload{}
	}
	payload["scene_count"] = len(session.Scenes)
	payload["version"] = session.Version

	event := entity.NewSessionEvent(session.UUID, eventType, payload)
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		event.RequestID = requestID
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		logger.Warn(ctx, "publish session event failed",
			"event_type", string(eventType),
			"error", err.Error(),
		)
	}
}
