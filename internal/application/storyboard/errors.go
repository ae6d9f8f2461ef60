package storyboard

import (
	"errors"
	"fmt"

	apperrors "storyboard-ai-api/pkg/errors"
)

var (
	ErrNoImageURL  = errors.New("image provider returned no usable url")
	ErrEmptyPrompt = errors.New("llm returned an empty prompt")
	ErrNoScenes    = errors.New("llm returned no scenes")
)

func generationError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeGenerationFailed, "story generation failed")
}

func refinementError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeRefinementFailed, "story refinement failed")
}

func styleGenerationError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeStyleGenerationFailed, "art style generation failed")
}

func imageGenerationError(subject string, err error) error {
	return apperrors.Wrap(err, apperrors.CodeImageGenerationFailed, "image generation failed").WithDetail(subject)
}

func promptRefinementError(err error) error {
	return apperrors.Wrap(err, apperrors.CodePromptRefinementFailed, "image prompt refinement failed")
}

func consistencyPromptError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeConsistencyPromptFailed, "consistency prompt generation failed")
}

func sceneImageError(sceneID int, err error) error {
	return apperrors.Wrap(err, apperrors.CodeSceneImageFailed, "scene image generation failed").
		WithDetail(fmt.Sprintf("scene %d", sceneID))
}

func emptyStoryError(sessionID string) error {
	return apperrors.New(apperrors.CodeEmptyStory, "session has no story yet").WithDetail("session " + sessionID)
}

func sessionBusyError(sessionID string) error {
	return apperrors.New(apperrors.CodeSessionBusy, "session is being modified by another request").
		WithDetail("session " + sessionID)
}

func versionConflictError(sessionID string, err error) error {
	return apperrors.Wrap(err, apperrors.CodeVersionConflict, "session was modified concurrently").
		WithDetail("session " + sessionID)
}

func databaseError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, "database error")
}

func styleSubject(name string) string {
	return fmt.Sprintf("style %q", name)
}
