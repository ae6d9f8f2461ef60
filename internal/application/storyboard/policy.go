package storyboard

import "fmt"

// ScenePolicy 模型返回场景数与期望不一致时的处理策略
type ScenePolicy int

const (
	// ScenePolicyExact 数量必须一致（故事生成）
	ScenePolicyExact ScenePolicy = iota
	// ScenePolicyTolerant 接受任意非空数量，不一致时给出警告（故事精修）
	ScenePolicyTolerant
)

// Check 返回警告文本或错误
func (p ScenePolicy) Check(expected, got int) (string, error) {
	if got == 0 {
		return "", ErrNoScenes
	}
	if got == expected {
		return "", nil
	}
	switch p {
	case ScenePolicyTolerant:
		return fmt.Sprintf("scene count changed from %d to %d", expected, got), nil
	default:
		return "", fmt.Errorf("expected %d scenes, got %d", expected, got)
	}
}
