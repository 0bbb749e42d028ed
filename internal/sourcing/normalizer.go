package sourcing

import (
	"fmt"
	"strings"
	"worksheet_backend/internal/model"
)

// DefaultGenerationDifficulty 难度为“任意”时交给生成服务的难度
const DefaultGenerationDifficulty = model.Medium

// Normalized 规范化后的难度、题型与版式
type Normalized struct {
	// StoreDifficulties 为空表示不限难度
	StoreDifficulties     []model.Difficulty `json:"storeDifficulties,omitempty"`
	GenerationDifficulty  model.Difficulty   `json:"generationDifficulty"`
	DiscardedDifficulties []model.Difficulty `json:"discardedDifficulties,omitempty"`

	// TaskTypes 为空且 AnyTaskType 为 true 表示不限题型
	TaskTypes   []model.TaskType `json:"taskTypes,omitempty"`
	AnyTaskType bool             `json:"anyTaskType"`

	Format           model.Format `json:"format"`
	RequestedFormat  string       `json:"requestedFormat"`
	FormatDowngraded bool         `json:"formatDowngraded"`
	FormatUnknown    bool         `json:"formatUnknown,omitempty"`

	// Language 题库按语言取题，空表示不限
	Language string `json:"language,omitempty"`
}

// GenerationTaskTypes 交给生成服务的题型列表，任意题型时展开为全部题型
func (n Normalized) GenerationTaskTypes() []model.TaskType {
	if n.AnyTaskType {
		return append([]model.TaskType(nil), model.AllTaskTypes...)
	}
	return n.TaskTypes
}

// Normalize 把调用方的原始难度/题型/版式转成两个数据源都能使用的形式。
// EXAM 版式与非单选题型冲突时静默降级为 STANDARD，不报错。
func Normalize(req model.GenerationRequest) (Normalized, error) {
	var n Normalized

	anyDifficulty := len(req.Difficulties) == 0
	seenDiff := map[model.Difficulty]bool{}
	for _, raw := range req.Difficulties {
		if model.IsAllSentinel(raw) {
			anyDifficulty = true
			continue
		}
		d, ok := model.ParseDifficulty(raw)
		if !ok {
			return Normalized{}, &ValidationError{Problems: []string{fmt.Sprintf("unknown difficulty %q", raw)}}
		}
		if seenDiff[d] {
			continue
		}
		seenDiff[d] = true
		n.StoreDifficulties = append(n.StoreDifficulties, d)
	}
	if anyDifficulty {
		n.StoreDifficulties = nil
		n.GenerationDifficulty = DefaultGenerationDifficulty
	} else {
		n.GenerationDifficulty = n.StoreDifficulties[0]
		if len(n.StoreDifficulties) > 1 {
			n.DiscardedDifficulties = append([]model.Difficulty(nil), n.StoreDifficulties[1:]...)
		}
	}

	seenType := map[model.TaskType]bool{}
	for _, raw := range req.TaskTypes {
		if model.IsAllSentinel(raw) {
			n.AnyTaskType = true
			continue
		}
		t, ok := model.ParseTaskType(raw)
		if !ok {
			return Normalized{}, &ValidationError{Problems: []string{fmt.Sprintf("unknown task type %q", raw)}}
		}
		if seenType[t] {
			continue
		}
		seenType[t] = true
		n.TaskTypes = append(n.TaskTypes, t)
	}
	if len(req.TaskTypes) == 0 {
		return Normalized{}, &ValidationError{Problems: []string{"taskTypes must not be empty"}}
	}
	if n.AnyTaskType {
		n.TaskTypes = nil
	}

	n.RequestedFormat = req.Format
	format := model.FormatStandard
	if req.Format != "" {
		if f, ok := model.ParseFormat(req.Format); ok {
			format = f
		} else {
			n.FormatUnknown = true
		}
	}
	if format == model.FormatExam && !onlySingleChoice(n) {
		format = model.FormatStandard
		n.FormatDowngraded = true
	}
	n.Format = format
	n.Language = strings.ToLower(strings.TrimSpace(req.Language))

	return n, nil
}

func onlySingleChoice(n Normalized) bool {
	if n.AnyTaskType || len(n.TaskTypes) == 0 {
		return false
	}
	for _, t := range n.TaskTypes {
		if t != model.SingleChoice {
			return false
		}
	}
	return true
}
