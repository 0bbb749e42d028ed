package sourcing

import (
	"context"
	"worksheet_backend/internal/model"
)

// GenerationSpec 交给生成服务的一次请求
type GenerationSpec struct {
	Subject      string           `json:"subject"`
	Grade        int              `json:"grade"`
	TopicLabel   string           `json:"topicLabel"`
	Count        int              `json:"count"`
	Difficulty   model.Difficulty `json:"difficulty"`
	TaskTypes    []model.TaskType `json:"taskTypes"`
	Format       model.Format     `json:"format"`
	Instructions string           `json:"instructions,omitempty"`
	Language     string           `json:"language"`
}

// GenerationOutput 生成结果，题目数可能少于请求数
type GenerationOutput struct {
	Tasks       []model.Task
	Diagnostics map[string]any
}

// GenerationClient 生成服务。部分完成不是错误，只有传输或上游失败才返回 error。
type GenerationClient interface {
	Generate(ctx context.Context, spec GenerationSpec) (GenerationOutput, error)
}

// Store 只读题库。Candidates 返回满足条件的全部 ID，抽样由引擎完成。
type Store interface {
	Candidates(ctx context.Context, q StoreQuery) ([]string, error)
	Load(ctx context.Context, ids []string) ([]model.StoredTask, error)
}
