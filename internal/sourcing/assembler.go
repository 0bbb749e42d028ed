package sourcing

import (
	"encoding/json"
	"errors"
	"fmt"
	"worksheet_backend/internal/model"
)

// Bundle 交给持久化层的完整组卷结果，组装过程不做任何 I/O
type Bundle struct {
	Request               json.RawMessage    `json:"request"`
	Tasks                 []model.Task       `json:"tasks"`
	Origins               []model.Origin     `json:"origins"`
	Quota                 Quota              `json:"quota"`
	Trace                 Trace              `json:"trace"`
	Format                model.Format       `json:"format"`
	FormatDowngraded      bool               `json:"formatDowngraded"`
	DiscardedDifficulties []model.Difficulty `json:"discardedDifficulties,omitempty"`
	FulfillmentRatio      float64            `json:"fulfillmentRatio"`
	GeneratedCount        int                `json:"generatedCount"`
	StoredCount           int                `json:"storedCount"`
}

// Assemble 把请求快照、题目来源标记与诊断轨迹打包
func Assemble(req model.GenerationRequest, res *Result) (*Bundle, error) {
	if res == nil {
		return nil, errors.New("assemble: nil result")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("assemble: marshal request: %w", err)
	}

	origins := make([]model.Origin, len(res.Tasks))
	for i, t := range res.Tasks {
		origins[i] = t.Origin
	}
	counts := model.CountByOrigin(res.Tasks)

	return &Bundle{
		Request:               raw,
		Tasks:                 res.Tasks,
		Origins:               origins,
		Quota:                 res.Quota,
		Trace:                 res.Trace,
		Format:                res.Normalized.Format,
		FormatDowngraded:      res.Normalized.FormatDowngraded,
		DiscardedDifficulties: res.Normalized.DiscardedDifficulties,
		FulfillmentRatio:      res.FulfillmentRatio,
		GeneratedCount:        counts[model.OriginGenerated],
		StoredCount:           counts[model.OriginStored],
	}, nil
}
