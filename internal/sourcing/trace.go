package sourcing

import (
	"strconv"
	"strings"
	"worksheet_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	StageValidate           = "validate"
	StageFormatDowngrade    = "format_downgrade"
	StageDifficultyDiscard  = "difficulty_discarded"
	StageQuota              = "quota"
	StageGeneration         = "generation"
	StageGenerationShortage = "generation_shortfall"
	StageStoreLevel         = "store_level_"
	StageStoreShapeSkipped  = "store_shape_skipped"
	StageStoreExhausted     = "store_exhausted"
	StageStoreFailed        = "store_failed"
	StageMerge              = "merge"
)

// TraceEntry 一次诊断记录
type TraceEntry struct {
	Stage       string `json:"stage"`
	Detail      string `json:"detail"`
	ResultCount int    `json:"resultCount"`
}

// Trace 按请求返回的诊断轨迹，同时镜像到日志
type Trace []TraceEntry

func (t *Trace) add(stage, detail string, count int) {
	*t = append(*t, TraceEntry{Stage: stage, Detail: detail, ResultCount: count})
	logger.Log.Debug("sourcing trace",
		zap.String("stage", stage),
		zap.String("detail", detail),
		zap.Int("count", count),
	)
}

// Stages 返回指定阶段的所有记录
func (t Trace) Stages(stage string) []TraceEntry {
	var out []TraceEntry
	for _, e := range t {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// LevelsConsulted 按顺序返回查询过的放宽级别
func (t Trace) LevelsConsulted() []int {
	var out []int
	for _, e := range t {
		if !strings.HasPrefix(e.Stage, StageStoreLevel) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(e.Stage, StageStoreLevel)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func storeLevelStage(level int) string {
	return StageStoreLevel + strconv.Itoa(level)
}
