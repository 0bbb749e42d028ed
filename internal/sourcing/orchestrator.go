package sourcing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"worksheet_backend/internal/model"
	"worksheet_backend/pkg/logger"
	"worksheet_backend/pkg/monitoring"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("worksheet-backend/sourcing")

// Options 可热更新的组卷参数
type Options struct {
	GenerationTimeout time.Duration
	MaxTaskCount      int
}

func DefaultOptions() Options {
	return Options{
		GenerationTimeout: 45 * time.Second,
		MaxTaskCount:      50,
	}
}

// Result 组卷结果
type Result struct {
	Tasks            []model.Task `json:"tasks"`
	FulfillmentRatio float64      `json:"fulfillmentRatio"`
	Trace            Trace        `json:"trace"`
	Quota            Quota        `json:"quota"`
	Normalized       Normalized   `json:"normalized"`
}

type Option func(*Orchestrator)

// WithRand 注入随机源，测试中用固定种子保证抽样可复现
func WithRand(r *rand.Rand) Option {
	return func(o *Orchestrator) { o.rnd = r }
}

func WithOptions(opts Options) Option {
	return func(o *Orchestrator) { o.opts = opts }
}

// Orchestrator 计算配额、调用生成服务，并用题库补足任一来源的缺口
type Orchestrator struct {
	generator GenerationClient
	engine    *RelaxationEngine
	rnd       *rand.Rand

	mu   sync.RWMutex
	opts Options
}

func NewOrchestrator(generator GenerationClient, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		opts:      DefaultOptions(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.engine = NewRelaxationEngine(store, o.rnd)
	return o
}

// UpdateOptions 配置热更新时调用
func (o *Orchestrator) UpdateOptions(opts Options) {
	o.mu.Lock()
	o.opts = opts
	o.mu.Unlock()
}

func (o *Orchestrator) options() Options {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opts
}

// Source 执行完整组卷流程。调用方取消时放弃全部进行中的调用且不返回部分结果。
// 只有校验失败、两个来源都无题（ErrNoMatchingContent）与取消会作为错误返回。
func (o *Orchestrator) Source(ctx context.Context, req model.GenerationRequest) (*Result, error) {
	opts := o.options()
	res := &Result{}

	if err := Validate(req, opts.MaxTaskCount); err != nil {
		return nil, err
	}
	norm, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	res.Normalized = norm
	res.Trace.add(StageValidate, "ok", req.TaskCount)

	if norm.FormatDowngraded {
		res.Trace.add(StageFormatDowngrade,
			fmt.Sprintf("%s -> %s: task types %v are not all single choice", model.FormatExam, norm.Format, typesLabel(norm)), 0)
	}
	if norm.FormatUnknown {
		res.Trace.add(StageFormatDowngrade, fmt.Sprintf("unknown format %q -> %s", req.Format, norm.Format), 0)
	}
	if len(norm.DiscardedDifficulties) > 0 {
		res.Trace.add(StageDifficultyDiscard,
			fmt.Sprintf("generation uses %s, discarded %v", norm.GenerationDifficulty, norm.DiscardedDifficulties),
			len(norm.DiscardedDifficulties))
	}

	genQuota, storeQuota := Distribute(req.TaskCount, req.GenerationPercentage)
	res.Quota = Quota{
		Total:      req.TaskCount,
		Percentage: req.GenerationPercentage,
		Generation: genQuota,
		Store:      storeQuota,
	}
	res.Trace.add(StageQuota, fmt.Sprintf("total=%d percentage=%d generation=%d store=%d",
		req.TaskCount, req.GenerationPercentage, genQuota, storeQuota), req.TaskCount)

	var generated []model.Task
	if genQuota > 0 {
		generated, err = o.generate(ctx, req, norm, genQuota, &res.Trace)
		if err != nil {
			return nil, err
		}
	}
	res.Quota.Generated = len(generated)

	// 生成不足时把剩余全部需求交给题库
	effective := storeQuota
	if len(generated) < genQuota {
		effective = req.TaskCount - len(generated)
		res.Trace.add(StageGenerationShortage,
			fmt.Sprintf("requested=%d returned=%d store quota %d -> %d", genQuota, len(generated), storeQuota, effective),
			genQuota-len(generated))
		monitoring.GenerationShortfallTotal.Inc()
		logger.FromContext(ctx).Warn("generation shortfall",
			zap.Int("requested", genQuota),
			zap.Int("returned", len(generated)),
			zap.Int("store_quota", effective),
		)
	}
	res.Quota.EffectiveStore = effective

	var stored []model.Task
	if effective > 0 {
		stored, err = o.fromStore(ctx, req, norm, effective, &res.Trace)
		if err != nil {
			return nil, err
		}
	}
	res.Quota.Stored = len(stored)

	res.Tasks = make([]model.Task, 0, len(generated)+len(stored))
	res.Tasks = append(res.Tasks, generated...)
	res.Tasks = append(res.Tasks, stored...)
	res.FulfillmentRatio = float64(len(res.Tasks)) / float64(req.TaskCount)
	res.Trace.add(StageMerge, fmt.Sprintf("generated=%d stored=%d ratio=%.2f",
		len(generated), len(stored), res.FulfillmentRatio), len(res.Tasks))

	monitoring.TasksSourcedTotal.WithLabelValues(string(model.OriginGenerated)).Add(float64(len(generated)))
	monitoring.TasksSourcedTotal.WithLabelValues(string(model.OriginStored)).Add(float64(len(stored)))

	if len(res.Tasks) == 0 {
		monitoring.SourcingFailuresTotal.WithLabelValues("no_matching_content").Inc()
		logger.FromContext(ctx).Warn("no matching content",
			zap.String("subject", req.Subject),
			zap.Int("grade", req.Grade),
			zap.Int("requested", req.TaskCount),
		)
		return nil, ErrNoMatchingContent
	}
	return res, nil
}

// generate 失败或超时按 0 题处理；只有调用方自身取消才返回错误
func (o *Orchestrator) generate(ctx context.Context, req model.GenerationRequest, norm Normalized, quota int, trace *Trace) ([]model.Task, error) {
	ctx, span := tracer.Start(ctx, "sourcing.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("quota", quota))

	if o.generator == nil {
		trace.add(StageGeneration, "failed: generation client not configured", 0)
		return nil, nil
	}

	spec := GenerationSpec{
		Subject:      req.Subject,
		Grade:        req.Grade,
		TopicLabel:   TopicLabel(req),
		Count:        quota,
		Difficulty:   norm.GenerationDifficulty,
		TaskTypes:    norm.GenerationTaskTypes(),
		Format:       norm.Format,
		Instructions: req.CustomInstructions,
		Language:     req.Language,
	}

	callCtx := ctx
	if timeout := o.options().GenerationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := o.generator.Generate(callCtx, spec)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("generation cancelled: %w", ctxErr)
	}
	if err != nil {
		span.RecordError(err)
		trace.add(StageGeneration, "failed: "+err.Error(), 0)
		monitoring.SourcingFailuresTotal.WithLabelValues("generation").Inc()
		logger.FromContext(ctx).Warn("generation failed, compensating from store", zap.Int("quota", quota), zap.Error(err))
		return nil, nil
	}

	tasks := make([]model.Task, 0, quota)
	dropped := 0
	for _, t := range out.Tasks {
		if len(tasks) == quota {
			break
		}
		if t.Content == nil {
			dropped++
			continue
		}
		t.Origin = model.OriginGenerated
		tasks = append(tasks, t)
	}

	status := "ok"
	if len(tasks) < quota {
		status = "shortfall"
	}
	detail := fmt.Sprintf("%s requested=%d", status, quota)
	if dropped > 0 {
		detail += fmt.Sprintf(" dropped=%d", dropped)
	}
	trace.add(StageGeneration, detail, len(tasks))
	span.SetAttributes(attribute.Int("returned", len(tasks)))
	return tasks, nil
}

// fromStore 题库失败不致命：返回空并记录，由调用方决定整体结果
func (o *Orchestrator) fromStore(ctx context.Context, req model.GenerationRequest, norm Normalized, quota int, trace *Trace) ([]model.Task, error) {
	ctx, span := tracer.Start(ctx, "sourcing.store")
	defer span.End()
	span.SetAttributes(attribute.Int("quota", quota))

	tasks, err := o.engine.Query(ctx, MandatoryFilters(req), BuildOptionalFilters(norm), quota, trace)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("store sourcing cancelled: %w", ctxErr)
	}
	switch {
	case errors.Is(err, ErrStoreExhausted):
		monitoring.SourcingFailuresTotal.WithLabelValues("store_exhausted").Inc()
		logger.FromContext(ctx).Warn("content store exhausted", zap.String("subject", req.Subject), zap.Int("grade", req.Grade))
		return nil, nil
	case err != nil:
		span.RecordError(err)
		trace.add(StageStoreFailed, err.Error(), 0)
		monitoring.SourcingFailuresTotal.WithLabelValues("store").Inc()
		logger.FromContext(ctx).Error("content store query failed", zap.Error(err))
		return nil, nil
	}
	span.SetAttributes(attribute.Int("returned", len(tasks)))
	return tasks, nil
}

// TopicLabel 生成服务使用的主题名称，未指定主题时按学季/周合成
func TopicLabel(req model.GenerationRequest) string {
	switch {
	case req.HasTopic() && req.TopicLabel != "":
		return req.TopicLabel
	case req.HasTopic():
		return req.TopicID
	case req.HasQuarter() && req.Week > 0:
		return fmt.Sprintf("%s, grade %d, quarter %d, week %d", req.Subject, req.Grade, req.Quarter, req.Week)
	case req.HasQuarter():
		return fmt.Sprintf("%s, grade %d, quarter %d", req.Subject, req.Grade, req.Quarter)
	case req.TopicLabel != "":
		return req.TopicLabel
	}
	return fmt.Sprintf("%s, grade %d", req.Subject, req.Grade)
}

func typesLabel(n Normalized) string {
	if n.AnyTaskType {
		return model.AllSentinel
	}
	parts := make([]string, len(n.TaskTypes))
	for i, t := range n.TaskTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
