package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/repository"
	"worksheet_backend/internal/sourcing"
	"worksheet_backend/internal/util"
	"worksheet_backend/pkg/logger"
	"worksheet_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorksheetService 组卷、保存与查询
type WorksheetService struct {
	orchestrator  *sourcing.Orchestrator
	worksheetRepo *repository.WorksheetRepository
	taskRepo      *repository.TaskRepository
	storage       *StorageService

	mu       sync.RWMutex
	defaults config.SourcingConfig
}

func NewWorksheetService(
	orchestrator *sourcing.Orchestrator,
	worksheetRepo *repository.WorksheetRepository,
	taskRepo *repository.TaskRepository,
	storage *StorageService,
	cfg config.SourcingConfig,
) *WorksheetService {
	return &WorksheetService{
		orchestrator:  orchestrator,
		worksheetRepo: worksheetRepo,
		taskRepo:      taskRepo,
		storage:       storage,
		defaults:      cfg,
	}
}

// OrchestratorOptions 从配置得到组卷参数
func OrchestratorOptions(cfg config.SourcingConfig) sourcing.Options {
	opts := sourcing.DefaultOptions()
	if cfg.GenerationTimeoutSeconds > 0 {
		opts.GenerationTimeout = cfg.GenerationTimeout()
	}
	if cfg.MaxTaskCount > 0 {
		opts.MaxTaskCount = cfg.MaxTaskCount
	}
	return opts
}

// ApplyConfig 配置热更新回调
func (s *WorksheetService) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.defaults = cfg.Sourcing
	s.mu.Unlock()
	s.orchestrator.UpdateOptions(OrchestratorOptions(cfg.Sourcing))
	logger.Log.Info("Sourcing options reloaded",
		zap.Int("generation_timeout_seconds", cfg.Sourcing.GenerationTimeoutSeconds),
		zap.Int("max_task_count", cfg.Sourcing.MaxTaskCount),
	)
}

func (s *WorksheetService) sourcingDefaults() config.SourcingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Generate 组卷并保存；归档失败只记录日志
func (s *WorksheetService) Generate(ctx context.Context, creatorID uint, req model.GenerationRequest) (ws *model.Worksheet, err error) {
	ctx, span := tracing.Start(ctx, "worksheet.generate",
		attribute.String("subject", req.Subject),
		attribute.Int("grade", req.Grade),
		attribute.Int("task_count", req.TaskCount),
		attribute.Int("generation_percentage", req.GenerationPercentage),
	)
	defer func() { tracing.End(span, err) }()

	defaults := s.sourcingDefaults()
	if req.Language == "" {
		req.Language = defaults.DefaultLanguage
	}
	if req.Format == "" {
		req.Format = defaults.DefaultFormat
	}

	start := time.Now()
	res, err := s.orchestrator.Source(ctx, req)
	if err != nil {
		return nil, err
	}

	bundle, err := sourcing.Assemble(req, res)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("generated", bundle.GeneratedCount),
		attribute.Int("stored", bundle.StoredCount),
	)

	ws, err = NewWorksheetFromBundle(creatorID, req, bundle)
	if err != nil {
		return nil, err
	}
	if err := s.worksheetRepo.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("save worksheet: %w", err)
	}

	logger.FromContext(ctx).Info("Worksheet generated",
		zap.String("id", ws.ID),
		zap.Uint("creator_id", creatorID),
		zap.Int("requested", req.TaskCount),
		zap.Int("generated", bundle.GeneratedCount),
		zap.Int("stored", bundle.StoredCount),
		zap.Float64("fulfillment_ratio", bundle.FulfillmentRatio),
		zap.Duration("elapsed", time.Since(start)),
	)

	if defaults.ArchiveBundles && s.storage != nil {
		s.archive(ctx, ws, bundle)
	}
	return ws, nil
}

func (s *WorksheetService) archive(ctx context.Context, ws *model.Worksheet, bundle *sourcing.Bundle) {
	data, err := json.Marshal(struct {
		ID string `json:"id"`
		*sourcing.Bundle
	}{ID: ws.ID, Bundle: bundle})
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to encode worksheet archive", zap.String("id", ws.ID), zap.Error(err))
		return
	}

	key := ArchiveKey(ws.ID, ws.CreatedAt)
	url, err := s.storage.UploadJSON(ctx, key, data)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to archive worksheet", zap.String("id", ws.ID), zap.Error(err))
		return
	}
	if err := s.worksheetRepo.UpdateArchiveURL(ctx, ws.ID, url); err != nil {
		logger.FromContext(ctx).Warn("Failed to record archive url", zap.String("id", ws.ID), zap.Error(err))
		// 未登记的归档文件无人引用，直接删除
		if derr := s.storage.Delete(ctx, key); derr != nil {
			logger.FromContext(ctx).Warn("Failed to remove orphan archive", zap.String("key", key), zap.Error(derr))
		}
		return
	}
	ws.ArchiveURL = url
}

// NewWorksheetFromBundle 把组卷结果转换成持久化行
func NewWorksheetFromBundle(creatorID uint, req model.GenerationRequest, bundle *sourcing.Bundle) (*model.Worksheet, error) {
	tasks, err := json.Marshal(bundle.Tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	trace, err := json.Marshal(bundle.Trace)
	if err != nil {
		return nil, fmt.Errorf("encode trace: %w", err)
	}
	quota, err := json.Marshal(bundle.Quota)
	if err != nil {
		return nil, fmt.Errorf("encode quota: %w", err)
	}

	return &model.Worksheet{
		CreatorID:        creatorID,
		Subject:          req.Subject,
		Grade:            req.Grade,
		TopicLabel:       sourcing.TopicLabel(req),
		Format:           bundle.Format,
		RequestedCount:   req.TaskCount,
		GeneratedCount:   bundle.GeneratedCount,
		StoredCount:      bundle.StoredCount,
		FulfillmentRatio: bundle.FulfillmentRatio,
		FormatDowngraded: bundle.FormatDowngraded,
		Quota:            quota,
		Request:          []byte(bundle.Request),
		Tasks:            tasks,
		Trace:            trace,
	}, nil
}

// Get 练习卷只对其创建者可见；匿名创建的（creator_id 为 0）任何人可见。
// 匿名调用方的 creatorID 为 0，因此只能读到匿名练习卷
func (s *WorksheetService) Get(ctx context.Context, id string, creatorID uint) (*model.Worksheet, error) {
	ws, err := s.worksheetRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrWorksheetNotFound
		}
		return nil, err
	}
	if ws.CreatorID != 0 && ws.CreatorID != creatorID {
		return nil, util.ErrPermissionDenied
	}
	return ws, nil
}

func (s *WorksheetService) List(ctx context.Context, creatorID uint, page, limit int) ([]model.Worksheet, int64, error) {
	if page < 1 {
		page = util.DefaultPage
	}
	if limit < 1 {
		limit = util.DefaultLimit
	}
	if limit > util.MaxLimit {
		limit = util.MaxLimit
	}
	return s.worksheetRepo.List(ctx, creatorID, page, limit)
}

func (s *WorksheetService) PoolStats(ctx context.Context, subject string, grade int) (*repository.TaskPoolStats, error) {
	return s.taskRepo.PoolStats(ctx, subject, grade)
}
