package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/sourcing"
	"worksheet_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	candidateKeyPrefix = "worksheet:candidates:"
	candidateGenKey    = "worksheet:candidates:gen"
	loadBatchSize      = 500
)

// 逻辑字段到列名的白名单，未列出的字段一律拒绝
var taskColumns = map[sourcing.Field]string{
	sourcing.FieldIsActive:    "is_active",
	sourcing.FieldIsPublished: "is_published",
	sourcing.FieldGrade:       "grade",
	sourcing.FieldSubject:     "subject",
	sourcing.FieldTopicID:     "topic_id",
	sourcing.FieldQuarter:     "quarter",
	sourcing.FieldWeek:        "week",
	sourcing.FieldDifficulty:  "difficulty",
	sourcing.FieldTaskType:    "task_type",
	sourcing.FieldFormatTag:   "format_tag",
	sourcing.FieldLanguage:    "language",
}

// TaskRepository 题库，实现 sourcing.Store
type TaskRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewTaskRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *TaskRepository {
	return &TaskRepository{DB: db, Redis: rdb, TTL: ttl}
}

// TaskPoolCount 按题型与难度的分组计数
type TaskPoolCount struct {
	TaskType   model.TaskType   `json:"taskType"`
	Difficulty model.Difficulty `json:"difficulty"`
	Count      int64            `json:"count"`
}

// TaskPoolStats 某学科年级下可用题目的分布
type TaskPoolStats struct {
	Subject      string                     `json:"subject"`
	Grade        int                        `json:"grade"`
	Total        int64                      `json:"total"`
	ByType       map[model.TaskType]int64   `json:"byType"`
	ByDifficulty map[model.Difficulty]int64 `json:"byDifficulty"`
	Groups       []TaskPoolCount            `json:"groups"`
}

func filterExpression(f sourcing.Filter) (clause.Expression, error) {
	col, ok := taskColumns[f.Field]
	if !ok {
		return nil, fmt.Errorf("unsupported filter field %q", f.Field)
	}
	column := clause.Column{Name: col}
	switch f.Operator {
	case sourcing.OpEq:
		return clause.Eq{Column: column, Value: f.Value}, nil
	case sourcing.OpIn:
		values, ok := f.Value.([]string)
		if !ok {
			return nil, fmt.Errorf("filter %s: in operator expects []string, got %T", f.Field, f.Value)
		}
		in := clause.IN{Column: column, Values: make([]interface{}, len(values))}
		for i, v := range values {
			in.Values[i] = v
		}
		return in, nil
	}
	return nil, fmt.Errorf("unsupported filter operator %q", f.Operator)
}

func (r *TaskRepository) scoped(ctx context.Context, filters []sourcing.Filter) (*gorm.DB, error) {
	tx := r.DB.WithContext(ctx).Model(&model.StoredTask{})
	for _, f := range filters {
		expr, err := filterExpression(f)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr)
	}
	return tx, nil
}

// Candidates 返回匹配的全部 ID，按 ID 排序；启用 Redis 时按条件缓存
func (r *TaskRepository) Candidates(ctx context.Context, q sourcing.StoreQuery) ([]string, error) {
	key, cached := r.cacheKey(ctx, q)
	if cached {
		if ids, ok := r.cachedCandidates(ctx, key); ok {
			return ids, nil
		}
	}

	tx, err := r.scoped(ctx, q.Filters)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := tx.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	if cached {
		if data, err := json.Marshal(ids); err == nil {
			if err := r.Redis.Set(ctx, key, data, r.TTL).Err(); err != nil {
				logger.Log.Warn("Failed to cache candidates", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return ids, nil
}

// cacheKey 键包含题库版本号，写入题目后旧缓存自然失效
func (r *TaskRepository) cacheKey(ctx context.Context, q sourcing.StoreQuery) (string, bool) {
	if r.Redis == nil || r.TTL <= 0 {
		return "", false
	}
	gen, err := r.Redis.Get(ctx, candidateGenKey).Int64()
	if err != nil && err != redis.Nil {
		logger.Log.Warn("Candidate cache unavailable", zap.Error(err))
		return "", false
	}
	sum := blake2b.Sum256([]byte(q.String()))
	return candidateKeyPrefix + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:16]), true
}

func (r *TaskRepository) cachedCandidates(ctx context.Context, key string) ([]string, bool) {
	data, err := r.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Failed to read candidate cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (r *TaskRepository) invalidateCandidates(ctx context.Context) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Incr(ctx, candidateGenKey).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate candidate cache", zap.Error(err))
	}
}

// Load 按传入顺序返回存在的行，缺失的 ID 直接跳过
func (r *TaskRepository) Load(ctx context.Context, ids []string) ([]model.StoredTask, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[string]model.StoredTask, len(ids))
	for start := 0; start < len(ids); start += loadBatchSize {
		end := start + loadBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		var rows []model.StoredTask
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids[start:end]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			byID[row.ID] = row
		}
	}

	out := make([]model.StoredTask, 0, len(byID))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.StoredTask, error) {
	var task model.StoredTask
	err := r.DB.WithContext(ctx).First(&task, "id = ?", id).Error
	return &task, err
}

func (r *TaskRepository) Create(ctx context.Context, task *model.StoredTask) error {
	if err := r.DB.WithContext(ctx).Create(task).Error; err != nil {
		return err
	}
	r.invalidateCandidates(ctx)
	return nil
}

// CreateBatch 批量导入题目，整体在一个事务中完成
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []model.StoredTask) error {
	if len(tasks) == 0 {
		return nil
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&tasks, 100).Error
	})
	if err != nil {
		return err
	}
	r.invalidateCandidates(ctx)
	return nil
}

// PoolStats 统计已上架题目，条件与组卷的基础条件一致
func (r *TaskRepository) PoolStats(ctx context.Context, subject string, grade int) (*TaskPoolStats, error) {
	tx, err := r.scoped(ctx, []sourcing.Filter{
		sourcing.Eq(sourcing.FieldIsActive, true),
		sourcing.Eq(sourcing.FieldIsPublished, true),
		sourcing.Eq(sourcing.FieldSubject, subject),
		sourcing.Eq(sourcing.FieldGrade, grade),
	})
	if err != nil {
		return nil, err
	}

	var groups []TaskPoolCount
	err = tx.Select("task_type, difficulty, COUNT(*) AS count").
		Group("task_type, difficulty").
		Order("task_type, difficulty").
		Scan(&groups).Error
	if err != nil {
		return nil, err
	}

	stats := &TaskPoolStats{
		Subject:      subject,
		Grade:        grade,
		ByType:       make(map[model.TaskType]int64),
		ByDifficulty: make(map[model.Difficulty]int64),
		Groups:       groups,
	}
	for _, g := range groups {
		stats.Total += g.Count
		stats.ByType[g.TaskType] += g.Count
		stats.ByDifficulty[g.Difficulty] += g.Count
	}
	return stats, nil
}
