package sourcing

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
	"worksheet_backend/internal/model"
	"worksheet_backend/pkg/logger"
	"worksheet_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// lockedRand rand.Rand 本身不是并发安全的
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{r: r}
}

// shuffled 返回 ids 的均匀随机排列。先排序，保证同一种子下结果与存储返回顺序无关。
func (l *lockedRand) shuffled(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	l.mu.Lock()
	l.r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	l.mu.Unlock()
	return out
}

// RelaxationEngine 逐级放宽条件查询题库，直到凑够配额或条件用尽
type RelaxationEngine struct {
	store Store
	rnd   *lockedRand
}

func NewRelaxationEngine(store Store, r *rand.Rand) *RelaxationEngine {
	return &RelaxationEngine{store: store, rnd: newLockedRand(r)}
}

// Query 按五级顺序查询，第一个匹配数 >= quota 的级别即停止；级别不会被跳过。
// 每级都从该级全部匹配中无放回均匀抽取至多 quota 道题。
// 抽中的行有无法转换的时，继续到下一级补足，已抽过的行不会再抽。
// 第五级仍无匹配时返回 ErrStoreExhausted。
func (e *RelaxationEngine) Query(ctx context.Context, base []Filter, opt OptionalFilters, quota int, trace *Trace) ([]model.Task, error) {
	if quota <= 0 {
		return nil, nil
	}

	levels := Levels(base, opt)
	tasks := make([]model.Task, 0, quota)
	seen := make(map[string]bool)
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q := StoreQuery{Level: level.Index, Filters: level.Filters}
		ids, err := e.store.Candidates(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("store level %d: %w", level.Index, err)
		}

		trace.add(storeLevelStage(level.Index), fmt.Sprintf("%s %s", level.Name, q), len(ids))
		monitoring.RelaxationLevelTotal.WithLabelValues(fmt.Sprint(level.Index)).Inc()
		logger.Log.Info("relaxation level queried",
			zap.Int("level", level.Index),
			zap.String("name", level.Name),
			zap.String("filters", q.String()),
			zap.Int("matches", len(ids)),
			zap.Int("quota", quota),
		)

		last := i == len(levels)-1
		if last && len(ids) == 0 && len(tasks) == 0 {
			trace.add(StageStoreExhausted, "no content at the most permissive level", 0)
			return nil, ErrStoreExhausted
		}

		fresh := make([]string, 0, len(ids))
		for _, id := range ids {
			if !seen[id] {
				fresh = append(fresh, id)
			}
		}
		need := quota - len(tasks)
		if len(fresh) < need && !last {
			continue
		}

		drawn, err := e.draw(ctx, fresh, need, seen, trace)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, drawn...)
		if len(tasks) >= quota {
			break
		}
	}
	return tasks, nil
}

// draw 按随机排列依次加载，跳过无法转换的行，直到凑够 quota 或候选用尽
func (e *RelaxationEngine) draw(ctx context.Context, ids []string, quota int, seen map[string]bool, trace *Trace) ([]model.Task, error) {
	order := e.rnd.shuffled(ids)
	tasks := make([]model.Task, 0, quota)
	skipped := 0

	for len(order) > 0 && len(tasks) < quota {
		n := quota - len(tasks)
		if n > len(order) {
			n = len(order)
		}
		batch := order[:n]
		order = order[n:]

		rows, err := e.store.Load(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("load stored tasks: %w", err)
		}
		byID := make(map[string]model.StoredTask, len(rows))
		for _, row := range rows {
			byID[row.ID] = row
		}
		for _, id := range batch {
			seen[id] = true
			row, ok := byID[id]
			if !ok {
				skipped++
				continue
			}
			task, err := ShapeStoredTask(row)
			if err != nil {
				skipped++
				logger.Log.Warn("skip malformed stored task", zap.String("id", id), zap.Error(err))
				continue
			}
			tasks = append(tasks, task)
		}
	}

	if skipped > 0 {
		trace.add(StageStoreShapeSkipped, "rows that could not be shaped", skipped)
	}
	return tasks, nil
}
