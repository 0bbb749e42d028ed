package sourcing

import (
	"context"
	"fmt"
	"sync"
	"worksheet_backend/internal/model"

	"gorm.io/datatypes"
)

// memStore 内存题库，按 Filter 逐条求值并记录收到的查询
type memStore struct {
	mu      sync.Mutex
	rows    []model.StoredTask
	queries []StoreQuery
	loads   int
	err     error
}

func newMemStore(rows ...model.StoredTask) *memStore {
	return &memStore{rows: rows}
}

func (s *memStore) Candidates(ctx context.Context, q StoreQuery) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	for _, row := range s.rows {
		if matchesAll(row, q.Filters) {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (s *memStore) Load(ctx context.Context, ids []string) ([]model.StoredTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	byID := make(map[string]model.StoredTask, len(s.rows))
	for _, row := range s.rows {
		byID[row.ID] = row
	}
	out := make([]model.StoredTask, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memStore) levels() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.queries))
	for i, q := range s.queries {
		out[i] = q.Level
	}
	return out
}

func matchesAll(row model.StoredTask, filters []Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row model.StoredTask, f Filter) bool {
	var actual any
	switch f.Field {
	case FieldIsActive:
		actual = row.IsActive
	case FieldIsPublished:
		actual = row.IsPublished
	case FieldGrade:
		actual = row.Grade
	case FieldSubject:
		actual = row.Subject
	case FieldTopicID:
		actual = row.TopicID
	case FieldQuarter:
		actual = row.Quarter
	case FieldWeek:
		actual = row.Week
	case FieldDifficulty:
		actual = string(row.Difficulty)
	case FieldTaskType:
		actual = string(row.TaskType)
	case FieldFormatTag:
		actual = row.FormatTag
	case FieldLanguage:
		actual = row.Language
	default:
		panic(fmt.Sprintf("unexpected field %s", f.Field))
	}
	switch f.Operator {
	case OpEq:
		return fmt.Sprint(actual) == fmt.Sprint(f.Value)
	case OpIn:
		for _, v := range f.Value.([]string) {
			if fmt.Sprint(actual) == v {
				return true
			}
		}
	}
	return false
}

// fakeGenerator 返回预设数量的题目
type fakeGenerator struct {
	mu    sync.Mutex
	count int
	err   error
	block bool
	calls []GenerationSpec
}

func (g *fakeGenerator) Generate(ctx context.Context, spec GenerationSpec) (GenerationOutput, error) {
	g.mu.Lock()
	g.calls = append(g.calls, spec)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return GenerationOutput{}, ctx.Err()
	}
	if g.err != nil {
		return GenerationOutput{}, g.err
	}
	n := g.count
	if n > spec.Count {
		n = spec.Count
	}
	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i] = model.Task{
			Difficulty: spec.Difficulty,
			Question:   fmt.Sprintf("generated #%d", i+1),
			Content:    model.ShortAnswerContent{Answer: fmt.Sprint(i)},
		}
	}
	return GenerationOutput{Tasks: tasks, Diagnostics: map[string]any{"returned": n}}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type rowOpt func(*model.StoredTask)

// storedRow 默认是 math 5 年级、已上架的简单单选题
func storedRow(id string, opts ...rowOpt) model.StoredTask {
	row := model.StoredTask{
		Subject:     "math",
		Grade:       5,
		TopicID:     "fractions",
		Quarter:     2,
		Week:        1,
		TaskType:    model.SingleChoice,
		Difficulty:  model.Easy,
		FormatTag:   "standard",
		Language:    "ru",
		IsActive:    true,
		IsPublished: true,
		Question:    "question " + id,
		Answer:      "A",
		Options:     datatypes.JSON(`["1","2","3"]`),
	}
	row.ID = id
	for _, opt := range opts {
		opt(&row)
	}
	return row
}

func withType(t model.TaskType) rowOpt {
	return func(r *model.StoredTask) {
		r.TaskType = t
		switch t {
		case model.TrueFalse:
			r.Answer = "true"
		case model.ShortAnswer:
			r.Answer = "42"
		}
	}
}

func withDifficulty(d model.Difficulty) rowOpt {
	return func(r *model.StoredTask) { r.Difficulty = d }
}

func withFormat(tag string) rowOpt {
	return func(r *model.StoredTask) { r.FormatTag = tag }
}

func withLanguage(lang string) rowOpt {
	return func(r *model.StoredTask) { r.Language = lang }
}

func unpublished() rowOpt {
	return func(r *model.StoredTask) { r.IsPublished = false }
}

func rows(prefix string, n int, opts ...rowOpt) []model.StoredTask {
	out := make([]model.StoredTask, n)
	for i := range out {
		out[i] = storedRow(fmt.Sprintf("%s-%02d", prefix, i), opts...)
	}
	return out
}

func concat(groups ...[]model.StoredTask) []model.StoredTask {
	var out []model.StoredTask
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// baseRequest math 5 年级 fractions 主题的简单单选
func baseRequest() model.GenerationRequest {
	return model.GenerationRequest{
		Subject:      "math",
		Grade:        5,
		TopicID:      "fractions",
		TaskCount:    10,
		Difficulties: []string{"easy"},
		TaskTypes:    []string{"single_choice"},
		Format:       "STANDARD",
		Language:     "ru",
	}
}

// generatorFunc 以函数实现 GenerationClient
type generatorFunc func(ctx context.Context, spec GenerationSpec) (GenerationOutput, error)

func (f generatorFunc) Generate(ctx context.Context, spec GenerationSpec) (GenerationOutput, error) {
	return f(ctx, spec)
}
