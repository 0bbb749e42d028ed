package sourcing

import (
	"fmt"
	"strings"
	"worksheet_backend/internal/model"
)

// Field 题库查询的逻辑字段，由存储实现映射到实际列
type Field string

const (
	FieldIsActive    Field = "is_active"
	FieldIsPublished Field = "is_published"
	FieldGrade       Field = "grade"
	FieldSubject     Field = "subject"
	FieldTopicID     Field = "topic_id"
	FieldQuarter     Field = "quarter"
	FieldWeek        Field = "week"
	FieldDifficulty  Field = "difficulty"
	FieldTaskType    Field = "task_type"
	FieldFormatTag   Field = "format_tag"
	FieldLanguage    Field = "language"
)

type Operator string

const (
	OpEq Operator = "eq"
	OpIn Operator = "in"
)

// Filter 结构化过滤条件，参数化由存储实现负责
type Filter struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Operator, f.Value)
}

func Eq(field Field, value any) Filter {
	return Filter{Field: field, Operator: OpEq, Value: value}
}

func In[T ~string](field Field, values []T) Filter {
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = string(v)
	}
	return Filter{Field: field, Operator: OpIn, Value: vs}
}

// StoreQuery 一次题库候选查询
type StoreQuery struct {
	Level   int
	Filters []Filter
}

func (q StoreQuery) String() string {
	parts := make([]string, len(q.Filters))
	for i, f := range q.Filters {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RelaxationLevel 放宽序列中的一级，后一级匹配集合是前一级的超集
type RelaxationLevel struct {
	Index   int
	Name    string
	Filters []Filter
}

// OptionalFilters 可被逐级放宽的条件，nil 表示调用方本就不限
type OptionalFilters struct {
	TaskType   *Filter
	Difficulty *Filter
	Format     *Filter
	// Language 只在最后一级放开
	Language *Filter
}

// MandatoryFilters 永不放宽的基础条件
func MandatoryFilters(req model.GenerationRequest) []Filter {
	filters := []Filter{
		Eq(FieldIsActive, true),
		Eq(FieldIsPublished, true),
		Eq(FieldGrade, req.Grade),
		Eq(FieldSubject, req.Subject),
	}
	switch {
	case req.HasTopic():
		filters = append(filters, Eq(FieldTopicID, req.TopicID))
	case req.HasQuarter():
		filters = append(filters, Eq(FieldQuarter, req.Quarter))
		if req.Week > 0 {
			filters = append(filters, Eq(FieldWeek, req.Week))
		}
	}
	return filters
}

// BuildOptionalFilters 根据规范化结果构造可放宽条件
func BuildOptionalFilters(n Normalized) OptionalFilters {
	var opt OptionalFilters
	if !n.AnyTaskType && len(n.TaskTypes) > 0 {
		f := In(FieldTaskType, n.TaskTypes)
		opt.TaskType = &f
	}
	if len(n.StoreDifficulties) > 0 {
		f := In(FieldDifficulty, n.StoreDifficulties)
		opt.Difficulty = &f
	}
	if n.Format != "" {
		f := Eq(FieldFormatTag, n.Format.Tag())
		opt.Format = &f
	}
	if n.Language != "" {
		f := Eq(FieldLanguage, n.Language)
		opt.Language = &f
	}
	return opt
}

// Levels 生成五级放宽序列：
// 1 全部条件，2 去题型，3 再去难度，4 再去版式，5 仅基础条件（同时放开语言）。
// 语言放在最后一级才放开：换了语言的题目最不能直接用，
// 而且若语言不参与放宽，第 4 级与第 5 级的条件会完全相同。
func Levels(base []Filter, opt OptionalFilters) []RelaxationLevel {
	build := func(extra ...*Filter) []Filter {
		out := append([]Filter(nil), base...)
		for _, f := range extra {
			if f != nil {
				out = append(out, *f)
			}
		}
		return out
	}
	return []RelaxationLevel{
		{Index: 1, Name: "exact", Filters: build(opt.TaskType, opt.Difficulty, opt.Format, opt.Language)},
		{Index: 2, Name: "relax_task_type", Filters: build(opt.Difficulty, opt.Format, opt.Language)},
		{Index: 3, Name: "relax_difficulty", Filters: build(opt.Format, opt.Language)},
		{Index: 4, Name: "relax_format", Filters: build(opt.Language)},
		{Index: 5, Name: "base", Filters: build()},
	}
}
