package model

import "strings"

// TaskType 题型，封闭集合
type TaskType string

const (
	SingleChoice   TaskType = "single_choice"
	MultipleChoice TaskType = "multiple_choice"
	TrueFalse      TaskType = "true_false"
	ShortAnswer    TaskType = "short_answer"
	LongAnswer     TaskType = "long_answer"
	FillBlanks     TaskType = "fill_blanks"
	Matching       TaskType = "matching"
)

// AllTaskTypes 按固定顺序列出所有题型
var AllTaskTypes = []TaskType{
	SingleChoice,
	MultipleChoice,
	TrueFalse,
	ShortAnswer,
	LongAnswer,
	FillBlanks,
	Matching,
}

var validTaskTypes = map[TaskType]bool{
	SingleChoice:   true,
	MultipleChoice: true,
	TrueFalse:      true,
	ShortAnswer:    true,
	LongAnswer:     true,
	FillBlanks:     true,
	Matching:       true,
}

// ParseTaskType 接受 "single_choice"、"SINGLE_CHOICE"、"single-choice" 等写法
func ParseTaskType(s string) (TaskType, bool) {
	t := TaskType(normalizeCode(s))
	return t, validTaskTypes[t]
}

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var validDifficulties = map[Difficulty]bool{
	Easy:   true,
	Medium: true,
	Hard:   true,
}

func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(normalizeCode(s))
	return d, validDifficulties[d]
}

// Format 练习卷版式
type Format string

const (
	FormatStandard Format = "STANDARD"
	// FormatExam 结构化单选考试版式，仅当全部题型为单选时有效
	FormatExam     Format = "EXAM"
	FormatOlympiad Format = "OLYMPIAD"
)

var validFormats = map[Format]bool{
	FormatStandard: true,
	FormatExam:     true,
	FormatOlympiad: true,
}

func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	return f, validFormats[f]
}

// Tag 题库中 format_tag 列使用的小写值
func (f Format) Tag() string {
	return strings.ToLower(string(f))
}

type Origin string

const (
	OriginGenerated Origin = "GENERATED"
	OriginStored    Origin = "STORED"
)

// AllSentinel 表示“任意”难度或题型
const AllSentinel = "ALL"

func IsAllSentinel(s string) bool {
	v := strings.ToUpper(strings.TrimSpace(s))
	return v == AllSentinel || v == "ANY"
}

func normalizeCode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "-", "_")
}
