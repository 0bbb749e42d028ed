package model

import (
	"encoding/json"
	"fmt"
)

// Task 练习卷中的一道题，来源于生成服务或题库。创建后不再修改。
type Task struct {
	Origin       Origin     `json:"origin"`
	Difficulty   Difficulty `json:"difficulty"`
	Question     string     `json:"question"`
	Content      Content    `json:"-"`
	ImageRef     string     `json:"imageRef,omitempty"`
	Explanation  string     `json:"explanation,omitempty"`
	TopicLabel   string     `json:"topicLabel,omitempty"`
	SubjectLabel string     `json:"subjectLabel,omitempty"`
	// SourceID 题库行 ID，生成题为空
	SourceID string `json:"sourceId,omitempty"`
}

// Type 题型完全由载荷决定
func (t Task) Type() TaskType {
	if t.Content == nil {
		return ""
	}
	return t.Content.TaskType()
}

type taskAlias Task

type taskJSON struct {
	taskAlias
	Type    TaskType        `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	if t.Content == nil {
		return nil, fmt.Errorf("task has no content")
	}
	raw, err := json.Marshal(t.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taskJSON{
		taskAlias: taskAlias(t),
		Type:      t.Type(),
		Content:   raw,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var v taskJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	content, err := DecodeContent(v.Type, v.Content)
	if err != nil {
		return err
	}
	*t = Task(v.taskAlias)
	t.Content = content
	return nil
}

// CountByOrigin 统计各来源题目数量
func CountByOrigin(tasks []Task) map[Origin]int {
	out := map[Origin]int{}
	for _, t := range tasks {
		out[t.Origin]++
	}
	return out
}
