package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/sourcing"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// File 题库导入文件
type File struct {
	Defaults Entry   `yaml:"defaults"`
	Tasks    []Entry `yaml:"tasks"`
}

// Entry 一道题；未填写的字段从 defaults 继承
type Entry struct {
	Subject      string   `yaml:"subject"`
	SubjectLabel string   `yaml:"subjectLabel"`
	Grade        int      `yaml:"grade"`
	TopicID      string   `yaml:"topicId"`
	TopicLabel   string   `yaml:"topicLabel"`
	Quarter      int      `yaml:"quarter"`
	Week         int      `yaml:"week"`
	TaskType     string   `yaml:"taskType"`
	Difficulty   string   `yaml:"difficulty"`
	Format       string   `yaml:"format"`
	Language     string   `yaml:"language"`
	Active       *bool    `yaml:"active"`
	Published    *bool    `yaml:"published"`
	Question     string   `yaml:"question"`
	Answer       string   `yaml:"answer"`
	Rubric       string   `yaml:"rubric"`
	Options      []string `yaml:"options"`
	Variants     []string `yaml:"variants"`
	LeftColumn   []string `yaml:"leftColumn"`
	RightColumn  []string `yaml:"rightColumn"`
	ImageRef     string   `yaml:"imageRef"`
	Explanation  string   `yaml:"explanation"`
}

// Load 解析导入文件，并用组卷时相同的转换逻辑校验每道题
func Load(r io.Reader) ([]model.StoredTask, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	out := make([]model.StoredTask, 0, len(f.Tasks))
	for i, e := range f.Tasks {
		row, err := e.withDefaults(f.Defaults).toStoredTask()
		if err != nil {
			return nil, fmt.Errorf("task #%d: %w", i+1, err)
		}
		if _, err := sourcing.ShapeStoredTask(row); err != nil {
			return nil, fmt.Errorf("task #%d: %w", i+1, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (e Entry) withDefaults(d Entry) Entry {
	if e.Subject == "" {
		e.Subject = d.Subject
	}
	if e.SubjectLabel == "" {
		e.SubjectLabel = d.SubjectLabel
	}
	if e.Grade == 0 {
		e.Grade = d.Grade
	}
	if e.TopicID == "" {
		e.TopicID = d.TopicID
	}
	if e.TopicLabel == "" {
		e.TopicLabel = d.TopicLabel
	}
	if e.Quarter == 0 {
		e.Quarter = d.Quarter
	}
	if e.Week == 0 {
		e.Week = d.Week
	}
	if e.Difficulty == "" {
		e.Difficulty = d.Difficulty
	}
	if e.Format == "" {
		e.Format = d.Format
	}
	if e.Language == "" {
		e.Language = d.Language
	}
	if e.Active == nil {
		e.Active = d.Active
	}
	if e.Published == nil {
		e.Published = d.Published
	}
	return e
}

func (e Entry) toStoredTask() (model.StoredTask, error) {
	if e.Subject == "" || e.Grade == 0 {
		return model.StoredTask{}, errors.New("subject and grade are required")
	}
	taskType, ok := model.ParseTaskType(e.TaskType)
	if !ok {
		return model.StoredTask{}, fmt.Errorf("unknown task type %q", e.TaskType)
	}
	difficulty := model.Medium
	if e.Difficulty != "" {
		if difficulty, ok = model.ParseDifficulty(e.Difficulty); !ok {
			return model.StoredTask{}, fmt.Errorf("unknown difficulty %q", e.Difficulty)
		}
	}
	format := model.FormatStandard
	if e.Format != "" {
		if format, ok = model.ParseFormat(e.Format); !ok {
			return model.StoredTask{}, fmt.Errorf("unknown format %q", e.Format)
		}
	}
	language := strings.ToLower(strings.TrimSpace(e.Language))
	if language == "" {
		language = "ru"
	}

	row := model.StoredTask{
		Subject:      strings.TrimSpace(e.Subject),
		SubjectLabel: e.SubjectLabel,
		Grade:        e.Grade,
		TopicID:      e.TopicID,
		TopicLabel:   e.TopicLabel,
		Quarter:      e.Quarter,
		Week:         e.Week,
		TaskType:     taskType,
		Difficulty:   difficulty,
		FormatTag:    format.Tag(),
		Language:     language,
		IsActive:     e.Active == nil || *e.Active,
		IsPublished:  e.Published == nil || *e.Published,
		Question:     e.Question,
		Answer:       e.Answer,
		Rubric:       e.Rubric,
		ImageRef:     e.ImageRef,
		Explanation:  e.Explanation,
	}

	var err error
	if row.Options, err = jsonList(e.Options); err != nil {
		return model.StoredTask{}, err
	}
	if row.Variants, err = jsonList(e.Variants); err != nil {
		return model.StoredTask{}, err
	}
	if row.LeftColumn, err = jsonList(e.LeftColumn); err != nil {
		return model.StoredTask{}, err
	}
	if row.RightColumn, err = jsonList(e.RightColumn); err != nil {
		return model.StoredTask{}, err
	}
	return row, nil
}

func jsonList(items []string) (datatypes.JSON, error) {
	if len(items) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
