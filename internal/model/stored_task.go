package model

import (
	"gorm.io/datatypes"
)

// StoredTask 题库中预先编写的题目
//
// Answer 按题型存放：单选为下标，多选为 "0,2"，判断为 true/false，
// 连线为 "A-2, B-1" 形式的答案键，其余为文本。
// swagger:model StoredTask
type StoredTask struct {
	UUIDBase
	Subject     string     `gorm:"size:50;index:idx_stored_tasks_scope" json:"subject"`
	Grade       int        `gorm:"index:idx_stored_tasks_scope" json:"grade"`
	TopicID     string     `gorm:"size:64;index" json:"topicId"`
	Quarter     int        `gorm:"default:0" json:"quarter"`
	Week        int        `gorm:"default:0" json:"week"`
	TaskType    TaskType   `gorm:"size:30;index" json:"taskType"`
	Difficulty  Difficulty `gorm:"size:10" json:"difficulty"`
	FormatTag   string     `gorm:"size:30;default:'standard'" json:"formatTag"`
	Language    string     `gorm:"size:10;default:'ru'" json:"language"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	IsPublished bool       `gorm:"not null" json:"isPublished"`
	Question    string     `gorm:"type:text;not null" json:"question"`
	Answer      string     `gorm:"type:text" json:"answer"`
	Rubric      string     `gorm:"type:text" json:"rubric,omitempty"`

	Options     datatypes.JSON `json:"options,omitempty"`
	Variants    datatypes.JSON `json:"variants,omitempty"`
	LeftColumn  datatypes.JSON `json:"leftColumn,omitempty"`
	RightColumn datatypes.JSON `json:"rightColumn,omitempty"`

	ImageRef     string `gorm:"size:255" json:"imageRef,omitempty"`
	Explanation  string `gorm:"type:text" json:"explanation,omitempty"`
	TopicLabel   string `gorm:"size:255" json:"topicLabel,omitempty"`
	SubjectLabel string `gorm:"size:100" json:"subjectLabel,omitempty"`
}

func (StoredTask) TableName() string {
	return "stored_tasks"
}
