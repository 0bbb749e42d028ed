package model

import (
	"gorm.io/datatypes"
)

// Worksheet 组卷结果，连同请求快照与诊断轨迹一起保存
// swagger:model Worksheet
type Worksheet struct {
	UUIDBase
	CreatorID        uint           `gorm:"index" json:"creatorId"`
	Subject          string         `gorm:"size:50;index" json:"subject"`
	Grade            int            `json:"grade"`
	TopicLabel       string         `gorm:"size:255" json:"topicLabel"`
	Format           Format         `gorm:"size:20" json:"format"`
	RequestedCount   int            `json:"requestedCount"`
	GeneratedCount   int            `json:"generatedCount"`
	StoredCount      int            `json:"storedCount"`
	FulfillmentRatio float64        `json:"fulfillmentRatio"`
	FormatDowngraded bool           `json:"formatDowngraded"`
	Quota            datatypes.JSON `json:"quota"`
	Request          datatypes.JSON `json:"request"`
	Tasks            datatypes.JSON `json:"tasks"`
	Trace            datatypes.JSON `json:"trace"`
	ArchiveURL       string         `gorm:"size:255" json:"archiveUrl,omitempty"`
}

func (Worksheet) TableName() string {
	return "worksheets"
}
