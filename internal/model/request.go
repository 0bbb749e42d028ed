package model

// GenerationRequest 一次练习卷生成的输入，构造后不再修改。
//
// TopicID 非空时忽略 Quarter/Week；两者都为空时只按学科+年级取题。
// Difficulties 与 TaskTypes 保留调用方原始写法，由 sourcing 包统一规范化：
// 空或 ["ALL"] 表示任意。
type GenerationRequest struct {
	Subject              string   `json:"subject"`
	Grade                int      `json:"grade"`
	TopicID              string   `json:"topicId,omitempty"`
	TopicLabel           string   `json:"topicLabel,omitempty"`
	Quarter              int      `json:"quarter,omitempty"`
	Week                 int      `json:"week,omitempty"`
	TaskCount            int      `json:"taskCount"`
	Difficulties         []string `json:"difficulties"`
	TaskTypes            []string `json:"taskTypes"`
	Format               string   `json:"format"`
	GenerationPercentage int      `json:"generationPercentage"`
	CustomInstructions   string   `json:"customInstructions,omitempty"`
	Language             string   `json:"language"`
}

// HasTopic 是否按具体主题取题
func (r GenerationRequest) HasTopic() bool {
	return r.TopicID != ""
}

// HasQuarter 未指定主题时是否按学季（可选周）取题
func (r GenerationRequest) HasQuarter() bool {
	return !r.HasTopic() && r.Quarter > 0
}
