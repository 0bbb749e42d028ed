package model

import (
	"encoding/json"
	"fmt"
)

// Content 题目内容载荷。每种题型对应唯一一个实现，题型由载荷决定。
type Content interface {
	TaskType() TaskType
	isContent()
}

type SingleChoiceContent struct {
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type MultipleChoiceContent struct {
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correctIndices"`
}

type TrueFalseContent struct {
	Answer bool `json:"answer"`
}

type ShortAnswerContent struct {
	Answer             string   `json:"answer"`
	AcceptableVariants []string `json:"acceptableVariants,omitempty"`
}

type LongAnswerContent struct {
	Rubric       string   `json:"rubric"`
	SampleAnswer string   `json:"sampleAnswer,omitempty"`
	Criteria     []string `json:"criteria,omitempty"`
}

// Blank 填空位置，Position 为文本中第几个空（从 0 开始）
type Blank struct {
	Position int    `json:"position"`
	Answer   string `json:"answer"`
}

type FillBlanksContent struct {
	Text   string  `json:"text"`
	Blanks []Blank `json:"blanks"`
}

type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type MatchingContent struct {
	Pairs []Pair `json:"pairs"`
}

func (SingleChoiceContent) TaskType() TaskType   { return SingleChoice }
func (MultipleChoiceContent) TaskType() TaskType { return MultipleChoice }
func (TrueFalseContent) TaskType() TaskType      { return TrueFalse }
func (ShortAnswerContent) TaskType() TaskType    { return ShortAnswer }
func (LongAnswerContent) TaskType() TaskType     { return LongAnswer }
func (FillBlanksContent) TaskType() TaskType     { return FillBlanks }
func (MatchingContent) TaskType() TaskType       { return Matching }

func (SingleChoiceContent) isContent()   {}
func (MultipleChoiceContent) isContent() {}
func (TrueFalseContent) isContent()      {}
func (ShortAnswerContent) isContent()    {}
func (LongAnswerContent) isContent()     {}
func (FillBlanksContent) isContent()     {}
func (MatchingContent) isContent()       {}

// DecodeContent 按题型解析 JSON 载荷
func DecodeContent(t TaskType, raw json.RawMessage) (Content, error) {
	var (
		c   Content
		err error
	)
	switch t {
	case SingleChoice:
		var v SingleChoiceContent
		err = json.Unmarshal(raw, &v)
		c = v
	case MultipleChoice:
		var v MultipleChoiceContent
		err = json.Unmarshal(raw, &v)
		c = v
	case TrueFalse:
		var v TrueFalseContent
		err = json.Unmarshal(raw, &v)
		c = v
	case ShortAnswer:
		var v ShortAnswerContent
		err = json.Unmarshal(raw, &v)
		c = v
	case LongAnswer:
		var v LongAnswerContent
		err = json.Unmarshal(raw, &v)
		c = v
	case FillBlanks:
		var v FillBlanksContent
		err = json.Unmarshal(raw, &v)
		c = v
	case Matching:
		var v MatchingContent
		err = json.Unmarshal(raw, &v)
		c = v
	default:
		return nil, fmt.Errorf("unknown task type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	if err := ValidateContent(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidateContent 检查载荷自身是否完整
func ValidateContent(c Content) error {
	switch v := c.(type) {
	case SingleChoiceContent:
		if len(v.Options) < 2 {
			return fmt.Errorf("single choice needs at least 2 options")
		}
		if v.CorrectIndex < 0 || v.CorrectIndex >= len(v.Options) {
			return fmt.Errorf("single choice correct index %d out of range", v.CorrectIndex)
		}
	case MultipleChoiceContent:
		if len(v.Options) < 2 {
			return fmt.Errorf("multiple choice needs at least 2 options")
		}
		if len(v.CorrectIndices) == 0 {
			return fmt.Errorf("multiple choice needs at least one correct index")
		}
		for _, i := range v.CorrectIndices {
			if i < 0 || i >= len(v.Options) {
				return fmt.Errorf("multiple choice correct index %d out of range", i)
			}
		}
	case TrueFalseContent:
	case ShortAnswerContent:
		if v.Answer == "" {
			return fmt.Errorf("short answer is empty")
		}
	case LongAnswerContent:
		if v.Rubric == "" && v.SampleAnswer == "" {
			return fmt.Errorf("long answer needs a rubric or sample answer")
		}
	case FillBlanksContent:
		if len(v.Blanks) == 0 {
			return fmt.Errorf("fill blanks has no blanks")
		}
	case MatchingContent:
		if len(v.Pairs) == 0 {
			return fmt.Errorf("matching has no pairs")
		}
	case nil:
		return fmt.Errorf("content is nil")
	default:
		return fmt.Errorf("unsupported content %T", c)
	}
	return nil
}
