package sourcing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"worksheet_backend/internal/model"
)

// BlankMarker 规范化后的填空标记
const BlankMarker = "{{blank}}"

var (
	blankMarkerRe = regexp.MustCompile(`(?i)_{3,}|\{\{\s*blank\s*\}\}|\{\s*blank\s*\}|\[\s*blank\s*\]|\[\s*пропуск\s*\]|…|\.{3}`)
	listSepRe     = regexp.MustCompile(`[,;\n]+`)
	answerSepRe   = regexp.MustCompile(`[|;]`)
	pairSepRe     = regexp.MustCompile(`\s*(?:->|→|–|—|-|:|=)\s*`)
)

// ShapeStoredTask 把题库行转换成带类型载荷的题目：
// 填空标记统一为 {{blank}}，连线题的答案键展开为显式配对。
func ShapeStoredTask(row model.StoredTask) (model.Task, error) {
	content, question, err := shapeContent(row)
	if err != nil {
		return model.Task{}, fmt.Errorf("stored task %s: %w", row.ID, err)
	}
	if err := model.ValidateContent(content); err != nil {
		return model.Task{}, fmt.Errorf("stored task %s: %w", row.ID, err)
	}
	return model.Task{
		Origin:       model.OriginStored,
		Difficulty:   row.Difficulty,
		Question:     question,
		Content:      content,
		ImageRef:     row.ImageRef,
		Explanation:  row.Explanation,
		TopicLabel:   row.TopicLabel,
		SubjectLabel: row.SubjectLabel,
		SourceID:     row.ID,
	}, nil
}

func shapeContent(row model.StoredTask) (model.Content, string, error) {
	switch row.TaskType {
	case model.SingleChoice:
		options, err := stringList(row.Options)
		if err != nil {
			return nil, "", fmt.Errorf("options: %w", err)
		}
		idx, err := choiceIndex(row.Answer, options)
		if err != nil {
			return nil, "", err
		}
		return model.SingleChoiceContent{Options: options, CorrectIndex: idx}, row.Question, nil

	case model.MultipleChoice:
		options, err := stringList(row.Options)
		if err != nil {
			return nil, "", fmt.Errorf("options: %w", err)
		}
		var indices []int
		for _, tok := range splitList(row.Answer) {
			idx, err := choiceIndex(tok, options)
			if err != nil {
				return nil, "", err
			}
			indices = append(indices, idx)
		}
		return model.MultipleChoiceContent{Options: options, CorrectIndices: indices}, row.Question, nil

	case model.TrueFalse:
		v, err := parseBool(row.Answer)
		if err != nil {
			return nil, "", err
		}
		return model.TrueFalseContent{Answer: v}, row.Question, nil

	case model.ShortAnswer:
		variants, err := stringList(row.Variants)
		if err != nil {
			return nil, "", fmt.Errorf("variants: %w", err)
		}
		parts := strings.Split(row.Answer, "|")
		answer := strings.TrimSpace(parts[0])
		for _, p := range parts[1:] {
			if p = strings.TrimSpace(p); p != "" {
				variants = append(variants, p)
			}
		}
		return model.ShortAnswerContent{Answer: answer, AcceptableVariants: variants}, row.Question, nil

	case model.LongAnswer:
		return model.LongAnswerContent{Rubric: row.Rubric, SampleAnswer: strings.TrimSpace(row.Answer)}, row.Question, nil

	case model.FillBlanks:
		text, markers := NormalizeBlanks(row.Question)
		answers := splitAnswers(row.Answer)
		if markers == 0 {
			return nil, "", fmt.Errorf("fill blanks question has no blank marker")
		}
		if markers != len(answers) {
			return nil, "", fmt.Errorf("fill blanks has %d markers but %d answers", markers, len(answers))
		}
		blanks := make([]model.Blank, len(answers))
		for i, a := range answers {
			blanks[i] = model.Blank{Position: i, Answer: a}
		}
		return model.FillBlanksContent{Text: text, Blanks: blanks}, text, nil

	case model.Matching:
		left, err := stringList(row.LeftColumn)
		if err != nil {
			return nil, "", fmt.Errorf("left column: %w", err)
		}
		right, err := stringList(row.RightColumn)
		if err != nil {
			return nil, "", fmt.Errorf("right column: %w", err)
		}
		pairs, err := PairsFromKey(left, right, row.Answer)
		if err != nil {
			return nil, "", err
		}
		return model.MatchingContent{Pairs: pairs}, row.Question, nil
	}
	return nil, "", fmt.Errorf("unknown task type %q", row.TaskType)
}

// NormalizeBlanks 把各种填空写法替换为 BlankMarker，返回标记个数
func NormalizeBlanks(text string) (string, int) {
	count := 0
	out := blankMarkerRe.ReplaceAllStringFunc(text, func(string) string {
		count++
		return BlankMarker
	})
	return out, count
}

// PairsFromKey 把 "A-2, B-1" / "1-b; 2-a" 形式的答案键展开为配对。
// 左侧字母或数字（从 1 开始）定位左列，右侧同理定位右列。
// 答案键为空且两列等长时按行对齐。
func PairsFromKey(left, right []string, key string) ([]model.Pair, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		if len(left) == 0 || len(left) != len(right) {
			return nil, fmt.Errorf("matching has no answer key and columns differ in length")
		}
		pairs := make([]model.Pair, len(left))
		for i := range left {
			pairs[i] = model.Pair{Left: left[i], Right: right[i]}
		}
		return pairs, nil
	}

	var pairs []model.Pair
	for _, item := range splitList(key) {
		parts := pairSepRe.Split(item, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed answer key entry %q", item)
		}
		li, err := columnIndex(parts[0], len(left))
		if err != nil {
			return nil, fmt.Errorf("answer key %q: %w", item, err)
		}
		ri, err := columnIndex(parts[1], len(right))
		if err != nil {
			return nil, fmt.Errorf("answer key %q: %w", item, err)
		}
		pairs = append(pairs, model.Pair{Left: left[li], Right: right[ri]})
	}
	return pairs, nil
}

func columnIndex(tok string, size int) (int, error) {
	tok = strings.TrimSpace(tok)
	idx := -1
	if n, err := strconv.Atoi(tok); err == nil {
		idx = n - 1
	} else if r := []rune(strings.ToUpper(tok)); len(r) == 1 {
		idx = letterIndex(r[0])
	}
	if idx < 0 || idx >= size {
		return 0, fmt.Errorf("column reference %q out of range", tok)
	}
	return idx, nil
}

// choiceIndex 题库答案可以是下标（从 0 开始）、字母或选项原文
func choiceIndex(answer string, options []string) (int, error) {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 0 || n >= len(options) {
			return 0, fmt.Errorf("answer index %d out of range", n)
		}
		return n, nil
	}
	if r := []rune(strings.ToUpper(answer)); len(r) == 1 {
		if idx := letterIndex(r[0]); idx >= 0 && idx < len(options) {
			return idx, nil
		}
	}
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("answer %q does not match any option", answer)
}

func letterIndex(r rune) int {
	switch {
	case r >= 'A' && r <= 'Z':
		return int(r - 'A')
	case r >= 'А' && r <= 'Я':
		return int(r - 'А')
	}
	return -1
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "да", "верно", "t":
		return true, nil
	case "false", "0", "no", "нет", "неверно", "f":
		return false, nil
	}
	return false, fmt.Errorf("cannot read %q as true/false", s)
}

func stringList(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range listSepRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitAnswers 填空答案支持 JSON 数组或 | ; 分隔
func splitAnswers(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
	}
	var out []string
	for _, p := range answerSepRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
