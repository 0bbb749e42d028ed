package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/sourcing"
	"worksheet_backend/pkg/logger"
	"worksheet_backend/pkg/tracing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultAIModel = "gpt-4o-mini"

var ErrEmptyCompletion = errors.New("generation service returned no choices")

// AIService 基于 OpenAI 兼容接口的题目生成客户端，实现 sourcing.GenerationClient
type AIService struct {
	client *openai.Client
	config config.AIConfig
}

func NewAIService(cfg config.AIConfig) *AIService {
	if cfg.Model == "" {
		cfg.Model = defaultAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &AIService{client: &client, config: cfg}
}

// Configured 未配置密钥时不调用生成服务
func (s *AIService) Configured() bool {
	return s.config.APIKey != ""
}

// generatedTasks 模型输出的结构，单个元素的结构与 model.Task 的 JSON 一致
type generatedTasks struct {
	Tasks []json.RawMessage `json:"tasks"`
}

// Generate 一次调用请求 spec.Count 道题；格式不合法的题目被丢弃，数量不足不视为错误
func (s *AIService) Generate(ctx context.Context, spec sourcing.GenerationSpec) (out sourcing.GenerationOutput, err error) {
	ctx, span := tracing.Start(ctx, "ai.generate",
		attribute.String("model", s.config.Model),
		attribute.Int("count", spec.Count),
	)
	defer func() { tracing.End(span, err) }()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(spec)),
			openai.UserMessage(userPrompt(spec)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = openai.Float(s.config.Temperature)
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return sourcing.GenerationOutput{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return sourcing.GenerationOutput{}, ErrEmptyCompletion
	}

	tasks, dropped, err := ParseGeneratedTasks(resp.Choices[0].Message.Content, spec)
	if err != nil {
		return sourcing.GenerationOutput{}, err
	}

	logger.FromContext(ctx).Info("Tasks generated",
		zap.String("model", s.config.Model),
		zap.Int("requested", spec.Count),
		zap.Int("returned", len(tasks)),
		zap.Int("dropped", dropped),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)

	return sourcing.GenerationOutput{
		Tasks: tasks,
		Diagnostics: map[string]any{
			"model":         resp.Model,
			"requested":     spec.Count,
			"returned":      len(tasks),
			"dropped":       dropped,
			"finish_reason": resp.Choices[0].FinishReason,
			"total_tokens":  resp.Usage.TotalTokens,
		},
	}, nil
}

// ParseGeneratedTasks 解析模型输出，返回可用题目与被丢弃的数量。
// 整体不是合法 JSON 时返回错误；单题不合法只丢弃该题。
func ParseGeneratedTasks(raw string, spec sourcing.GenerationSpec) ([]model.Task, int, error) {
	raw = stripCodeFence(raw)

	var payload generatedTasks
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &payload.Tasks); err != nil {
			return nil, 0, fmt.Errorf("parse generated tasks: %w", err)
		}
	} else if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, 0, fmt.Errorf("parse generated tasks: %w", err)
	}

	allowed := make(map[model.TaskType]bool, len(spec.TaskTypes))
	for _, t := range spec.TaskTypes {
		allowed[t] = true
	}

	tasks := make([]model.Task, 0, len(payload.Tasks))
	dropped := 0
	for i, item := range payload.Tasks {
		var task model.Task
		if err := json.Unmarshal(item, &task); err != nil {
			logger.Log.Debug("Dropping malformed generated task", zap.Int("index", i), zap.Error(err))
			dropped++
			continue
		}
		if len(allowed) > 0 && !allowed[task.Type()] {
			logger.Log.Debug("Dropping generated task of unrequested type",
				zap.Int("index", i), zap.String("type", string(task.Type())))
			dropped++
			continue
		}
		if strings.TrimSpace(task.Question) == "" {
			dropped++
			continue
		}
		// 已用规范标记的文本保持原样，其中的省略号是正文
		if fb, ok := task.Content.(model.FillBlanksContent); ok && !strings.Contains(fb.Text, sourcing.BlankMarker) {
			fb.Text, _ = sourcing.NormalizeBlanks(fb.Text)
			task.Content = fb
		}

		task.Origin = model.OriginGenerated
		task.SourceID = ""
		if task.Difficulty == "" {
			task.Difficulty = spec.Difficulty
		}
		if task.TopicLabel == "" {
			task.TopicLabel = spec.TopicLabel
		}
		if task.SubjectLabel == "" {
			task.SubjectLabel = spec.Subject
		}
		tasks = append(tasks, task)
	}
	return tasks, dropped, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// 各题型 content 字段的约定，与 model 包中的载荷一一对应
var contentShapes = map[model.TaskType]string{
	model.SingleChoice:   `{"options":["..."],"correctIndex":0}`,
	model.MultipleChoice: `{"options":["..."],"correctIndices":[0,2]}`,
	model.TrueFalse:      `{"answer":true}`,
	model.ShortAnswer:    `{"answer":"...","acceptableVariants":["..."]}`,
	model.LongAnswer:     `{"rubric":"...","sampleAnswer":"...","criteria":["..."]}`,
	model.FillBlanks:     `{"text":"... {{blank}} ...","blanks":[{"position":0,"answer":"..."}]}`,
	model.Matching:       `{"pairs":[{"left":"...","right":"..."}]}`,
}

func systemPrompt(spec sourcing.GenerationSpec) string {
	var b strings.Builder
	b.WriteString("You write school assessment tasks. Reply with a single JSON object of the form ")
	b.WriteString(`{"tasks":[{"type":"<task type>","difficulty":"<easy|medium|hard>","question":"...","content":{...},"explanation":"..."}]}`)
	b.WriteString(" and nothing else.\nThe content object depends on the type:\n")
	for _, t := range model.AllTaskTypes {
		if len(spec.TaskTypes) > 0 && !containsType(spec.TaskTypes, t) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", t, contentShapes[t])
	}
	b.WriteString("Indices are zero-based. Mark every gap in fill_blanks text with {{blank}}.")
	return b.String()
}

func userPrompt(spec sourcing.GenerationSpec) string {
	types := make([]string, len(spec.TaskTypes))
	for i, t := range spec.TaskTypes {
		types[i] = string(t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write exactly %d tasks.\n", spec.Count)
	fmt.Fprintf(&b, "Subject: %s\nGrade: %d\nTopic: %s\n", spec.Subject, spec.Grade, spec.TopicLabel)
	fmt.Fprintf(&b, "Difficulty: %s\n", spec.Difficulty)
	fmt.Fprintf(&b, "Allowed task types: %s\n", strings.Join(types, ", "))
	switch spec.Format {
	case model.FormatExam:
		b.WriteString("Format: exam style, concise stems with one unambiguous correct option.\n")
	case model.FormatOlympiad:
		b.WriteString("Format: olympiad style, non-standard problems that require reasoning.\n")
	default:
		b.WriteString("Format: standard classroom practice.\n")
	}
	if spec.Language != "" {
		fmt.Fprintf(&b, "Write all task text in language: %s\n", spec.Language)
	}
	if spec.Instructions != "" {
		fmt.Fprintf(&b, "Additional instructions from the teacher: %s\n", spec.Instructions)
	}
	return b.String()
}

func containsType(types []model.TaskType, t model.TaskType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
