package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"bodhiment-quiz/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is a free DeepSeek model served by OpenRouter.
	DefaultModel = "deepseek/deepseek-chat:free"
	toolName     = "submit_mcqs"
)

// Generator produces MCQs by calling an OpenAI-compatible chat completion API
// (OpenAI, OpenRouter, ...) directly instead of going through the backend.
type Generator struct {
	client *openai.Client
	model  string
	count  int
	logger *slog.Logger
}

// Config configures a Generator. Empty BaseURL means the OpenAI endpoint.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Questions int
	Logger    *slog.Logger
}

func NewGenerator(cfg Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	g := &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		count:  cfg.Questions,
		logger: cfg.Logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.count <= 0 {
		g.count = 5
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// GenerateMCQs asks the model for letter-labelled MCQs about inputText.
func (g *Generator) GenerateMCQs(ctx context.Context, inputText string) ([]domain.RawMCQ, error) {
	g.logger.Debug("generating mcqs", "model", g.model, "questions", g.count)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write multiple choice questions for students. Every question has exactly 4 options labelled A-D and one correct answer.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(inputText, g.count),
			},
		},
		Tools: []openai.Tool{
			{
				Type:     openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{Name: toolName, Description: "Submit the generated questions", Parameters: mcqSchema()},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrGenerationFailed)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool call in completion", domain.ErrGenerationFailed)
	}
	call := msg.ToolCalls[0]
	if call.Function.Name != toolName {
		return nil, fmt.Errorf("%w: unexpected tool call %q", domain.ErrGenerationFailed, call.Function.Name)
	}

	var payload domain.MCQResponse
	if err := json.Unmarshal([]byte(call.Function.Arguments), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse tool arguments: %v", domain.ErrGenerationFailed, err)
	}
	if len(payload.MCQs) == 0 {
		return nil, domain.ErrNoQuestions
	}
	g.logger.Debug("generated mcqs", "count", len(payload.MCQs))
	return payload.MCQs, nil
}

func buildPrompt(inputText string, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d multiple choice questions from the following study material:\n\n", count)
	sb.WriteString(inputText)
	sb.WriteString("\n\nRequirements:\n")
	sb.WriteString("- Exactly 4 options per question, without letter prefixes\n")
	sb.WriteString("- correct_answer is the letter A, B, C or D of the right option\n")
	sb.WriteString("- Questions test understanding of the material, not trivia\n")
	sb.WriteString("- Use the " + toolName + " tool to return the questions\n")
	return sb.String()
}

func mcqSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mcqs": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correct_answer": map[string]any{
							"type": "string",
							"enum": []string{"A", "B", "C", "D"},
						},
					},
					"required": []string{"question", "options", "correct_answer"},
				},
			},
		},
		"required": []string{"mcqs"},
	}
}
