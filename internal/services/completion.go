package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/metrics"
)

// Completer sends a prompt to a language model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const openAISystemMessage = "You are an assistant that generates flashcards in JSON format."

// BuildFlashcardPrompt asks for a bare JSON array of question/answer
// objects grounded only in text.
func BuildFlashcardPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant generating flashcards (question/answer pairs) from text.\n")
	sb.WriteString("Create flashcards with a clear question and a concise answer based ONLY on the provided text.\n")
	sb.WriteString(`Output ONLY a valid JSON array of objects, where each object has ONLY a "question" (string) key and an "answer" (string) key.`)
	sb.WriteString("\nEnsure questions and answers are distinct and meaningful for learning.\n")
	sb.WriteString(`Example: [{"question": "Example Q1?", "answer": "Example A1."}, {"question": "Example Q2?", "answer": "Example A2."}]`)
	sb.WriteString("\n\nGenerate flashcards from the following text:\n---\n")
	sb.WriteString(text)
	sb.WriteString("\n---\n")
	return sb.String()
}

type GeminiCompleter struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiCompleter(ctx context.Context, apiKey, modelName string, concurrentReqs int) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiCompleter{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

// acquireRate blocks until a rate slot is available
func (g *GeminiCompleter) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *GeminiCompleter) releaseRate() {
	g.rateChan <- struct{}{}
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := g.acquireRate(ctx); err != nil {
		return "", err
	}
	defer g.releaseRate()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	metrics.CompletionDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	log := logger.FromContext(ctx)
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Warn("Gemini stopped early", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// OpenAICompleter talks to any OpenAI-compatible chat completion API.
type OpenAICompleter struct {
	api   *openai.Client
	model string
}

func NewOpenAICompleter(apiKey, baseURL, modelName string) *OpenAICompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAICompleter{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	metrics.CompletionDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("OpenAI API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
