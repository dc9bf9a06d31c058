package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK and provides utility helpers.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// New returns an OpenAI client when apiKey is provided; otherwise the client only
// produces the plain fallback text.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey: apiKey,
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Enabled reports whether requests go to the API.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// SummarizeDay turns the day's reminder lines into a short friendly digest. Without an
// API key the lines are returned as a plain bulleted list.
func (c *Client) SummarizeDay(ctx context.Context, lines []string) (string, error) {
	if len(lines) == 0 {
		return "", fmt.Errorf("lines cannot be empty")
	}
	if !c.Enabled() {
		return PlainDigest(lines), nil
	}

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String("You write a short morning digest of a person's reminders for the day. Keep every time and item, use at most one line per item."),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(strings.Join(lines, "\n")),
					},
				},
			},
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(300),
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion received")
	}
	return text, nil
}

// PlainDigest renders lines as a bulleted list.
func PlainDigest(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("• ")
		sb.WriteString(line)
	}
	return sb.String()
}
