// Package genai adapts an OpenAI-compatible endpoint to the Generator and
// Transcriber capabilities.
package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vigil-workers/internal/capability"
)

var ErrEmptyCompletion = errors.New("EMPTY_COMPLETION")

type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	TranscriptionModel string
	MaxTokens          int
	Temperature        float32
	Timeout            time.Duration
}

type Client struct {
	config *Config
	cli    *openai.Client
}

func NewClient(config *Config) *Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Client{
		config: config,
		cli:    openai.NewClientWithConfig(clientConfig),
	}
}

// Generate sends one chat completion. Images are attached inline as data
// URLs; a non-nil Schema asks the model for a JSON object.
func (c *Client) Generate(ctx context.Context, req capability.GenerationRequest) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	userMsg, err := userMessage(req)
	if err != nil {
		return "", err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(req),
			},
			userMsg,
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.cli.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe runs speech-to-text over the extracted audio track.
func (c *Client) Transcribe(ctx context.Context, track *capability.AudioTrack) (string, error) {
	if track == nil || track.Path == "" {
		return "", capability.ErrNoAudio
	}
	resp, err := c.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.config.TranscriptionModel,
		FilePath: track.Path,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func systemPrompt(req capability.GenerationRequest) string {
	var b strings.Builder
	if req.Role != "" {
		fmt.Fprintf(&b, "You are a %s.\n", req.Role)
	}
	b.WriteString(req.Instructions)
	if req.Schema != nil {
		schemaJSON, _ := json.Marshal(req.Schema)
		b.WriteString("\n\nRespond with a JSON object matching this JSON Schema:\n")
		b.Write(schemaJSON)
	}
	if req.Strict {
		b.WriteString("\n\nReturn only the JSON object. No prose, no markdown code fences.")
	}
	return b.String()
}

func userMessage(req capability.GenerationRequest) (openai.ChatCompletionMessage, error) {
	if len(req.Images) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Evidence,
		}, nil
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: req.Evidence,
	}}
	for _, path := range req.Images {
		dataURL, err := imageDataURL(path)
		if err != nil {
			return openai.ChatCompletionMessage{}, err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}, nil
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
