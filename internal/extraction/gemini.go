package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks a vision model for a plain transcription, nothing more
const transcribePrompt = `Transcribe all text visible in this scanned document exactly as printed.
The document language is %s. Keep the original line breaks, numbers, dates and punctuation.
Do not translate, summarize, correct or explain anything. Do not use markdown.
If there is no text in the image, return an empty response.`

// Gemini implements Engine using a Google Gemini vision model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini engine
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, unavailable("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, unavailable("creating gemini client: %v", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Recognize sends img as PNG and returns the transcription
func (g *Gemini) Recognize(ctx context.Context, img image.Image, opts OCROptions) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", buf.Bytes()),
		genai.Text(fmt.Sprintf(transcribePrompt, languageNames(opts.Language))),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return stripFences(text.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// languageNames turns a tesseract language spec into words a model understands
func languageNames(spec string) string {
	names := map[string]string{"por": "Portuguese", "eng": "English", "spa": "Spanish"}
	var out []string
	for _, code := range strings.Split(spec, "+") {
		if n, ok := names[code]; ok {
			out = append(out, n)
		} else if code != "" {
			out = append(out, code)
		}
	}
	return strings.Join(out, " and ")
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
