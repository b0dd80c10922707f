package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/nagorik-apps/nagorik-lessons/internal/config"
	"github.com/nagorik-apps/nagorik-lessons/internal/lesson"
	"github.com/nagorik-apps/nagorik-lessons/pkg/log"
)

// Client wraps the two remote Gemini calls behind a stable contract.
// Constructed once at process start with explicit configuration and passed
// by reference; single-attempt semantics, no retries.
type Client struct {
	genai       *genai.Client
	model       string
	imageModel  string
	styleSuffix string
	slideCount  int
}

// NewClient creates a gateway client from explicit configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, slideCount int) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		genai:       client,
		model:       cfg.Model,
		imageModel:  cfg.ImageModel,
		styleSuffix: cfg.ImageStyleSuffix,
		slideCount:  slideCount,
	}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.genai.Close()
}

// planSchema constrains the text model to an array of
// {title, explanation, visualPrompt}, all fields required.
var planSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":        {Type: genai.TypeString},
			"explanation":  {Type: genai.TypeString},
			"visualPrompt": {Type: genai.TypeString},
		},
		Required: []string{"title", "explanation", "visualPrompt"},
	},
}

// GeneratePlan produces the ordered slide contents for a custom topic.
// Failure is all-or-nothing: there is no partial-plan recovery.
func (c *Client) GeneratePlan(ctx context.Context, topic string, lang language.Tag) ([]lesson.SlideContent, error) {
	model := c.genai.GenerativeModel(c.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = planSchema

	resp, err := model.GenerateContent(ctx, genai.Text(c.buildPlanPrompt(topic, lang)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGeneration, err)
	}

	raw, err := firstText(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGeneration, err)
	}

	var slides []planSlide
	if err := json.Unmarshal([]byte(raw), &slides); err != nil {
		return nil, fmt.Errorf("%w: undecodable plan payload: %v", ErrPlanGeneration, err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrPlanGeneration)
	}

	ret := make([]lesson.SlideContent, 0, len(slides))
	for i, s := range slides {
		if s.Title == "" || s.Explanation == "" || s.VisualPrompt == "" {
			return nil, fmt.Errorf("%w: slide %d is missing required fields", ErrPlanGeneration, i)
		}
		ret = append(ret, lesson.SlideContent{
			Title:        s.Title,
			Explanation:  s.Explanation,
			VisualPrompt: s.VisualPrompt,
		})
	}
	return ret, nil
}

// GenerateImage produces one illustration for a visual prompt. Single
// attempt; retries are the caller's business.
func (c *Client) GenerateImage(ctx context.Context, visualPrompt string) (Image, error) {
	model := c.genai.GenerativeModel(c.imageModel)

	prompt := fmt.Sprintf("%s. Style: %s. Aspect ratio 4:3.", visualPrompt, c.styleSuffix)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageGeneration, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return Image{MIME: blob.MIMEType, Data: blob.Data}, nil
			}
		}
	}
	log.Warn("Image response carried no inline image part for prompt %q", truncate(visualPrompt, 60))
	return Image{}, fmt.Errorf("%w: no image part in response", ErrImageGeneration)
}

func (c *Client) buildPlanPrompt(topic string, lang language.Tag) string {
	langInstruction := "The output fields 'title' and 'explanation' must be in English."
	if lang == lesson.LanguageBangla {
		langInstruction = "The output fields 'title' and 'explanation' MUST be in Bengali (Bangla). The 'visualPrompt' MUST remain in English."
	}

	return fmt.Sprintf(`You are an expert primary school civics teacher in Bangladesh.
Create a %d-slide lesson plan on the topic: %q.
The target audience is young students. Keep language simple, encouraging, and kind.

%s

For each slide, provide:
1. A short, catchy title.
2. A simple explanation (2-3 sentences max).
3. A visual prompt description to generate an illustration (keep this in English, describe a flat vector art style, friendly, educational).`,
		c.slideCount, topic, langInstruction)
}

// firstText unwraps the first text part of a response.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content in response")
	}
	if txt, ok := cand.Content.Parts[0].(genai.Text); ok {
		return strings.TrimSpace(string(txt)), nil
	}
	return "", fmt.Errorf("unexpected part type in response")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
