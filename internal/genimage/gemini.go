package genimage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"google.golang.org/genai"
)

const defaultPrompt = "Transform this photo into a vintage-style greeting card " +
	"with warm, nostalgic colors, a soft glow effect and ornate decorative " +
	"elements, in the style of a classic handmade postcard."

const defaultGeminiModel = "gemini-2.0-flash-exp"

// Gemini is the synchronous backend: one bounded generateContent call that
// returns the card as inline image bytes.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini builds the client. proxyURL optionally routes outbound calls
// through an HTTP proxy.
func NewGemini(ctx context.Context, apiKey, model, proxyURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		cc.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: 120 * time.Second}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, in Input) (Artifact, error) {
	mime, data, err := SplitDataURL(in.ImageBase64)
	if err != nil {
		return Artifact{}, err
	}

	prompt := in.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Artifact{}, fmt.Errorf("gemini generate: %w", err)
	}

	// A success envelope without image parts is a Failed outcome for the
	// caller, not a crash.
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return Artifact{Data: part.InlineData.Data, MIME: part.InlineData.MIMEType}, nil
			}
		}
	}
	return Artifact{}, ErrMalformedResponse
}
