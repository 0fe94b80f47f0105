package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hostfolk/porter/internal/provider"
)

// Generative Language wire types for JSON serialization.

type glRequest struct {
	SystemInstruction *glContent   `json:"systemInstruction,omitempty"`
	Contents          []glContent  `json:"contents"`
	GenerationConfig  *glGenConfig `json:"generationConfig,omitempty"`
}

type glContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []glPart `json:"parts"`
}

type glPart struct {
	Text string `json:"text"`
}

type glGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type glResponse struct {
	Candidates []glCandidate `json:"candidates"`
}

type glCandidate struct {
	Content      glContent `json:"content"`
	FinishReason string    `json:"finishReason"`
}

// text joins the text parts of the first candidate.
func (r glResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// buildRequest converts a provider.Request into the Gemini wire format.
// The API names the assistant role "model".
func buildRequest(req provider.Request, configMaxTokens int) glRequest {
	system, messages := req.SplitSystem()

	gl := glRequest{Contents: make([]glContent, 0, len(messages))}
	if system != "" {
		gl.SystemInstruction = &glContent{Parts: []glPart{{Text: system}}}
	}

	for _, m := range messages {
		role := "user"
		if m.Role == provider.RoleAssistant {
			role = "model"
		}
		gl.Contents = append(gl.Contents, glContent{
			Role:  role,
			Parts: []glPart{{Text: m.Content}},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = configMaxTokens
	}
	if maxTokens > 0 || req.Temperature != nil {
		gl.GenerationConfig = &glGenConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     req.Temperature,
		}
	}

	return gl
}

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

// doRequest executes the generateContent POST and decodes the response.
func (g *Gemini) doRequest(ctx context.Context, body glRequest) (glResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return glResponse{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.config.BaseURL, g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return glResponse{}, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// Caller cancellation is not a provider failure.
		if ctx.Err() != nil {
			return glResponse{}, ctx.Err()
		}
		return glResponse{}, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return glResponse{}, mapStatusError(resp)
	}

	var decoded glResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return glResponse{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	return decoded, nil
}

// mapStatusError converts a non-200 response into a sentinel error where
// the status has a clear meaning.
func mapStatusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	detail := strings.TrimSpace(string(snippet))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, detail)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, resp.StatusCode, detail)
	default:
		return fmt.Errorf("gemini: HTTP %d: %s", resp.StatusCode, detail)
	}
}
