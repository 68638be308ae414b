package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageGenerator turns a round prompt into an image reference. The engine
// treats it as an external collaborator: generation runs off the room's
// actor and its failure is reported into the room as a non-fatal event, the
// round keeps running either way.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type openAIImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIImageClient struct {
	apiKey string
	model  string
	size   string
	client *http.Client
}

func newOpenAIImageClient(apiKey, model, size string) *openAIImageClient {
	return &openAIImageClient{
		apiKey: apiKey,
		model:  model,
		size:   size,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *openAIImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errors.New("OpenAI API key is not configured")
	}
	payload, err := json.Marshal(openAIImageRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.size,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image request")
	}
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "https://api.openai.com/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build image request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach image service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image request failed (%d)", resp.StatusCode)
	}
	var parsed openAIImageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse image response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("image service error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return "", errors.New("image service returned no images")
	}
	if parsed.Data[0].URL != "" {
		return parsed.Data[0].URL, nil
	}
	if parsed.Data[0].B64JSON != "" {
		return "data:image/png;base64," + parsed.Data[0].B64JSON, nil
	}
	return "", errors.New("image service returned an empty image")
}

// requestImage runs generation in the background and feeds the outcome back
// into the room as an ordinary action.
func (s *Server) requestImage(rm *room, roundNumber int, prompt string) {
	if s.images == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		url, err := s.images.Generate(ctx, prompt)
		act := imageReadyAction{roundNumber: roundNumber, url: url}
		if err != nil {
			act.errText = err.Error()
		}
		rm.enqueue(act)
	}()
}
