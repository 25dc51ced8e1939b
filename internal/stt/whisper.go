package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperClient transcribes audio clips via an OpenAI-compatible
// /audio/transcriptions endpoint: multipart audio in, JSON text out.
type WhisperClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Language   string
	baseURL    string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewWhisperClient(apiKey, model, language string) *WhisperClient {
	return &WhisperClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		Language:   language,
		baseURL:    "https://api.openai.com/v1",
	}
}

// Transcribe posts the clip (a WAV container) and returns the recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("whisper api key missing")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "clip.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err = part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if err = writer.WriteField("model", c.Model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if err = writer.WriteField("language", c.Language); err != nil {
		return "", fmt.Errorf("writing language field: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	return strings.TrimSpace(tr.Text), nil
}
