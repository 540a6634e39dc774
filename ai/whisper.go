package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperClient calls an OpenAI-compatible /audio/transcriptions endpoint
type WhisperClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	http     *http.Client
}

// NewWhisperClient creates a new transcription client
func NewWhisperClient(apiKey, baseURL, model, language string) *WhisperClient {
	return &WhisperClient{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		model:    model,
		language: language,
		http:     &http.Client{},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio and returns the recognized text
func (w *WhisperClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	fields := map[string]string{
		"model":           w.model,
		"response_format": "json",
		"language":        w.language,
		"temperature":     "0",
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", w.apiKey))

	log.Printf("Sending %d bytes to transcription API...", len(audio))
	reqSentTime := time.Now()
	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	log.Printf("Received transcription response in %v with status code: %d", time.Since(reqSentTime), resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription request failed with status %d: %s", resp.StatusCode, truncate(string(data), 300))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription response: %w", err)
	}
	return parsed.Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
