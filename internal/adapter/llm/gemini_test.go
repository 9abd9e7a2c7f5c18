package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newGeminiFixture(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	t.Setenv("TEST_GEMINI_KEY", "secret")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient("TEST_GEMINI_KEY", "gemini-2.5-flash", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	client.SetBaseURL(srv.URL)
	return client
}

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	client := newGeminiFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "likely dengue"}}}},
			},
		})
	})

	text, err := client.Generate("patient with fever")
	if err != nil {
		t.Fatal(err)
	}
	if text != "likely dengue" {
		t.Errorf("unexpected answer: %q", text)
	}
	if !strings.Contains(gotPath, "gemini-2.5-flash:generateContent") {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("API key header not set")
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "patient with fever" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestGeminiGenerateWithSystem(t *testing.T) {
	var gotBody geminiRequest
	client := newGeminiFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	})

	if _, err := client.GenerateWithSystem("be careful", "question"); err != nil {
		t.Fatal(err)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "be careful" {
		t.Errorf("system instruction not sent: %+v", gotBody)
	}
}

func TestGeminiAPIErrorSurfaces(t *testing.T) {
	client := newGeminiFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded"},
		})
	})

	_, err := client.Generate("x")
	if err == nil {
		t.Fatal("expected API error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry API message, got %v", err)
	}
}

func TestGeminiMissingKeyIsStartupError(t *testing.T) {
	t.Setenv("EMPTY_KEY_VAR", "")
	if _, err := NewGeminiClient("EMPTY_KEY_VAR", "", 0); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
