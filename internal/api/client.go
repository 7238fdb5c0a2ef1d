// Package api talks to the remote RAG backend: login, chat (whole-shot and
// streamed), document upload.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api-ai-rag-o62iq.ondigitalocean.app"

// streamDone terminates a streamed chat body.
const streamDone = "[DONE]"

var (
	// ErrNotAuthenticated means no bearer token is stored locally. The
	// request is refused before any network call.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLicenseMissing means the chat license key is absent locally.
	ErrLicenseMissing = errors.New("license key not found")
)

// RemoteError is a non-success response from the backend.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// CredentialStore holds the two process-wide credential slots. Empty string
// means the slot is unset.
type CredentialStore interface {
	Token() string
	LicenseKey() string
	SetToken(token string) error
	SetLicenseKey(key string) error
	Clear() error
}

// Client is the HTTP client for the RAG backend.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore
}

func NewClient(baseURL string, creds CredentialStore) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
		creds:   creds,
	}
}

// IsAuthenticated reports whether a bearer token is stored. Presence of the
// token is the sole authentication check.
func (c *Client) IsAuthenticated() bool {
	return c.creds.Token() != ""
}

// Login authenticates and stores the access token and license key.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	if login.AccessToken != "" {
		if err := c.creds.SetToken(login.AccessToken); err != nil {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	if login.License != "" {
		if err := c.creds.SetLicenseKey(login.License); err != nil {
			return nil, fmt.Errorf("store license key: %w", err)
		}
	}
	if login.User == (User{}) {
		login.User = User{Email: email}
	}

	return &login, nil
}

// Chat sends a question and waits for the whole answer.
func (c *Client) Chat(ctx context.Context, question, kbID string) (*ChatResponse, error) {
	resp, err := c.postChat(ctx, question, kbID, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var answer ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &answer, nil
}

// ChatStream sends a question and consumes a newline-delimited stream of
// "data: <json|text>" chunks terminated by the [DONE] sentinel. onDelta is
// invoked for every content fragment; the accumulated answer is returned.
func (c *Client) ChatStream(ctx context.Context, question, kbID string, onDelta func(delta string)) (*ChatResponse, error) {
	resp, err := c.postChat(ctx, question, kbID, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var answer ChatResponse
	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == streamDone {
			break
		}
		delta := decodeStreamChunk(payload, &answer)
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chat stream: %w", err)
	}

	if content.Len() > 0 {
		answer.Answer = content.String()
	}
	return &answer, nil
}

// Upload sends a document to the knowledge base via multipart form.
func (c *Client) Upload(ctx context.Context, path, kbID string) (*UploadResponse, error) {
	if c.creds.Token() == "" {
		return nil, ErrNotAuthenticated
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy upload file: %w", err)
	}
	if kbID != "" {
		if err := form.WriteField("knowledgeBaseId", kbID); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rag/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.creds.Token())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var uploaded UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &uploaded, nil
}

// Logout clears both credential slots.
func (c *Client) Logout() error {
	return c.creds.Clear()
}

func (c *Client) postChat(ctx context.Context, question, kbID string, stream bool) (*http.Response, error) {
	token := c.creds.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	license := c.creds.LicenseKey()
	if license == "" {
		return nil, ErrLicenseMissing
	}

	body, err := json.Marshal(ChatRequest{Question: question, LicenseKey: license, KBID: kbID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rag/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return resp, nil
}

// decodeStreamChunk extracts the content fragment from one stream payload.
// Chunks are either bare text or small JSON objects; reasoning and sources
// ride along on the final JSON chunks when the backend provides them.
func decodeStreamChunk(payload string, answer *ChatResponse) string {
	if !strings.HasPrefix(payload, "{") {
		return payload
	}
	var chunk struct {
		Answer    string          `json:"answer"`
		Delta     string          `json:"delta"`
		Content   string          `json:"content"`
		Token     string          `json:"token"`
		Reasoning string          `json:"reasoning"`
		Sources   json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return payload
	}
	if chunk.Reasoning != "" {
		answer.Reasoning = chunk.Reasoning
	}
	if len(chunk.Sources) > 0 {
		_ = json.Unmarshal(chunk.Sources, &answer.Sources)
	}
	switch {
	case chunk.Delta != "":
		return chunk.Delta
	case chunk.Token != "":
		return chunk.Token
	case chunk.Content != "":
		return chunk.Content
	default:
		return chunk.Answer
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	remote := &RemoteError{StatusCode: resp.StatusCode}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		remote.Message = body.Message
	} else {
		remote.Message = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	}
	return remote
}
