package api

import "armonia/internal/models"

// LoginRequest is the credential payload for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User describes the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the /auth/login reply. License is the secondary
// credential the chat endpoint requires alongside the bearer token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	License     string `json:"license,omitempty"`
	User        User   `json:"user"`
}

// ChatRequest is the /rag/chat payload.
type ChatRequest struct {
	Question   string `json:"question"`
	LicenseKey string `json:"licenseKey"`
	KBID       string `json:"kbId,omitempty"`
}

// ChatResponse is the whole-shot /rag/chat reply. Reasoning and Sources are
// optional extras some backends attach to the answer.
type ChatResponse struct {
	Answer    string          `json:"answer"`
	Reasoning string          `json:"reasoning,omitempty"`
	Sources   []models.Source `json:"sources,omitempty"`
}

// UploadResponse is the /rag/upload reply.
type UploadResponse struct {
	Message string `json:"message"`
}

// errorBody is the error shape remote endpoints return on non-2xx statuses.
type errorBody struct {
	Message string `json:"message"`
}
