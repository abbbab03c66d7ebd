package server

import (
	"github.com/textbook-chat/cli/internal/documents"
	"github.com/textbook-chat/cli/internal/llm"
)

type SelectBookRequest struct {
	Name string `json:"name"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type BooksResponse struct {
	Books []string `json:"books"`
}

type PageFailure struct {
	Page  int    `json:"page"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

type ExtractionResponse struct {
	Name     string        `json:"name,omitempty"`
	Text     string        `json:"text,omitempty"`
	Pages    int           `json:"pages"`
	UsedOCR  bool          `json:"used_ocr"`
	Failures []PageFailure `json:"failures,omitempty"`
}

type SessionResponse struct {
	SessionID string        `json:"session_id"`
	State     string        `json:"state"`
	Book      string        `json:"book,omitempty"`
	Tokens    int           `json:"tokens,omitempty"`
	Messages  []llm.Message `json:"messages"`
}

type AskResponse struct {
	Answer   string `json:"answer"`
	Failed   bool   `json:"failed"`
	Attempts int    `json:"attempts"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Tokens int    `json:"tokens,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func newExtractionResponse(name string, ext *documents.Extraction, withText bool) ExtractionResponse {
	resp := ExtractionResponse{
		Name:    name,
		Pages:   ext.Pages,
		UsedOCR: ext.UsedOCR,
	}
	if withText {
		resp.Text = ext.Text
	}
	for _, f := range ext.Failures {
		resp.Failures = append(resp.Failures, PageFailure{Page: f.Page, Stage: f.Stage, Error: f.Err.Error()})
	}
	return resp
}
