package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/textbook-chat/cli/internal/books"
	"github.com/textbook-chat/cli/internal/llm"
)

func (s *Server) listBooks(c *gin.Context) {
	names, err := s.app.Store.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to list books")
		return
	}
	c.JSON(http.StatusOK, BooksResponse{Books: names})
}

// uploadBook takes a multipart "file" and "name" and stores the extracted text
func (s *Server) uploadBook(c *gin.Context) {
	data, ok := readUpload(c)
	if !ok {
		return
	}
	name, err := books.CleanName(c.PostForm("name"))
	if err != nil {
		abortWithError(c, err, "Invalid book name")
		return
	}

	ext, err := s.app.IngestBytes(c.Request.Context(), data, name)
	if err != nil {
		abortWithError(c, err, "Failed to save book")
		return
	}
	c.JSON(http.StatusCreated, newExtractionResponse(name, ext, false))
}

// extract returns the text of an uploaded document without storing it
func (s *Server) extract(c *gin.Context) {
	data, ok := readUpload(c)
	if !ok {
		return
	}

	ext, err := s.app.Extractor.Extract(c.Request.Context(), data)
	if err != nil {
		abortWithError(c, err, "Failed to extract text")
		return
	}
	c.JSON(http.StatusOK, newExtractionResponse("", ext, true))
}

func (s *Server) getSession(c *gin.Context) {
	if err := s.app.Session.Sync(c.Request.Context()); err != nil {
		abortWithError(c, err, "Failed to check active book")
		return
	}
	c.JSON(http.StatusOK, s.sessionResponse())
}

func (s *Server) selectBook(c *gin.Context) {
	var req SelectBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	if _, err := s.app.Session.Select(c.Request.Context(), req.Name); err != nil {
		abortWithError(c, err, "Failed to select book")
		return
	}
	c.JSON(http.StatusOK, s.sessionResponse())
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	reply, err := s.app.Session.Ask(c.Request.Context(), req.Question)
	if err != nil {
		abortWithError(c, err, "Failed to generate response")
		return
	}
	c.JSON(http.StatusOK, AskResponse{
		Answer:   reply.Content,
		Failed:   reply.Failed,
		Attempts: reply.Attempts,
	})
}

// sessionResponse omits the system primer; it holds the whole book
func (s *Server) sessionResponse() SessionResponse {
	sess := s.app.Session
	messages := []llm.Message{}
	for _, m := range sess.Transcript() {
		if m.Role != llm.RoleSystem {
			messages = append(messages, m)
		}
	}
	return SessionResponse{
		SessionID: sess.SessionID().String(),
		State:     sess.State().String(),
		Book:      sess.ActiveBook(),
		Tokens:    sess.Tokens(),
		Messages:  messages,
	}
}

func readUpload(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "missing file: " + err.Error()})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("failed to open upload: %w", err), "Failed to read upload")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		abortWithError(c, fmt.Errorf("failed to read upload: %w", err), "Failed to read upload")
		return nil, false
	}
	return data, true
}
