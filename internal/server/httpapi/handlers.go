package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Salt     []byte `json:"salt" binding:"required"`
	Verifier []byte `json:"verifier" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.users.Register(c.Request.Context(), req.Username, req.Salt, req.Verifier); err != nil {
		s.logger.Error(c.Request.Context(), "register failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.Status(http.StatusCreated)
}

func (s *Server) handleGetSalt(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	salt, err := s.users.GetSalt(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "salt lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"salt": salt})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Verifier []byte `json:"verifier" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.users.Login(c.Request.Context(), req.Username, req.Verifier)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func mustUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

type createDocumentRequest struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, task, err := s.documents.Create(c.Request.Context(), mustUserID(c), req.Name, req.Size)
	if err != nil {
		s.logger.Error(c.Request.Context(), "create document failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": task.DocumentID,
		"upload_url":  task.URL,
	})
}

func (s *Server) handleMarkUploaded(c *gin.Context) {
	err := s.documents.MarkUploaded(c.Request.Context(), mustUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "mark uploaded failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.Status(http.StatusOK)
}

type documentListItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func toListItem(d *models.Document) documentListItem {
	return documentListItem{ID: d.ID, Name: d.Name, Size: d.Size, CreatedAt: d.CreatedAt}
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.documents.List(c.Request.Context(), mustUserID(c))
	if err != nil {
		s.logger.Error(c.Request.Context(), "list documents failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	items := make([]documentListItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, toListItem(d))
	}

	c.JSON(http.StatusOK, items)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	userID := mustUserID(c)
	id := c.Param("id")

	url, err := s.documents.GetDownloadURL(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "get document failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "download_url": url})
}
