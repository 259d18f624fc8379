package webserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/questions/ingest"
)

type Questions struct {
	ingest *ingest.Handler
	store  questions.Store
}

func NewQuestions(ing *ingest.Handler, store questions.Store) Questions {
	return Questions{ingest: ing, store: store}
}

// Create accepts a question and returns its generated id at status pending.
// The caller polls Get (or listens on the websocket) for the final state;
// internal failure detail never leaves this boundary.
func (h Questions) Create(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id"`
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	q, err := h.ingest.Submit(c.Request.Context(), req.UserID, req.Question)
	if err != nil {
		var verr *questions.ValidationError
		var rerr *questions.RelayError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Reason})
		case errors.As(err, &rerr):
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "question accepted but processing is delayed"})
		default:
			log.Printf("webserver: submit failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user_id":     q.UserID,
			"question_id": q.QuestionID,
			"status":      q.Status,
		},
	})
}

func (h Questions) Get(c *gin.Context) {
	q, err := h.store.Get(c.Request.Context(), c.Param("user_id"), c.Param("question_id"))
	if err != nil {
		if errors.Is(err, questions.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "question not found"})
			return
		}
		log.Printf("webserver: get question: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": q})
}

func (h Questions) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	qs, err := h.store.List(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		log.Printf("webserver: list questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"items": qs, "count": len(qs)}})
}
