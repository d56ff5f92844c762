package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasklist/internal/locale"
	"tasklist/internal/store"
)

type textRequest struct {
	Text string `json:"text"`
}

type draftRequest struct {
	Draft string `json:"draft"`
}

type commitRequest struct {
	ID    string `json:"id" binding:"required"`
	Draft string `json:"draft"`
}

func (s *Server) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

// getLabels returns the UI strings. With no lang the store's current locale
// is used; lang=auto negotiates from Accept-Language.
func (s *Server) getLabels(c *gin.Context) {
	l := s.store.Snapshot().Locale
	switch lang := c.Query("lang"); lang {
	case "":
	case "auto":
		l = locale.Match(c.GetHeader("Accept-Language"))
	default:
		parsed, err := locale.Parse(lang)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		l = parsed
	}
	c.JSON(http.StatusOK, gin.H{"locale": l, "labels": l.Labels()})
}

func (s *Server) putInput(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	s.store.SetInput(req.Text)
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) addTask(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	t, added, err := s.store.AddTask(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"added": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": true, "task": t})
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTask(c *gin.Context) {
	if err := s.store.ToggleCompletion(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) startEdit(c *gin.Context) {
	if err := s.store.StartEditing(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) setDraft(c *gin.Context) {
	var req draftRequest
	if !bind(c, &req) {
		return
	}
	if err := s.store.SetDraft(req.Draft); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) commitEdit(c *gin.Context) {
	var req commitRequest
	if !bind(c, &req) {
		return
	}
	committed, err := s.store.CommitEditing(c.Request.Context(), req.ID, req.Draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"committed": committed, "snapshot": s.store.Snapshot()})
}

func (s *Server) cancelEdit(c *gin.Context) {
	s.store.CancelEditing()
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleLocale(c *gin.Context) {
	l := s.store.ToggleLanguage()
	c.JSON(http.StatusOK, gin.H{"locale": l})
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrNoEditSession):
		status = http.StatusConflict
	case errors.Is(err, store.ErrNotHydrated):
		status = http.StatusServiceUnavailable
	default:
		s.log.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
