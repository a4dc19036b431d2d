package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/console"
	"github.com/celerix-dev/celerix-support/pkg/schema"
)

type Handler struct {
	Users    *console.UserPage
	Programs *console.ProgramInspector
	Logger   *zap.Logger
	// AllowedOrigins lists browser origins other than the daemon's own that
	// may call the API with the session cookie.
	AllowedOrigins []string
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LoadLearner resolves the account named by the page's query string.
func (h *Handler) LoadLearner(c *gin.Context) {
	view, ok := h.Users.FromQuery(c.Request.Context(), sessionID(c), c.Request.URL.Query())
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SearchLearner(c *gin.Context) {
	var input struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.Users.Search(c.Request.Context(), sessionID(c), input.Query))
}

func (h *Handler) LearnerView(c *gin.Context) {
	view, ok := h.Users.Latest(sessionID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no search in this session"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) CancelRetirement(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "retirement id must be a positive integer"})
		return
	}
	c.JSON(http.StatusOK, h.Users.CancelRetirement(c.Request.Context(), id))
}

// LoadPrograms handles an inspector page load carrying ?edx_user_id=.
func (h *Handler) LoadPrograms(c *gin.Context) {
	raw := c.Query(console.QueryEdxUserID)
	if raw != "" {
		if _, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "edx_user_id must be numeric"})
			return
		}
	}
	view, ok := h.Programs.Load(c.Request.Context(), sessionID(c), raw)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) InspectPrograms(c *gin.Context) {
	var q schema.InspectorQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.Programs.Inspect(c.Request.Context(), sessionID(c), q))
}

func (h *Handler) SAMLProviders(c *gin.Context) {
	orgs, err := h.Programs.SAMLProviders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not load SAML providers"})
		return
	}
	if orgs == nil {
		orgs = []string{}
	}
	c.JSON(http.StatusOK, orgs)
}
