package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/internal/vault"
)

const sessionKey = "session_id"

// NewRouter builds the gin engine serving the console API.
func NewRouter(h *Handler, codec *vault.SessionCodec, middleware ...gin.HandlerFunc) *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)
	r.Use(cors(h.AllowedOrigins))

	r.GET("/health", h.Health)

	apiGroup := r.Group("/api", Session(codec, h.Logger, len(h.AllowedOrigins) > 0))
	{
		apiGroup.GET("/learner_information", h.LoadLearner)
		apiGroup.POST("/learner_information/search", h.SearchLearner)
		apiGroup.GET("/learner_information/view", h.LearnerView)
		apiGroup.POST("/retirements/:id/cancel", h.CancelRetirement)
		apiGroup.GET("/programs", h.LoadPrograms)
		apiGroup.POST("/programs/inspect", h.InspectPrograms)
		apiGroup.GET("/programs/saml_providers", h.SAMLProviders)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// cors echoes an allowed Origin and lets it send credentials, so a console
// served from another origin keeps its session cookie. Requests from other
// origins get no CORS headers and stay same-origin only.
func cors(allowed []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(o, "/")] = true
	}
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" && origins[origin] {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Request-ID")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Session attaches the console session id to the request, issuing a new
// session cookie when the request carries none or an invalid one. With
// crossSite set, cookies issued over TLS are SameSite=None so a console on
// another site sends them back.
func Session(codec *vault.SessionCodec, logger *zap.Logger, crossSite bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if value, err := c.Cookie(vault.SessionCookieName); err == nil {
			if id, err := codec.Decode(value); err == nil {
				c.Set(sessionKey, id)
				c.Next()
				return
			}
			logger.Debug("replacing invalid session cookie")
		}

		id := vault.NewSessionID()
		value, err := codec.Encode(id)
		if err != nil {
			logger.Error("encode session cookie", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		secure := c.Request.TLS != nil
		if crossSite && secure {
			c.SetSameSite(http.SameSiteNoneMode)
		} else {
			c.SetSameSite(http.SameSiteLaxMode)
		}
		c.SetCookie(vault.SessionCookieName, value, 0, "/", "", secure, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
