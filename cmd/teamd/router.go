package main

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/session"
)

func newRouter(mgr *session.Manager, events *broadcast.Broadcaster, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/sessions")
	api.POST("", handleCreateSession(mgr))
	api.GET("", handleListSessions(mgr))
	api.DELETE("/:id", handleEndSession(mgr))
	api.POST("/:id/messages", handleSendMessage(mgr))
	api.GET("/:id/events", handleEventStream(events))

	return r
}

type createSessionRequest struct {
	Agents  []domain.AgentConfig `json:"agents" binding:"required"`
	APIKeys map[string]string    `json:"api_keys"`
}

func handleCreateSession(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sessionID, _, err := mgr.Create(c.Request.Context(), req.Agents, req.APIKeys)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session_id": sessionID})
	}
}

func handleListSessions(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": mgr.List()})
	}
}

func handleEndSession(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.End(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type sendMessageRequest struct {
	Text   string `json:"text" binding:"required"`
	Target string `json:"target"`
}

func handleSendMessage(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		te, ok := mgr.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := te.SendUserMessage(req.Text, req.Target); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	}
}

func handleEventStream(events *broadcast.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		ch, unsubscribe := events.Subscribe(sessionID)
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		clientGone := c.Request.Context().Done()
		_ = broadcast.Stream(ch, func(line string) error {
			select {
			case <-clientGone:
				return errClientGone
			default:
			}
			if _, err := c.Writer.WriteString(line); err != nil {
				return err
			}
			c.Writer.Flush()
			return nil
		})
	}
}

var errClientGone = fmt.Errorf("client disconnected")
