package handlers

import (
	"net/http"

	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/kvstore"
	"axiapac.com/punchsync/push"
	"axiapac.com/punchsync/queue"
	"axiapac.com/punchsync/session"
	"axiapac.com/punchsync/web/middlewares"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Transport v1.Relayer
	Sessions  session.Provider
	Store     kvstore.Store
	Queue     *queue.Queue
	Importer  *ingest.Importer
	Scheduler *push.Scheduler
	Runner    *push.Runner
	// JWTSecret protects /api when set.
	JWTSecret []byte
}

// Register mounts every route on r.
func Register(r *gin.Engine, s Services) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := r.Group("/api")
	if len(s.JWTSecret) > 0 {
		api.Use(middlewares.Authentication(s.JWTSecret))
	}

	relay := NewRelayEndpoint(s.Transport)
	api.POST("/relay", relay.Relay)

	sessions := NewSessionEndpoint(s.Sessions)
	api.POST("/session/login", sessions.Login)
	api.POST("/session/logout", sessions.Logout)
	api.GET("/session", sessions.Current)
	api.GET("/session/last-login", sessions.LastLogin)

	transactions := NewTransactionEndpoint(s.Queue, s.Importer)
	api.GET("/transactions", transactions.List)
	api.POST("/transactions", transactions.Enqueue)
	api.DELETE("/transactions", transactions.Clear)
	api.POST("/transactions/search", transactions.Search)
	api.GET("/transactions/stats", transactions.Stats)
	api.POST("/transactions/status", transactions.UpdateStatus)
	api.GET("/transactions/export", transactions.Export)
	api.POST("/transactions/import", transactions.Import)
	api.GET("/transactions/events", transactions.Events)

	pushes := NewPushEndpoint(s.Scheduler, s.Runner, s.Sessions, s.Store)
	api.POST("/push", pushes.Push)
	api.GET("/push", pushes.Status)
	api.PUT("/push/settings", pushes.UpdateSettings)
}

func NewRouter(s Services) *gin.Engine {
	r := gin.Default()
	Register(r, s)
	return r
}
