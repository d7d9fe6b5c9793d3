// Package api implements the status & control HTTP surface (component
// C9): read-only routes over pipeline/process/job status, plus a
// JWT-guarded shutdown route. Grounded on the teacher's channel-based
// request/reply handler idiom — handlers never touch engine state
// directly, they send a model.Request on reqCh and block on its
// ReplyCh, so the single-threaded engine loop answers from its own turn
// with no locking.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pipex/pkg/model"
)

// respondError mirrors the teacher's structured JSON error envelope.
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": message,
			"status":  code,
		},
	})
	c.Abort()
}

// Router builds the gin engine. reqCh is read by the pipeline's control
// loop (see cmd/pipex), which answers every Request on its ReplyCh.
func Router(reqCh chan<- model.Request, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), securityHeaders())

	r.GET("/pipelines/:id", getHandler(model.OpGetPipeline, reqCh))
	r.GET("/pipelines/:id/processes/:name", getProcessHandler(reqCh))
	r.GET("/pipelines/:id/processes/:name/jobs/:i", getJobHandler(reqCh))

	auth := newJWTAuth(jwtSecret)
	r.POST("/login", auth.loginHandler)
	guarded := r.Group("/")
	guarded.Use(auth.middleware())
	guarded.POST("/pipelines/:id/shutdown", shutdownHandler(reqCh))

	return r
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}

func getHandler(op string, reqCh chan<- model.Request) gin.HandlerFunc {
	return func(c *gin.Context) {
		reply := make(chan model.Response, 1)
		reqCh <- model.Request{Operation: op, Pipeline: c.Param("id"), ReplyCh: reply}
		resp := <-reply
		if resp.Error != nil {
			respondError(c, http.StatusNotFound, resp.Error.Error())
			return
		}
		c.JSON(http.StatusOK, resp.Data)
	}
}

func getProcessHandler(reqCh chan<- model.Request) gin.HandlerFunc {
	return func(c *gin.Context) {
		reply := make(chan model.Response, 1)
		reqCh <- model.Request{
			Operation: model.OpGetProcess,
			Pipeline:  c.Param("id"),
			Process:   c.Param("name"),
			ReplyCh:   reply,
		}
		resp := <-reply
		if resp.Error != nil {
			respondError(c, http.StatusNotFound, resp.Error.Error())
			return
		}
		c.JSON(http.StatusOK, resp.Data)
	}
}

func getJobHandler(reqCh chan<- model.Request) gin.HandlerFunc {
	return func(c *gin.Context) {
		i, err := strconv.Atoi(c.Param("i"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid job index")
			return
		}
		reply := make(chan model.Response, 1)
		reqCh <- model.Request{
			Operation: model.OpGetJob,
			Pipeline:  c.Param("id"),
			Process:   c.Param("name"),
			JobIndex:  i,
			ReplyCh:   reply,
		}
		resp := <-reply
		if resp.Error != nil {
			respondError(c, http.StatusNotFound, resp.Error.Error())
			return
		}
		c.JSON(http.StatusOK, resp.Data)
	}
}

func shutdownHandler(reqCh chan<- model.Request) gin.HandlerFunc {
	return func(c *gin.Context) {
		reply := make(chan model.Response, 1)
		reqCh <- model.Request{Operation: model.OpShutdown, Pipeline: c.Param("id"), ReplyCh: reply}
		resp := <-reply
		if resp.Error != nil {
			respondError(c, http.StatusConflict, resp.Error.Error())
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "shutting down"})
	}
}
