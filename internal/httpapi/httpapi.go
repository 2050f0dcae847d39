// Package httpapi is the client-facing HTTP surface, built on
// github.com/gin-gonic/gin and github.com/rs/cors.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/kvald/raftd/internal/raftpb"
	"github.com/kvald/raftd/internal/statemachine"
)

// ClientRequester is satisfied by transport.Cluster; kept as a narrow
// interface so this package never imports transport directly.
type ClientRequester interface {
	ClientRequest(ctx context.Context, in *raftpb.ClientRequest) (*raftpb.ClientReply, error)
}

// clientTimeout bounds how long a write waits for commit before the HTTP
// caller gets a timeout response.
const clientTimeout = 2 * time.Second

// NewRouter builds the gin engine serving /kv/:key, proxying writes
// through cluster's ClientRequest and reads through the local state
// machine snapshot: read-index linearizable reads are out of scope, so
// GET here is not linearizable.
func NewRouter(cluster ClientRequester, kv *statemachine.KVMachine) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/kv/:key", func(c *gin.Context) {
		key := c.Param("key")
		value, ok := kv.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"key": key, "found": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "value": value, "found": true})
	})

	r.PUT("/kv/:key", func(c *gin.Context) {
		var body struct {
			Value string `json:"value"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payload, err := statemachine.Encode(statemachine.Command{
			Action: statemachine.ActionSet, Key: c.Param("key"), Value: body.Value,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		submit(c, cluster, payload)
	})

	r.DELETE("/kv/:key", func(c *gin.Context) {
		payload, err := statemachine.Encode(statemachine.Command{
			Action: statemachine.ActionDelete, Key: c.Param("key"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		submit(c, cluster, payload)
	})

	return cors.AllowAll().Handler(r)
}

func submit(c *gin.Context, cluster ClientRequester, payload []byte) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), clientTimeout)
	defer cancel()

	reply, err := cluster.ClientRequest(ctx, &raftpb.ClientRequest{Payload: payload})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	switch reply.Outcome {
	case "NotLeader":
		c.Header("X-Leader-Hint", reply.LeaderHint)
		c.JSON(http.StatusMisdirectedRequest, gin.H{"error": "not leader", "leader_hint": reply.LeaderHint})
	case "Timeout":
		c.JSON(http.StatusGatewayTimeout, gin.H{"index": reply.Index, "term": reply.Term})
	default:
		c.JSON(http.StatusOK, gin.H{"index": reply.Index, "term": reply.Term})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}
