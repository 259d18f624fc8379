// Package webserver wires the HTTP ingress routes for the question API.
package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/toro-labs/toro-assistant/src/data"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/questions/ingest"
	"gorm.io/gorm"
)

func New(db *gorm.DB, rdb *redis.Client, alerter questions.Alerter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	store := data.NewQuestionStore(db)
	relay := data.NewRelay(rdb)
	qH := NewQuestions(ingest.New(store, relay, alerter), store)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/questions", qH.Create)
		v1.GET("/questions/:user_id", qH.List)
		v1.GET("/questions/:user_id/:question_id", qH.Get)
	}

	return r
}
