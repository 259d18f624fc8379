package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toro-labs/toro-assistant/src/api/webserver"
	"github.com/toro-labs/toro-assistant/src/config"
	"github.com/toro-labs/toro-assistant/src/data"
	"github.com/toro-labs/toro-assistant/src/opsalert"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/types"
	"gorm.io/gorm"
)

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(&types.Question{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func newAlerter(cfg config.Config) questions.Alerter {
	if cfg.DiscordToken == "" || cfg.DiscordChannel == "" {
		return questions.NopAlerter{}
	}
	alerter, err := opsalert.New(cfg.DiscordToken, cfg.DiscordChannel)
	if err != nil {
		log.Printf("api: discord alerter disabled: %v", err)
		return questions.NopAlerter{}
	}
	return alerter
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	rdb := data.MustRedis(cfg.RedisURL)

	router := webserver.New(db, rdb, newAlerter(cfg))
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Toro API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
