package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/toro-labs/toro-assistant/src/config"
	"github.com/toro-labs/toro-assistant/src/data"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/questions/notify"
)

const consumerGroup = "notifiers"

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	handler := notify.New(
		data.NewQuestionStore(db),
		data.NewRegistry(rdb),
		data.NewChannel(rdb),
	)

	ctx, cancel := context.WithCancel(context.Background())

	host, err := os.Hostname()
	if err != nil {
		host = "notifier"
	}
	consumer := host + "-" + uuid.NewString()[:8]

	go data.Consume(ctx, rdb, questions.StreamNotify, consumerGroup, consumer, handler.Handle)
	log.Printf("Toro notifier consuming %s", questions.StreamNotify)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
}
