package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/toro-labs/toro-assistant/src/ai/core"
	_ "github.com/toro-labs/toro-assistant/src/ai/providers"
	"github.com/toro-labs/toro-assistant/src/config"
	"github.com/toro-labs/toro-assistant/src/data"
	"github.com/toro-labs/toro-assistant/src/opsalert"
	"github.com/toro-labs/toro-assistant/src/questions"
	"github.com/toro-labs/toro-assistant/src/questions/process"
)

const consumerGroup = "workers"

func newAlerter(cfg config.Config) questions.Alerter {
	if cfg.DiscordToken == "" || cfg.DiscordChannel == "" {
		return questions.NopAlerter{}
	}
	alerter, err := opsalert.New(cfg.DiscordToken, cfg.DiscordChannel)
	if err != nil {
		log.Printf("worker: discord alerter disabled: %v", err)
		return questions.NopAlerter{}
	}
	return alerter
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	rdb := data.MustRedis(cfg.RedisURL)

	client, err := core.NewClient(core.FactoryConfig{
		Provider:     cfg.AIProvider,
		Model:        cfg.AIModel,
		SystemPrompt: cfg.SystemPrompt,
		AnthropicKey: cfg.AnthropicKey,
		OpenAIKey:    cfg.OpenAIKey,
	})
	if err != nil {
		log.Fatalf("ai client: %v", err)
	}

	handler := process.New(
		data.NewQuestionStore(db),
		newGenerator(client, cfg),
		data.NewRelay(rdb),
		newAlerter(cfg),
	)

	ctx, cancel := context.WithCancel(context.Background())

	go data.Consume(ctx, rdb, questions.StreamProcess, consumerGroup, consumerName(), handler.Handle)
	log.Printf("Toro worker consuming %s (provider %s)", questions.StreamProcess, cfg.AIProvider)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
}
