package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN    string
	RedisURL    string
	Port        string
	GatewayPort string

	AIProvider       string
	AIModel          string
	SystemPrompt     string
	AnthropicKey     string
	OpenAIKey        string
	GeneratorTimeout int // seconds

	DiscordToken   string
	DiscordChannel string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	timeout, _ := strconv.Atoi(getenv("GENERATOR_TIMEOUT", "120"))
	return Config{
		MySQLDSN:         getenv("MYSQL_DSN", "toro:toro@tcp(127.0.0.1:3306)/toro?parseTime=true"),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		Port:             getenv("PORT", "8080"),
		GatewayPort:      getenv("GATEWAY_PORT", "8081"),
		AIProvider:       getenv("AI_PROVIDER", "anthropic"),
		AIModel:          os.Getenv("AI_MODEL"),
		SystemPrompt:     getenv("SYSTEM_PROMPT", "You are the Toro assistant. Answer the user's question directly and concisely, grounded in the provided material."),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		GeneratorTimeout: timeout,
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannel:   os.Getenv("DISCORD_ALERT_CHANNEL"),
	}
}
