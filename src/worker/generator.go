package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/toro-labs/toro-assistant/src/ai/core"
	"github.com/toro-labs/toro-assistant/src/config"
	"github.com/toro-labs/toro-assistant/src/questions"
)

// generator adapts an AI provider client to the answer stage's Generator
// capability, bounding every call with a timeout.
type generator struct {
	client  core.Client
	timeout time.Duration
}

func newGenerator(client core.Client, cfg config.Config) *generator {
	return &generator{
		client:  client,
		timeout: time.Duration(cfg.GeneratorTimeout) * time.Second,
	}
}

func (g *generator) Generate(ctx context.Context, query string) (questions.GeneratedAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.client.AnswerQuestion(ctx, query, core.Options{})
	if err != nil {
		return questions.GeneratedAnswer{}, &questions.GeneratorError{Err: err}
	}
	if strings.TrimSpace(res.Text) == "" {
		return questions.GeneratedAnswer{}, &questions.GeneratorError{Err: errors.New("empty answer")}
	}
	return questions.GeneratedAnswer{Text: res.Text, Model: res.Model}, nil
}
