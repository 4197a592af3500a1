// Package openai implementa el colaborador generativo de fallback: un
// paciente simulado que responde solo con los datos del caso cuando el
// matcher local declina. Es el único punto del sistema con reintentos;
// aplica backoff exponencial acotado ante rate limiting.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dxpro-backend/casos"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = "gpt-4o-mini"
	maxRetries       = 3
	baseRetryDelay   = 500 * time.Millisecond
	fallbackMaxToken = 200
	fallbackTemp     = 0.15
)

// ErrExhausted se devuelve tras agotar los reintentos por rate
// limiting; quien llama sustituye con el texto "desconocido" del caso.
var ErrExhausted = errors.New("openai: reintentos agotados por rate limiting")

type Client struct {
	api   *openai.Client
	Model string
}

// NewClient arma el cliente desde el entorno: OPENAI_API_KEY y
// FALLBACK_MODEL (opcional).
func NewClient() *Client {
	c := &Client{api: openai.NewClient(os.Getenv("OPENAI_API_KEY")), Model: defaultModel}
	if m := strings.TrimSpace(os.Getenv("FALLBACK_MODEL")); m != "" {
		c.Model = m
	}
	return c
}

// AnswerAsPatient pide una respuesta en rol de paciente, acotada a la
// información del caso. Reintenta solo ante 429; cualquier otro error
// se devuelve a la primera.
func (c *Client) AnswerAsPatient(ctx context.Context, pregunta string, caso *casos.Case) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: fallbackTemp,
		MaxTokens:   fallbackMaxToken,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPatientPrompt(pregunta, caso)},
		},
	}
	for attempt := 0; ; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("openai: respuesta sin choices")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		if !isRateLimited(err) {
			return "", fmt.Errorf("openai: %w", err)
		}
		if attempt >= maxRetries {
			return "", ErrExhausted
		}
		select {
		case <-time.After(retryDelay(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// retryDelay duplica la espera en cada intento: 500ms, 1s, 2s, ...
func retryDelay(attempt int) time.Duration {
	return baseRetryDelay << attempt
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429
}

// buildPatientPrompt arma el prompt controlado: responder únicamente
// con los datos del caso y, si la información no está, devolver
// exactamente el texto "desconocido".
func buildPatientPrompt(pregunta string, caso *casos.Case) string {
	data, err := json.MarshalIndent(caso, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("Eres un paciente simulado. Estos son los datos del caso:\n")
	b.Write(data)
	b.WriteString("\n\nReglas:\n")
	b.WriteString("- RESPONDER SÓLO en base a la información provista arriba.\n")
	b.WriteString("- Si la información no está, devolver exactamente: \"" + caso.Unknown() + "\".\n")
	b.WriteString("- No inventar nuevos datos.\n")
	b.WriteString("\nPregunta del estudiante: \"" + pregunta + "\"\n")
	return b.String()
}
