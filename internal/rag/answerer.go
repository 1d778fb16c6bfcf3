package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/providers"
	"supportbot/internal/util"
)

// RefusalMessage is the only reply given to questions the documentation
// does not cover.
const RefusalMessage = "I can only answer questions that are covered in the uploaded documentation."

const answerSystemPrompt = `You are First Support Bot.

Your purpose is to assist users by answering only using information contained in the uploaded business documentation.
You may reason and paraphrase within that scope. If the documentation explains a process or feature, you can summarize or restate it naturally in response to user questions.

Guidelines:
- All answers must be clearly grounded in the uploaded content.
- You may interpret meaning and infer logically, but never invent facts.
- If the question is unrelated to the uploaded material, respond exactly with:
  "` + RefusalMessage + `"
- Be clear, professional, and concise.`

const answerInstructions = "Answer only using information contained or implied in the CONTEXT. " +
	"If the answer cannot be clearly derived from the CONTEXT, reply with the exact refusal line."

// Answerer gates on retrieved context and, when there is some, asks the LLM
// for a grounded reply.
type Answerer struct {
	llm         providers.LLMProvider
	temperature float64
	timeout     time.Duration
	log         *logging.Logger
}

func NewAnswerer(llm providers.LLMProvider, cfg config.RAGConfig, log *logging.Logger) *Answerer {
	if log == nil {
		log = logging.Nop()
	}
	return &Answerer{
		llm:         llm,
		temperature: cfg.AnswerTemperature,
		timeout:     cfg.Timeouts.Completion,
		log:         log.With("component", "answerer"),
	}
}

func (a *Answerer) Answer(ctx context.Context, question string, matches []models.Match) (models.Answer, error) {
	if !HasContext(matches) {
		return Refusal(), nil
	}
	if a.llm == nil {
		return models.Answer{}, fmt.Errorf("%w: no completion provider configured", util.ErrAnswerGeneration)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	resp, info, err := a.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   providers.OperationAnswer,
		System:      answerSystemPrompt,
		Prompt:      BuildUserPrompt(BuildContextBlock(matches), question),
		Temperature: a.temperature,
	})
	if err != nil {
		return models.Answer{}, fmt.Errorf("%w: %s: %w", util.ErrAnswerGeneration, info.Name, err)
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		reply = RefusalMessage
	}
	ans := models.Answer{
		Status:  models.StatusGrounded,
		Reply:   reply,
		Sources: SourcesFor(matches),
	}
	if strings.Contains(reply, RefusalMessage) {
		ans.Status = models.StatusOutOfScope
		ans.OutOfScope = true
		a.log.Info("model declined to answer from context", "matches", len(matches))
	}
	return ans, nil
}

// Refusal is the answer given when nothing relevant was retrieved.
func Refusal() models.Answer {
	return models.Answer{
		Status:     models.StatusOutOfScope,
		Reply:      RefusalMessage,
		Sources:    []models.Source{},
		OutOfScope: true,
	}
}

// HasContext reports whether any match carries non-blank content.
func HasContext(matches []models.Match) bool {
	for _, m := range matches {
		if strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

// BuildContextBlock numbers the non-blank matches from 1 and labels each with
// its source.
func BuildContextBlock(matches []models.Match) string {
	parts := make([]string, 0, len(matches))
	n := 0
	for _, m := range matches {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		n++
		parts = append(parts, fmt.Sprintf("--- CHUNK %d (source: %s) ---\n%s", n, m.Label(), m.Content))
	}
	return strings.Join(parts, "\n\n")
}

func BuildUserPrompt(contextBlock, question string) string {
	return "CONTEXT:\n" + contextBlock + "\n\n" +
		"---\nUSER QUESTION:\n" + question + "\n\n" +
		"INSTRUCTIONS:\n" + answerInstructions
}

func SourcesFor(matches []models.Match) []models.Source {
	out := make([]models.Source, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.Source{
			Source:     m.DocumentID,
			Title:      m.Title,
			ChunkIndex: m.ChunkIndex,
			Similarity: m.Similarity,
		})
	}
	return out
}
