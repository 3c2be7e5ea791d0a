package usecase

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var answerPrompt = template.Must(template.ParseFS(promptTemplates, "templates/answer_prompt.txt"))

const (
	fallbackMaxArticles = 3
	fallbackExcerpt     = 200

	noInformationAnswer = "I don't have enough information in my current news database to answer your question. " +
		"Please try asking about different topics or check back later for updated news coverage."
)

var _ port.Synthesizer = (*AnswerUseCase)(nil)

// AnswerUseCase turns retrieved articles into a natural-language answer.
type AnswerUseCase struct {
	generator port.Generator
	opts      port.GenOptions
	log       *slog.Logger
}

// NewAnswerUseCase creates an answer use case. generator may be nil, in
// which case every answer is the templated summary.
func NewAnswerUseCase(generator port.Generator, opts port.GenOptions, log *slog.Logger) *AnswerUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &AnswerUseCase{generator: generator, opts: opts, log: log}
}

type promptData struct {
	Context  string
	Question string
}

// BuildPrompt renders the grounding prompt for question.
func (u *AnswerUseCase) BuildPrompt(question string, articles []domain.ScoredArticle) (string, error) {
	blocks := make([]string, len(articles))
	for i, a := range articles {
		blocks[i] = fmt.Sprintf("[Source %d: %s]\nTitle: %s\nContent: %s\n",
			i+1, a.Article.Source, a.Article.Title, a.Article.Content)
	}

	var sb strings.Builder
	err := answerPrompt.Execute(&sb, promptData{
		Context:  strings.Join(blocks, "\n---\n"),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

// Answer never fails: any generation problem yields the templated summary.
func (u *AnswerUseCase) Answer(ctx context.Context, question string, articles []domain.ScoredArticle) string {
	if u.generator == nil || len(articles) == 0 {
		return FallbackAnswer(articles)
	}

	prompt, err := u.BuildPrompt(question, articles)
	if err != nil {
		u.log.Error("prompt rendering failed", "error", err)
		return FallbackAnswer(articles)
	}

	answer, err := u.generator.Generate(ctx, prompt, u.opts)
	if err != nil {
		u.log.Warn("answer generation failed, using summary", "model", u.generator.ModelName(), "error", err)
		return FallbackAnswer(articles)
	}
	if strings.TrimSpace(answer) == "" {
		u.log.Warn("answer generation returned empty text, using summary", "model", u.generator.ModelName())
		return FallbackAnswer(articles)
	}
	return answer
}

// FallbackAnswer summarises up to three articles without a model.
func FallbackAnswer(articles []domain.ScoredArticle) string {
	if len(articles) == 0 {
		return noInformationAnswer
	}

	var sources []string
	seen := make(map[string]struct{})
	for _, a := range articles {
		if _, ok := seen[a.Article.Source]; ok {
			continue
		}
		seen[a.Article.Source] = struct{}{}
		sources = append(sources, a.Article.Source)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on recent news from %s, here's what I found about your question:\n\n", strings.Join(sources, ", "))

	for i, a := range articles {
		if i == fallbackMaxArticles {
			break
		}
		fmt.Fprintf(&sb, "%d. **%s** (%s)\n", i+1, a.Article.Title, a.Article.Source)
		fmt.Fprintf(&sb, "%s...\n\n", excerpt(a.Article.Content, fallbackExcerpt))
	}

	plural := ""
	if len(articles) > 1 {
		plural = "s"
	}
	fmt.Fprintf(&sb, "This information is based on %d relevant news article%s from my database.", len(articles), plural)
	return sb.String()
}

func excerpt(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
