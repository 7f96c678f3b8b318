package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage"
)

// Answer is the result of one question.
type Answer struct {
	// Text is the model's answer, or the rendered generation error.
	Text string
	// Context is the assembled context block the answer was based on.
	Context string
	// Hits are the retrieved chunks, best first.
	Hits []search.Hit
	// Failed is true when Text carries a generation error.
	Failed bool
}

// Responder runs the question-answer flow against one conversation.
type Responder struct {
	conversation storage.ConversationRepository
	searcher     *search.Searcher
	generator    ai.Generator
	monitor      search.SearchMonitor
	logger       *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMonitor observes every search the responder runs.
func WithMonitor(monitor search.SearchMonitor) Option {
	return func(r *Responder) error {
		r.monitor = monitor
		return nil
	}
}

// NewResponder creates a new responder.
func NewResponder(
	conversation storage.ConversationRepository,
	searcher *search.Searcher,
	provider ai.AIProvider,
	opts ...Option,
) (*Responder, error) {
	if conversation == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Responder{
		conversation: conversation,
		searcher:     searcher,
		generator:    provider.Generator(),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Ask answers question from the loaded documents.
//
// The question is logged before anything else. If it cannot be embedded or
// the index cannot be read, the error is returned and no assistant turn is
// logged. A generation failure is rendered into the answer text.
func (r *Responder) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	if _, err := r.conversation.AppendTurn(ctx, &core.ConversationTurn{
		Role:    core.RoleUser,
		Content: question,
	}); err != nil {
		return nil, err
	}

	hits, err := r.searcher.FindRelevantWithMonitor(ctx, question, r.monitor)
	if err != nil {
		return nil, err
	}

	assembled := search.Assemble(hits)
	result := r.generator.Generate(ctx, BuildPrompt(assembled, question))

	answer := &Answer{
		Context: assembled,
		Hits:    hits,
	}
	if result.OK() {
		answer.Text = result.Answer
	} else {
		r.logger.Warn("language model failed", "err", result.Err)
		answer.Text = GenerationErrorPrefix + result.Err.Error()
		answer.Failed = true
	}

	if _, err := r.conversation.AppendTurn(ctx, &core.ConversationTurn{
		Role:    core.RoleAssistant,
		Content: answer.Text,
		Context: &assembled,
	}); err != nil {
		return nil, err
	}

	r.logger.Debug("answered question", "hits", len(hits), "failed", answer.Failed)
	return answer, nil
}

// History returns every turn of the conversation in order.
func (r *Responder) History(ctx context.Context) ([]*core.ConversationTurn, error) {
	return r.conversation.History(ctx)
}
