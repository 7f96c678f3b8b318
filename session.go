// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docchat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage/badger"
)

// Session is one user's set of uploaded documents and their conversation.
// Everything it holds lives in memory and is discarded by Close.
type Session struct {
	store     *badger.MemoryStore
	provider  ai.AIProvider
	pipeline  *ingestion.Pipeline
	searcher  *search.Searcher
	responder *chat.Responder
	// askMu admits one question at a time.
	askMu  sync.Mutex
	closed atomic.Bool
	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	logger        *slog.Logger
	ingestionOpts []ingestion.Option
	searchOpts    []search.Option
	chatOpts      []chat.Option
}

// WithAIConfig configures the OpenAI-compatible provider the session creates.
func WithAIConfig(cfg *ai.Config) SessionOption {
	return func(o *sessionOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses provider instead of creating one from the AI config.
// The session closes it on Close.
func WithAIProvider(provider ai.AIProvider) SessionOption {
	return func(o *sessionOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithIngestionOptions passes options to the ingestion pipeline.
func WithIngestionOptions(opts ...ingestion.Option) SessionOption {
	return func(o *sessionOptions) {
		o.ingestionOpts = append(o.ingestionOpts, opts...)
	}
}

// WithSearchOptions passes options to the searcher.
func WithSearchOptions(opts ...search.Option) SessionOption {
	return func(o *sessionOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithChatOptions passes options to the responder.
func WithChatOptions(opts ...chat.Option) SessionOption {
	return func(o *sessionOptions) {
		o.chatOpts = append(o.chatOpts, opts...)
	}
}

// NewSession creates a session with its own in-memory store and log.
func NewSession(opts ...SessionOption) (*Session, error) {
	// Apply options
	options := &sessionOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	store, err := badger.OpenMemoryStore(logger)
	if err != nil {
		return nil, err
	}
	docs, conv := store.Documents, store.Conversation

	s := &Session{
		store:  store,
		logger: logger,
	}

	// Create AI provider with configured settings
	s.provider = options.provider
	if s.provider == nil {
		s.provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	ingestionOpts := append([]ingestion.Option{ingestion.WithLogger(logger.With("component", "ingestion"))}, options.ingestionOpts...)
	s.pipeline, err = ingestion.NewPipeline(docs, s.provider, ingestionOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	searchOpts := append([]search.Option{search.WithLogger(logger.With("component", "search"))}, options.searchOpts...)
	s.searcher, err = search.NewSearcher(docs, s.provider, searchOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	chatOpts := append([]chat.Option{chat.WithLogger(logger.With("component", "chat"))}, options.chatOpts...)
	s.responder, err = chat.NewResponder(conv, s.searcher, s.provider, chatOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Ingest adds uploads to the session, in order. See ingestion.Pipeline.Ingest.
func (s *Session) Ingest(ctx context.Context, uploads ...ingestion.Upload) ([]ingestion.Outcome, error) {
	return s.pipeline.Ingest(ctx, uploads...)
}

// IngestFiles reads each path and ingests it under its base name.
// A file that cannot be read gets a failed outcome.
func (s *Session) IngestFiles(ctx context.Context, paths ...string) ([]ingestion.Outcome, error) {
	outcomes := make([]ingestion.Outcome, len(paths))
	uploads := make([]ingestion.Upload, 0, len(paths))
	positions := make([]int, 0, len(paths))

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Error("error reading file", "path", path, "err", err)
			upload := ingestion.NewUpload(path, nil)
			outcomes[i] = ingestion.Outcome{Name: upload.Name, Status: ingestion.StatusFailed, Err: err}
			continue
		}
		uploads = append(uploads, ingestion.NewUpload(path, data))
		positions = append(positions, i)
	}

	results, err := s.pipeline.Ingest(ctx, uploads...)
	if err != nil {
		return nil, err
	}
	for j, outcome := range results {
		outcomes[positions[j]] = outcome
	}
	return outcomes, nil
}

// Ask answers a question from the session's documents.
func (s *Session) Ask(ctx context.Context, question string) (*chat.Answer, error) {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	return s.responder.Ask(ctx, question)
}

// Search returns the chunks most relevant to question without asking the
// language model or touching the conversation log.
func (s *Session) Search(ctx context.Context, question string, monitor search.SearchMonitor) ([]search.Hit, error) {
	return s.searcher.FindRelevantWithMonitor(ctx, question, monitor)
}

// History returns the conversation so far, in order.
func (s *Session) History(ctx context.Context) ([]*core.ConversationTurn, error) {
	return s.responder.History(ctx)
}

// Documents returns the loaded documents in upload order.
func (s *Session) Documents(ctx context.Context) ([]*core.Document, error) {
	return s.store.Documents.ListDocuments(ctx)
}

// Close releases every resource held by the session.
// Calls after the first return nil.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	var errs []error

	if s.pipeline != nil {
		s.pipeline.Release()
	}

	// Close AI provider first
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing session store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
