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


package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/extract"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/segment"
	"github.com/poiesic/docchat/watch"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// newProvider builds the AI provider for a session. Tests replace it.
var newProvider = openai.NewProvider

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:   "docchat",
		Usage:  "Ask questions about your documents",
		Reader: in,
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"DOCCHAT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default ./docchat.yaml, then ~/.config/docchat/config.yaml)",
				EnvVars: []string{"DOCCHAT_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadConfig(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Load documents and answer one question",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(sessionFlags(),
					&cli.BoolFlag{
						Name:  "show-context",
						Usage: "Print the assembled context after the answer",
					},
				),
			},
			{
				Name:   "chat",
				Usage:  "Load documents and answer questions read from stdin",
				Action: chatCommand,
				Flags: append(sessionFlags(),
					&cli.StringFlag{
						Name:  "watch",
						Usage: "Load new documents that appear in this directory",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Show the sections most relevant to a query without asking the model",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(sessionFlags(),
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each search stage",
					},
				),
			},
			{
				Name:      "init-config",
				Usage:     "Write the current settings to a YAML config file",
				ArgsUsage: "[PATH]",
				Action:    initConfigCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
			{
				Name:      "sections",
				Usage:     "Print the sections a document is split into",
				ArgsUsage: "FILE",
				Action:    sectionsCommand,
				Flags: []cli.Flag{
					maxChunkWordsFlag(),
				},
			},
		},
	}
}

func maxChunkWordsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "max-chunk-words",
		Usage:   "Maximum words per section chunk",
		EnvVars: []string{"DOCCHAT_MAX_CHUNK_WORDS"},
	}
}

// sessionFlags are shared by every command that talks to the models.
// None has a Value; unset flags leave the config file value in place.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "doc",
			Aliases:  []string{"d"},
			Usage:    "Document to load (pdf, docx, txt, md); repeatable",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Base URL of the OpenAI-compatible or Azure OpenAI endpoint",
			EnvVars: []string{"DOCCHAT_HOST", "AZURE_OPENAI_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "api-type",
			Usage:   "API dialect (openai, azure)",
			EnvVars: []string{"DOCCHAT_API_TYPE"},
		},
		&cli.StringFlag{
			Name:    "api-version",
			Usage:   "Azure OpenAI API version",
			EnvVars: []string{"DOCCHAT_API_VERSION", "AZURE_OPENAI_API_VERSION"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"DOCCHAT_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model or Azure deployment name",
			EnvVars: []string{"DOCCHAT_CHAT_MODEL"},
		},
		maxChunkWordsFlag(),
		&cli.IntFlag{
			Name:    "top-k",
			Usage:   "Number of sections used as context",
			EnvVars: []string{"DOCCHAT_TOP_K"},
		},
		&cli.IntFlag{
			Name:    "pool-size",
			Usage:   "Number of documents processed concurrently",
			EnvVars: []string{"DOCCHAT_POOL_SIZE"},
		},
		&cli.IntFlag{
			Name:    "embed-retries",
			Usage:   "Attempts per embedding request",
			EnvVars: []string{"DOCCHAT_EMBED_RETRIES"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads .env and the YAML config and stores the result in the
// app metadata.
func loadConfig(c *cli.Context) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var (
		cfg  *config.AppConfig
		path = c.String("config")
		err  error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if path != "" {
		slog.Debug("loaded config", "path", path)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

// resolveConfig applies flags that were set to the loaded config.
func resolveConfig(c *cli.Context) *config.AppConfig {
	cfg, _ := c.App.Metadata[configKey].(*config.AppConfig)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if c.IsSet("host") {
		cfg.Model.Host = c.String("host")
		cfg.Model.EmbeddingHost = ""
		cfg.Model.ChatHost = ""
	}
	if c.IsSet("api-type") {
		cfg.Model.APIType = c.String("api-type")
	}
	if c.IsSet("api-version") {
		cfg.Model.APIVersion = c.String("api-version")
	}
	if c.IsSet("embedding-model") {
		cfg.Model.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("chat-model") {
		cfg.Model.ChatModel = c.String("chat-model")
	}
	if c.IsSet("max-chunk-words") {
		cfg.Retrieval.MaxChunkWords = c.Int("max-chunk-words")
	}
	if c.IsSet("top-k") {
		cfg.Retrieval.TopK = c.Int("top-k")
	}
	if c.IsSet("pool-size") {
		cfg.Ingestion.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("embed-retries") {
		cfg.Ingestion.EmbedRetries = c.Int("embed-retries")
	}
	return cfg
}

// openSession creates a session from the resolved config and loads the
// --doc files into it.
func openSession(c *cli.Context) (*docchat.Session, *config.AppConfig, error) {
	cfg := resolveConfig(c)

	aiConfig := cfg.Model.AIConfig()
	if err := aiConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	provider, err := newProvider(aiConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	ingestionOpts := []ingestion.Option{
		ingestion.WithMaxChunkWords(cfg.Retrieval.MaxChunkWords),
		ingestion.WithEmbedRetries(cfg.Ingestion.EmbedRetries, cfg.Ingestion.RetryDelay),
	}
	if cfg.Ingestion.PoolSize > 0 {
		ingestionOpts = append(ingestionOpts, ingestion.WithPoolSize(cfg.Ingestion.PoolSize))
	}

	session, err := docchat.NewSession(
		docchat.WithAIProvider(provider),
		docchat.WithIngestionOptions(ingestionOpts...),
		docchat.WithSearchOptions(search.WithTopK(cfg.Retrieval.TopK)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	outcomes, err := session.IngestFiles(c.Context, c.StringSlice("doc")...)
	if err != nil {
		session.Close()
		return nil, nil, fmt.Errorf("failed to load documents: %w", err)
	}
	printOutcomes(c.App.ErrWriter, outcomes)
	return session, cfg, nil
}

func printOutcomes(w io.Writer, outcomes []ingestion.Outcome) {
	for _, o := range outcomes {
		switch o.Status {
		case ingestion.StatusLoaded:
			fmt.Fprintf(w, "Loaded %s (%d sections)\n", o.Name, o.Sections)
		case ingestion.StatusSkipped:
			fmt.Fprintf(w, "Skipped %s (already loaded)\n", o.Name)
		default:
			fmt.Fprintf(w, "Failed to load %s: %v\n", o.Name, o.Err)
		}
	}
}

func printHits(w io.Writer, hits []search.Hit) {
	for i, hit := range hits {
		fmt.Fprintf(w, "  %d. [%0.3f] %s | %s\n", i+1, hit.Score, hit.Meta.DocumentName, hit.Meta.Header)
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	session, _, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	answer, err := session.Ask(c.Context, question)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintln(out, answer.Text)
	if len(answer.Hits) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		printHits(out, answer.Hits)
	}
	if c.Bool("show-context") {
		fmt.Fprintln(out)
		fmt.Fprintln(out, answer.Context)
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	session, cfg, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if dir := c.String("watch"); dir != "" {
		done, err := watchDirectory(ctx, c.App.ErrWriter, session, dir, cfg)
		if err != nil {
			return err
		}
		// Stop watching and let any in-flight load finish before the
		// session is closed.
		defer func() {
			cancel()
			<-done
		}()
	}

	out := c.App.Writer
	fmt.Fprintln(out, "Ask a question about your document(s). Commands: /docs, /history, /quit")
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/docs":
			if err := printDocuments(ctx, out, session); err != nil {
				return err
			}
			continue
		case "/history":
			if err := printHistory(ctx, out, session); err != nil {
				return err
			}
			continue
		}

		answer, err := session.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, answer.Text)
		if len(answer.Hits) > 0 {
			fmt.Fprintln(out, "Sources:")
			printHits(out, answer.Hits)
		}
	}
	return scanner.Err()
}

// watchDirectory loads documents that appear in dir until ctx is done.
// The returned channel is closed once the last load has finished.
func watchDirectory(ctx context.Context, w io.Writer, session *docchat.Session, dir string, cfg *config.AppConfig) (<-chan struct{}, error) {
	watcher, err := watch.New(watch.WithDebounce(cfg.Watch.Debounce))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	paths, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()
		for path := range paths {
			outcomes, err := session.IngestFiles(ctx, path)
			if err != nil {
				slog.Error("error loading watched file", "path", path, "err", err)
				continue
			}
			printOutcomes(w, outcomes)
		}
	}()
	fmt.Fprintf(w, "Watching %s for new documents\n", dir)
	return done, nil
}

func printDocuments(ctx context.Context, w io.Writer, session *docchat.Session) error {
	docs, err := session.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents loaded.")
		return nil
	}
	for _, doc := range docs {
		fmt.Fprintf(w, "%s (%s, %d sections)\n", doc.Name, doc.Kind, len(doc.Chunks))
	}
	return nil
}

func printHistory(ctx context.Context, w io.Writer, session *docchat.Session) error {
	history, err := session.History(ctx)
	if err != nil {
		return err
	}
	for _, turn := range history {
		fmt.Fprintf(w, "[%s] %s: %s\n", turn.Timestamp.Local().Format("15:04:05"), turn.Role, turn.Content)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	session, _, err := openSession(c)
	if err != nil {
		return err
	}
	defer session.Close()

	var monitor search.SearchMonitor
	if c.Bool("trace") {
		monitor = search.NewTraceMonitor(c.App.ErrWriter)
	}
	hits, err := session.Search(c.Context, query, monitor)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(out, "%d: [%0.3f] %s | %s\n%s\n\n", i+1, hit.Score, hit.Meta.DocumentName, hit.Meta.Header, hit.Text)
	}
	return nil
}

// initConfigCommand writes the loaded config, defaults filled in, to PATH
// or to the per-user config location.
func initConfigCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		var err error
		if path, err = config.UserPath(); err != nil {
			return fmt.Errorf("failed to locate config directory: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(path, resolveConfig(c)); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func sectionsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one FILE is required")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	maxWords := resolveConfig(c).Retrieval.MaxChunkWords
	upload := ingestion.NewUpload(path, data)
	text, err := extract.New(slog.Default()).Extract(c.Context, upload.Kind, upload.Data)
	if err != nil {
		return err
	}

	out := c.App.Writer
	chunks := segment.Segment(text, maxWords)
	fmt.Fprintf(out, "%s: %d sections\n", upload.Name, len(chunks))
	for i, chunk := range chunks {
		fmt.Fprintf(out, "\n--- %d. %s (%d words)\n%s\n", i+1, chunk.Header, chunk.WordCount(), chunk.Text)
	}
	return nil
}
