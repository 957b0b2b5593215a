package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"legal_rag/internal/app"
	"legal_rag/internal/config"
	"legal_rag/internal/logger"
)

func main() {
	dataDir := flag.String("data", "", "Data directory for the vector store and registry (overrides DATA_DIR)")
	loadKB := flag.Bool("load-kb", false, "Index the permanent knowledge directory and exit")
	force := flag.Bool("force", false, "With -load-kb, drop and rebuild the permanent collection")
	upload := flag.String("upload", "", "Process a private document for -owner and exit")
	owner := flag.String("owner", "local", "Owner of uploaded documents")
	doc := flag.String("doc", "", "Document id for -upload, or the private document to search")
	source := flag.String("source", "auto", "Retrieval source: auto, private, permanent or both")
	ask := flag.String("ask", "", "Answer one question and exit")
	flag.Parse()

	_ = godotenv.Load()
	if *dataDir != "" {
		os.Setenv("DATA_DIR", *dataDir)
	}

	cfg := config.Config{}
	if err := config.Init(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	logger.Info("config loaded", "data_dir", cfg.DataDir, "knowledge_dir", cfg.KnowledgeDir)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, options{
		loadKB: *loadKB,
		force:  *force,
		upload: *upload,
		owner:  *owner,
		doc:    *doc,
		source: *source,
		ask:    *ask,
	}); err != nil {
		logger.Error("app stopped with error", "error", err)
		os.Exit(1)
	}
}

type options struct {
	loadKB bool
	force  bool
	upload string
	owner  string
	doc    string
	source string
	ask    string
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer a.Close()

	if err := a.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	switch {
	case opts.loadKB:
		sum, err := a.LoadKnowledge(ctx, opts.force)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d, skipped %d, failed %d of %d files (%d chunks)\n",
			sum.Indexed, sum.Skipped, sum.Failed, sum.Files, sum.Chunks)
		return nil

	case opts.upload != "":
		id := opts.doc
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := a.Upload(opts.owner, id, opts.upload); err != nil {
			return err
		}
		a.Wait()
		rec, _ := a.Document(id)
		if rec.Status != app.StatusCompleted {
			return fmt.Errorf("document %s %s: %s", rec.ID, rec.Status, rec.Error)
		}
		fmt.Printf("document %s completed: %d chunks from %d pages in %s\n",
			rec.ID, rec.NumChunks, rec.NumPages, rec.CollectionID)
		return nil

	case opts.ask != "":
		ans, err := a.Ask(ctx, app.Question{Text: opts.ask, Owner: opts.owner, Source: opts.source, DocumentID: opts.doc})
		if err != nil {
			return err
		}
		fmt.Println(ans.Text)
		return nil
	}

	err = a.Run(ctx, app.Session{Owner: opts.owner, Source: opts.source, DocumentID: opts.doc})
	a.Wait()
	return err
}
