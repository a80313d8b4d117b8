package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"compliance/internal/config"
	"compliance/internal/domain"
	embopenai "compliance/internal/embedding/openai"
	"compliance/internal/embedding/tfidf"
	"compliance/internal/index"
	"compliance/internal/judge"
	judgeopenai "compliance/internal/judge/openai"
	"compliance/internal/rules"
	"compliance/internal/service"
	"compliance/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		oneShot   string
		batchPath string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/compliance/config.yaml if not provided)")
	flag.StringVar(&oneShot, "text", "", "Classify a single utterance and exit")
	flag.StringVar(&batchPath, "batch", "", "Classify a .txt file (one utterance per line) and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fatal(logger, "failed to load config", err)
	}

	loaded, skipped, err := rules.Load(cfg.RulesPath, logger)
	if err != nil {
		fatal(logger, "failed to load rule catalogue", err)
	}
	if len(skipped) > 0 {
		logger.Warn("rule catalogue loaded with skipped records", "loaded", len(loaded), "skipped", len(skipped))
	}
	docs := rules.BuildDocuments(loaded)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		fatal(logger, "failed to build embedder", err)
	}
	ix, err := index.Build(docs, embedder, cfg.Retriever.TopK)
	if err != nil {
		fatal(logger, "failed to build retrieval index", err)
	}

	completer, err := judgeopenai.NewClient(judgeopenai.Config{
		BaseURL:   cfg.Model.BaseURL,
		APIKey:    os.Getenv(cfg.Model.APIKeyEnv),
		Model:     cfg.Model.Model,
		MaxTokens: int64(cfg.Model.MaxTokens),
		Timeout:   time.Duration(cfg.Model.TimeoutSecs) * time.Second,
	})
	if err != nil {
		fatal(logger, "failed to build completion client", err)
	}

	opts := []service.Option{
		service.WithConcurrency(cfg.Batch.Concurrency),
		service.WithLogger(logger),
	}
	if !cfg.PreCheckEnabled() {
		opts = append(opts, service.WithoutPreCheck())
	}
	classifier := service.New(ix, judge.NewEngine(completer), opts...)

	switch {
	case oneShot != "":
		verdict, err := classifier.Classify(context.Background(), oneShot)
		if err != nil {
			fatal(logger, "classification failed", err)
		}
		printVerdict(oneShot, verdict)
	case batchPath != "":
		if err := runBatch(classifier, batchPath); err != nil {
			fatal(logger, "batch classification failed", err)
		}
	default:
		m := tui.New(classifier, len(loaded))
		if _, err := tea.NewProgram(m).Run(); err != nil {
			fatal(logger, "tui failed", err)
		}
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embopenai.NewClient(embopenai.Config{
			BaseURL: cfg.Embedder.OpenAI.BaseURL,
			APIKey:  os.Getenv(cfg.Embedder.OpenAI.APIKeyEnv),
			Model:   cfg.Embedder.OpenAI.Model,
			Timeout: time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func runBatch(classifier *service.Classifier, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(texts) == 0 {
		return fmt.Errorf("no utterances found in %s", path)
	}

	verdicts, err := classifier.ClassifyMany(context.Background(), texts)
	if err != nil {
		return err
	}

	violations, prechecked := 0, 0
	for i, v := range verdicts {
		printVerdict(texts[i], v)
		fmt.Println(strings.Repeat("-", 40))
		if v.IsViolation {
			violations++
		}
		if v.PreCheckUsed {
			prechecked++
		}
	}
	fmt.Printf("共 %d 条：违规 %d，合规 %d，预检查 %d\n",
		len(verdicts), violations, len(verdicts)-violations, prechecked)
	return nil
}

func printVerdict(text string, v domain.Verdict) {
	status := "合规"
	if v.IsViolation {
		status = "违规"
	}
	method := "深度分析"
	if v.PreCheckUsed {
		method = "预检查"
	}
	fmt.Printf("文本: %s\n", text)
	fmt.Printf("结果: %s  置信度: %s  分析方式: %s\n", status, v.Confidence, method)
	if len(v.TriggeredEvents) > 0 {
		fmt.Printf("触发事件: %s\n", strings.Join(v.TriggeredEvents, "、"))
	}
	fmt.Printf("理由: %s\n", v.Reason)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
