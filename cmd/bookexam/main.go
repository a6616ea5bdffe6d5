package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bookexam/internal/audio"
	"bookexam/internal/exam"
	"bookexam/internal/handler"
	appI18n "bookexam/internal/i18n"
	"bookexam/internal/llm"
	"bookexam/internal/llm/prompts"
	"bookexam/internal/model"
	"bookexam/internal/store"
)

func main() {
	// A missing .env is fine; flags and environment still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bookexam",
		Short: "Chapter-based question generation and assessment server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "bookexam.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the LLM gateway (or set BOOKEXAM_LLM_KEY)")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", 30*time.Second, "Per-attempt LLM request timeout")
	f.Int("max-retries", 3, "Maximum attempts per LLM request")
	f.Int("truncate-chars", 8000, "Chapter text budget per prompt, in characters")
	f.Int64("max-upload", 10<<20, "Maximum upload size in bytes")
	f.String("grade-scale", "A:90,B:75,C:60,D:40,F:0", "Grade letters with minimum percentages")
	f.Bool("audio", false, "Enable speech synthesis and transcription endpoints")
	f.StringP("lang", "l", "en", "Notice language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export test history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "bookexam.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("BOOKEXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("bookexam")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/bookexam")
	v.AddConfigPath("/etc/bookexam")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// parseGradeScale parses "A:90,B:75,..." into a descending threshold table.
func parseGradeScale(s string) (model.GradeScale, error) {
	if strings.TrimSpace(s) == "" {
		return model.DefaultGradeScale, nil
	}
	var scale model.GradeScale
	for _, part := range strings.Split(s, ",") {
		letter, min, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || letter == "" {
			return nil, fmt.Errorf("invalid grade band %q", part)
		}
		var pct float64
		if _, err := fmt.Sscanf(min, "%f", &pct); err != nil {
			return nil, fmt.Errorf("invalid grade threshold %q: %w", part, err)
		}
		scale = append(scale, model.GradeBand{Letter: strings.TrimSpace(letter), Min: pct})
	}
	for i := 1; i < len(scale); i++ {
		if scale[i].Min >= scale[i-1].Min {
			return nil, fmt.Errorf("grade thresholds must be strictly descending")
		}
	}
	return scale, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	apiKey := v.GetString("llm-key")
	if apiKey == "" {
		return fmt.Errorf("LLM API key is required: set --llm-key flag or BOOKEXAM_LLM_KEY env var")
	}

	scale, err := parseGradeScale(v.GetString("grade-scale"))
	if err != nil {
		return fmt.Errorf("parse grade scale: %w", err)
	}

	cfg := model.Config{
		TruncateChars:  v.GetInt("truncate-chars"),
		LLMTimeout:     v.GetDuration("llm-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		GradeScale:     scale,
		MaxUploadBytes: v.GetInt64("max-upload"),
		Lang:           v.GetString("lang"),
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	if err := prompts.Load(); err != nil {
		return fmt.Errorf("load prompt templates: %w", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		apiKey,
		v.GetString("llm-model"),
		cfg.LLMTimeout,
		cfg.MaxRetries,
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	var speech *audio.Service
	if v.GetBool("audio") {
		speech = audio.New(v.GetString("llm-url"), apiKey, cfg.LLMTimeout)
	}

	h := handler.New(
		db,
		store.NewSessions(),
		exam.NewGenerator(llmClient, cfg.TruncateChars),
		exam.NewEvaluator(llmClient),
		speech,
		cfg,
	)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", cfg.Lang,
		"truncate_chars", cfg.TruncateChars,
		"max_retries", cfg.MaxRetries,
		"audio", speech != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllResults()
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}
