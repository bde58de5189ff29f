package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkrupp/saba-backend/internal/infra/config"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/svc/documentsvc"
)

const (
	appName = "saba"
	svcName = "pdftrain"
)

type Config struct {
	config.EnvConfig

	Log      logging.LoggerConfig       `envPrefix:"LOG_"`
	Document documentsvc.DocumentConfig `envPrefix:"DOCUMENT_"`
	GenAI    documentsvc.GenAIConfig    `envPrefix:"GEMINI_"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "pdftrain <file.pdf>",
		Short: "Extract a PDF and send its text to the model chunk by chunk",
		Long: `Extracts the plain text of a PDF, splits it into chunks and sends each
chunk to the configured Gemini model. The resulting summary is printed as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Parse(cmd.Context(), &cfg, strings.ToUpper(appName)); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}

			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}

			logging.Configure(cmd.Context(), cfg.Log, strings.ToLower(appName+"."+svcName))

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, args[0])
		},
	}

	cmd.Flags().String("model", "", "Gemini model name (overrides GEMINI_MODEL)")
	cmd.Flags().Int("chunk-size", 0, "code points per request (overrides DOCUMENT_CHUNK_SIZE)")
	cmd.Flags().String("policy", "", `chunk failure policy, "failfast" or "accumulate"`)
	cmd.Flags().Duration("timeout", 0, "bound for the whole run (overrides DOCUMENT_MODEL_TIMEOUT)")

	return cmd
}

func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()

	if flags.Changed("model") {
		cfg.GenAI.Model, _ = flags.GetString("model")
	}

	if flags.Changed("chunk-size") {
		cfg.Document.ChunkSize, _ = flags.GetInt("chunk-size")
	}

	if flags.Changed("policy") {
		value, _ := flags.GetString("policy")
		cfg.Document.FailurePolicy = documentsvc.FailurePolicy(value)
	}

	policy, err := documentsvc.ParseFailurePolicy(string(cfg.Document.FailurePolicy))
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	cfg.Document.FailurePolicy = policy

	if flags.Changed("timeout") {
		cfg.Document.ModelTimeout, _ = flags.GetDuration("timeout")
	}

	return nil
}

func run(cmd *cobra.Command, cfg Config, path string) (err error) {
	ctx := cmd.Context()
	log := logging.GetLogger("cmd.pdftrain")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		}
	}()

	generator, err := documentsvc.NewGenAIGenerator(ctx, cfg.GenAI)
	if err != nil {
		return fmt.Errorf("new generator: %w", err)
	}

	// no upload store: the CLI reads the file in place
	documentSvc, err := documentsvc.NewDocumentService(
		ctx,
		nil,
		documentsvc.PDFTextExtractor{},
		generator,
		cfg.Document,
	)
	if err != nil {
		return fmt.Errorf("new document service: %w", err)
	}

	text, err := documentSvc.ExtractText(ctx, path)
	if err != nil {
		return err
	}

	summary, err := documentSvc.Summarize(ctx, text)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	if !summary.Success {
		return fmt.Errorf("%d chunks failed", len(summary.Failures))
	}

	return nil
}
