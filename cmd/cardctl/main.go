// Command cardctl runs card extraction, dedupe keys and lead exports from
// the command line against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/core"
	"github.com/agenthands/cardleads/internal/core/extraction"
	"github.com/agenthands/cardleads/internal/images"
	"github.com/agenthands/cardleads/internal/llm"
	"github.com/agenthands/cardleads/internal/logging"
	"github.com/agenthands/cardleads/internal/ocr"
	"github.com/agenthands/cardleads/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cardctl",
	Short: "Business card lead tooling",
	Long: `cardctl works with the same config and store as the server.

Commands:
  scan   - OCR and extract a card image file
  key    - print the dedupe key for a contact
  export - write leads as CSV or XLSX
  sync   - push leads to the configured Google Sheet`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadOrDefault()
		}
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or config/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv or xlsx")
	exportCmd.Flags().StringVar(&filterStage, "stage", "", "only leads in this stage id")
	exportCmd.Flags().StringVarP(&filterQuery, "query", "q", "", "match name, company or email")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	syncCmd.Flags().StringVar(&filterStage, "stage", "", "only leads in this stage id")

	keyCmd.Flags().StringVar(&keyInput.Email, "email", "", "email address")
	keyCmd.Flags().StringVar(&keyInput.Phone, "phone", "", "phone number")
	keyCmd.Flags().StringVar(&keyInput.FullName, "name", "", "full name")
	keyCmd.Flags().StringVar(&keyInput.FirstName, "first", "", "first name")
	keyCmd.Flags().StringVar(&keyInput.LastName, "last", "", "last name")
	keyCmd.Flags().StringVar(&keyInput.Company, "company", "", "company")

	rootCmd.AddCommand(scanCmd, keyCmd, exportCmd, syncCmd)
}

// openPipeline builds the pipeline the server would use. The caller closes
// the returned store.
func openPipeline(ctx context.Context) (*core.Pipeline, store.Store, error) {
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	imgs, err := images.NewStore(cfg.Images)
	if err != nil {
		st.Close(ctx)
		return nil, nil, err
	}
	ocrProvider, err := ocr.New(ctx, cfg, logger)
	if err != nil {
		st.Close(ctx)
		return nil, nil, err
	}
	llmClient, err := llm.NewClient(ctx, cfg.LLM, logger)
	if errors.Is(err, llm.ErrNoProvider) {
		llmClient = nil
	} else if err != nil {
		st.Close(ctx)
		return nil, nil, err
	}
	ex := extraction.NewExtractor(llmClient, cfg.Extraction, logger)
	return core.NewPipeline(st, imgs, ocrProvider, ex, logger), st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
