package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AndyVanLandhof/psychprep/internal/calibration"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
	"github.com/AndyVanLandhof/psychprep/internal/marking"
	"github.com/AndyVanLandhof/psychprep/internal/store"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Mark a sample corpus and report marking accuracy",
	Long: `Runs the offline calibration pipeline: marks every synthetic answer in
a samples file against the paper's mark scheme and reports the error
between awarded and target marks, overall and per performance tier.

Requires the marking service credential in the environment (a .env file
in the working directory is loaded if present).`,
	RunE: runCalibrate,
}

// calibrateViper binds calibrate flags plus PSYCHPREP_* env vars.
func calibrateViper(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("PSYCHPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	v := calibrateViper(cmd)

	paperID := v.GetString("paper")
	samplesPath := v.GetString("samples")
	schemePath := v.GetString("markscheme")
	outPath := v.GetString("out")

	// The credential check runs before any work: a pipeline with no
	// service access must not produce a partial run. PSYCHPREP_* vars
	// win; the standard API key variables are probed as a fallback,
	// same as the practice commands.
	cfg := llm.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		discovered, ok := llm.DiscoverConfig()
		if !ok {
			slog.Error("marking service credential missing", "err", err)
			os.Exit(1)
		}
		cfg = discovered
	}

	corpus, err := calibration.LoadCorpus(os.DirFS(filepath.Dir(samplesPath)), filepath.Base(samplesPath))
	if err != nil {
		return err
	}
	schemeText, err := os.ReadFile(schemePath)
	if err != nil {
		return fmt.Errorf("read mark scheme: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	provider, err := llm.NewProvider(ctx, cfg, s.EventRepo())
	if err != nil {
		return fmt.Errorf("configure marking provider: %w", err)
	}

	pipeline, err := calibration.New(marking.New(provider, marking.DefaultConfig()), paperID, provider.ModelID())
	if err != nil {
		return err
	}

	slog.Info("calibration run starting",
		"paper", paperID, "samples", corpus.SampleCount(), "model", provider.ModelID())

	results, err := pipeline.Run(ctx, corpus, string(schemeText))
	if err != nil {
		return err
	}
	report := pipeline.BuildReport(corpus, results)
	if err := calibration.WriteReport(outPath, report); err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", outPath)
	if report.Summary.Global.MeanAbsError != nil {
		fmt.Printf("Mean absolute error: %.2f marks over %d samples\n",
			*report.Summary.Global.MeanAbsError, report.Summary.Global.Count)
	} else {
		fmt.Println("No samples were marked successfully.")
	}
	return nil
}

func init() {
	f := calibrateCmd.Flags()
	f.String("paper", "", fmt.Sprintf("Paper segmenter id (%s)", strings.Join(calibration.PaperIDs(), ", ")))
	f.String("samples", "", "Path to the samples JSON artifact")
	f.String("markscheme", "", "Path to the extracted mark-scheme text file")
	f.String("out", "calibration-report.json", "Report output path")
	_ = calibrateCmd.MarkFlagRequired("paper")
	_ = calibrateCmd.MarkFlagRequired("samples")
	_ = calibrateCmd.MarkFlagRequired("markscheme")
}
