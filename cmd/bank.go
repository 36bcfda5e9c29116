package cmd

import (
	"fmt"
	"os"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/spf13/cobra"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect and sample the question bank",
}

var bankInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show per-topic question counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadBank(cmd)
		if err != nil {
			return err
		}

		topics := ix.Topics()
		if len(topics) == 0 {
			fmt.Println("Bank is empty.")
			return nil
		}

		modes := []bank.Mode{bank.ModeMCQ, bank.ModeShort, bank.ModeScenario, bank.ModeEssay}
		fmt.Printf("%-32s  %5s  %5s  %8s  %5s\n", "Topic", "MCQ", "Short", "Scenario", "Essay")
		for _, topic := range topics {
			fmt.Printf("%-32s", topic)
			for _, m := range modes {
				fmt.Printf("  %5d", ix.Count(topic, m))
			}
			fmt.Println()
		}
		return nil
	},
}

var bankSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw a random sample of questions for a topic and mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		modeStr, _ := cmd.Flags().GetString("mode")
		n, _ := cmd.Flags().GetInt("n")
		seed, _ := cmd.Flags().GetUint64("seed")

		mode, err := bank.ParseMode(modeStr)
		if err != nil {
			return err
		}
		ix, err := loadBank(cmd)
		if err != nil {
			return err
		}

		var records []bank.Record
		if cmd.Flags().Changed("seed") {
			records = ix.SampleSeeded(topic, mode, n, seed)
		} else {
			records = ix.Sample(topic, mode, n)
		}
		if len(records) == 0 {
			fmt.Printf("No %s questions for topic %q.\n", mode, topic)
			return nil
		}

		for i, r := range records {
			fmt.Printf("%d. [%d marks] %s\n", i+1, r.Marks, r.Stem)
			for j, c := range r.Choices {
				marker := " "
				if j == r.AnswerIndex {
					marker = "*"
				}
				fmt.Printf("   %s %c) %s\n", marker, 'a'+j, c)
			}
		}
		return nil
	},
}

// loadBank builds the index from the --bank directory.
func loadBank(cmd *cobra.Command) (*bank.Index, error) {
	dir, _ := cmd.Flags().GetString("bank")
	schema, _ := cmd.Flags().GetString("schema")

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("bank directory %s: %w", dir, err)
	}
	ix, err := bank.BuildIndex(bank.DirSource{FS: os.DirFS(dir), SchemaName: schema})
	if err != nil {
		return nil, fmt.Errorf("build bank index: %w", err)
	}
	return ix, nil
}

func addBankFlags(cmd *cobra.Command) {
	cmd.Flags().String("bank", "bank", "Question bank directory")
	cmd.Flags().String("schema", bank.SchemaVault, "Bank source schema (vault.v1 or legacy.v1)")
}

func init() {
	bankCmd.AddCommand(bankInspectCmd)
	bankCmd.AddCommand(bankSampleCmd)

	addBankFlags(bankInspectCmd)
	addBankFlags(bankSampleCmd)
	bankSampleCmd.Flags().String("topic", "", "Topic id")
	bankSampleCmd.Flags().String("mode", "mcq", "Question mode (mcq, short, scenario, essay)")
	bankSampleCmd.Flags().Int("n", 5, "Number of questions to draw")
	bankSampleCmd.Flags().Uint64("seed", 0, "Deterministic sampling seed")
	_ = bankSampleCmd.MarkFlagRequired("topic")
}
