package cmd

import (
	"context"
	"fmt"

	"github.com/AndyVanLandhof/psychprep/internal/llm"
	"github.com/AndyVanLandhof/psychprep/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show LLM usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("aggregate usage: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Usage by purpose:")
		fmt.Printf("%-14s  %8s  %8s  %10s  %10s\n", "Purpose", "Calls", "Failed", "In", "Out")
		for _, u := range byPurpose {
			fmt.Printf("%-14s  %8d  %8d  %10d  %10d\n",
				u.Purpose, u.Requests, u.Failures, u.InputTokens, u.OutputTokens)
		}

		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("aggregate usage by model: %w", err)
		}

		fmt.Println("\nUsage by model:")
		fmt.Printf("%-12s  %-30s  %8s  %10s  %10s  %10s\n", "Provider", "Model", "Calls", "In", "Out", "Est. cost")
		total := 0.0
		priced := true
		for _, u := range byModel {
			costStr := "?"
			if c := llm.LookupCost(u.Model); c != nil {
				cost := c.Cost(u.InputTokens, u.OutputTokens)
				total += cost
				costStr = fmt.Sprintf("$%.4f", cost)
			} else {
				priced = false
			}
			fmt.Printf("%-12s  %-30s  %8d  %10d  %10d  %10s\n",
				u.Provider, u.Model, u.Requests, u.InputTokens, u.OutputTokens, costStr)
		}

		if priced {
			fmt.Printf("\nTotal estimated cost: $%.4f\n", total)
		} else {
			fmt.Printf("\nTotal estimated cost: at least $%.4f (some models have no pricing data)\n", total)
		}
		return nil
	},
}
