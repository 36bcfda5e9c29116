package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/genset"
	"github.com/AndyVanLandhof/psychprep/internal/llm"
	"github.com/AndyVanLandhof/psychprep/internal/marking"
	"github.com/AndyVanLandhof/psychprep/internal/runner"
	"github.com/AndyVanLandhof/psychprep/internal/score"
	"github.com/AndyVanLandhof/psychprep/internal/store"
	"github.com/spf13/cobra"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a practice session for a topic",
	Long: `Runs one practice session: the session opens instantly on a locally
sampled question set while an AI-generated set is fetched in the
background, answers are captured with resume-on-restart, and the attempt
is marked on submission.`,
	RunE: runPractice,
}

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Warm the session cache for a topic",
	RunE:  runPrefetch,
}

// printSink reports submitted attempts on stdout.
type printSink struct{}

func (printSink) RecordAttempt(_ context.Context, mode bank.Mode, topicID string, result score.Result) error {
	fmt.Printf("\nRecorded %s attempt on %s: %d/%d (%d%%, grade %s)\n",
		mode, topicID, result.Raw, result.Max, result.Percent, result.Grade)
	return nil
}

func runPractice(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	title, _ := cmd.Flags().GetString("title")
	modeStr, _ := cmd.Flags().GetString("mode")
	offline, _ := cmd.Flags().GetBool("offline")
	if title == "" {
		title = topic
	}

	mode, err := bank.ParseMode(modeStr)
	if err != nil {
		return err
	}
	ix, err := loadBank(cmd)
	if err != nil {
		return err
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

	var gen runner.SetGenerator
	var marker runner.Marker
	if offline {
		marker = offlineMarker{}
	} else {
		provider, err := llm.NewProviderFromEnv(ctx, s.EventRepo())
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}
		gen = genset.New(provider, genset.DefaultConfig())
		marker = marking.New(provider, marking.DefaultConfig())
	}

	r := runner.New(mode, topic, title, ix, gen, marker, s.CacheRepo(), printSink{}, runner.DefaultConfig())
	if err := r.Start(ctx); err != nil {
		return err
	}

	return sessionLoop(ctx, r, mode)
}

// sessionLoop is a minimal line-driven front end over the runner.
func sessionLoop(ctx context.Context, r *runner.Runner, mode bank.Mode) error {
	in := bufio.NewScanner(os.Stdin)
	fmt.Printf("Session started: %d questions. Commands: answer text, :next, :prev, :submit, :quit\n", r.Len())

	for {
		rec, idx, err := r.Current()
		if err != nil {
			return err
		}
		fmt.Printf("\n[%d/%d] (%d marks) %s\n", idx+1, r.Len(), rec.Marks, rec.Stem)
		for j, c := range rec.Choices {
			fmt.Printf("  %c) %s\n", 'a'+j, c)
		}
		fmt.Print("> ")

		if !in.Scan() {
			r.Cancel()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())

		switch line {
		case ":next":
			if err := r.Next(ctx); err != nil {
				return err
			}
		case ":prev":
			if err := r.Prev(ctx); err != nil {
				return err
			}
		case ":quit":
			r.Cancel()
			fmt.Println("Session saved. Run the same command to resume.")
			return nil
		case ":submit":
			out, err := r.Submit(ctx)
			if err != nil {
				return err
			}
			printOutcome(out)
			return nil
		case "":
		default:
			ans := runner.Answer{Choice: -1, Text: line}
			if mode == bank.ModeMCQ {
				choice, err := parseChoice(line, len(rec.Choices))
				if err != nil {
					fmt.Println(err)
					continue
				}
				ans = runner.Answer{Choice: choice}
			}
			if err := r.Answer(ctx, idx, ans); err != nil {
				return err
			}
			if err := r.Next(ctx); err != nil {
				return err
			}
		}
	}
}

// parseChoice accepts "a".."d" or a one-based number.
func parseChoice(s string, numChoices int) (int, error) {
	s = strings.ToLower(s)
	var choice int
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		choice = int(s[0] - 'a')
	} else {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("answer with a letter (a-%c) or number (1-%d)", 'a'+numChoices-1, numChoices)
		}
		choice = n - 1
	}
	if choice < 0 || choice >= numChoices {
		return 0, fmt.Errorf("choice out of range: there are %d options", numChoices)
	}
	return choice, nil
}

func printOutcome(out marking.Outcome) {
	fmt.Printf("\nResult: %d/%d (%d%%) — grade %s\n", out.Raw, out.Max, out.Percent, out.Grade)
	if len(out.PerItem) > 0 {
		fmt.Printf("Per item: %v\n", out.PerItem)
	}
	if out.Rationale != "" {
		fmt.Printf("Examiner notes: %s\n", out.Rationale)
	}
	if out.Source == marking.SourceHeuristic {
		fmt.Println("(marked by the local length heuristic; the marking service was unavailable)")
	}
}

// offlineMarker grades without any network access.
type offlineMarker struct{}

func (offlineMarker) Mark(_ context.Context, mode bank.Mode, req marking.Request) marking.Outcome {
	awarded := marking.HeuristicAward(mode, req.StudentAnswer, req.MaxMarks)
	res := score.NewResult(awarded, req.MaxMarks)
	return marking.Outcome{Result: res, Source: marking.SourceHeuristic}
}

func (m offlineMarker) MarkItems(ctx context.Context, mode bank.Mode, excerptFor func(bank.Record) string, items []marking.Item) marking.Outcome {
	raw, max := 0, 0
	perItem := make([]int, 0, len(items))
	for _, it := range items {
		out := m.Mark(ctx, mode, marking.Request{
			QuestionText:      it.Record.Stem,
			MarkSchemeExcerpt: excerptFor(it.Record),
			StudentAnswer:     it.Answer,
			MaxMarks:          it.Record.Marks,
		})
		raw += out.Raw
		max += it.Record.Marks
		perItem = append(perItem, out.Raw)
	}
	res := score.NewResult(raw, max)
	res.PerItem = perItem
	return marking.Outcome{Result: res, Source: marking.SourceHeuristic}
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	title, _ := cmd.Flags().GetString("title")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if title == "" {
		title = topic
	}

	ix, err := loadBank(cmd)
	if err != nil {
		return err
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
	provider, err := llm.NewProviderFromEnv(ctx, s.EventRepo())
	if err != nil {
		return fmt.Errorf("configure LLM provider: %w", err)
	}

	runner.Prefetch(ctx, ix, genset.New(provider, genset.DefaultConfig()), s.CacheRepo(), topic, title, timeout)
	fmt.Printf("Session cache warmed for topic %q.\n", topic)
	return nil
}

func init() {
	addBankFlags(practiceCmd)
	practiceCmd.Flags().String("topic", "", "Topic id")
	practiceCmd.Flags().String("title", "", "Topic title used in generation prompts (defaults to the id)")
	practiceCmd.Flags().String("mode", "mcq", "Session mode (mcq, short, scenario, essay)")
	practiceCmd.Flags().Bool("offline", false, "No network: bank questions and heuristic marking only")
	_ = practiceCmd.MarkFlagRequired("topic")

	addBankFlags(prefetchCmd)
	prefetchCmd.Flags().String("topic", "", "Topic id")
	prefetchCmd.Flags().String("title", "", "Topic title used in generation prompts (defaults to the id)")
	prefetchCmd.Flags().Duration("timeout", 10*time.Second, "Per-mode generation timeout")
	_ = prefetchCmd.MarkFlagRequired("topic")
}
