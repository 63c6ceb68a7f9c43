package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/retrieval"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	minScore      float64
	minScoreSet   bool
	sentences     int
	forceSummary  bool
	historyPath   string
	chatID        string
	chatLimit     int
	titleMaxChars int
)

func init() {
	rootCmd.AddCommand(searchCmd, summarizeCmd, chatCmd, titleCmd)

	searchCmd.Flags().Float64Var(&minScore, "min-score", 0, "drop results below this total (default: ranking.min_score)")

	summarizeCmd.Flags().IntVarP(&sentences, "sentences", "n", 0, "maximum sentences (default: summarizer.max_sentences)")
	summarizeCmd.Flags().BoolVar(&forceSummary, "force", false, "regenerate even when a fresh summary is cached")

	chatCmd.Flags().StringVar(&historyPath, "history", "", "JSON file with earlier turns: [{\"role\":\"user\",\"content\":\"...\"}]")
	chatCmd.Flags().StringVar(&chatID, "chat-id", "", "chat id for log correlation")
	chatCmd.Flags().IntVar(&chatLimit, "limit", 0, "documents to rank into the answer (default: retrieval.limit)")

	titleCmd.Flags().IntVar(&titleMaxChars, "max", retrieval.DefaultTitleLength, "maximum title length")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank stored documents against a query",
	Long: `Rank every stored document by the weighted sum of semantic, filename,
keyword and fuzzy scores.

Examples:
  locket search "refund policy"
  locket search --min-score 0.3 "vacation carry over"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		minScoreSet = cmd.Flags().Changed("min-score")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			threshold := a.cfg.Ranking.MinScore
			if minScoreSet {
				threshold = minScore
			}
			resp, err := a.search(ctx, query, threshold)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, err := a.summarize(ctx, id, sentences, forceSummary)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Answer a chat message from the stored documents",
	Long: `Answer a chat message. Greetings and small talk get a fixed reply;
other messages are ranked against the stored documents, using the last user
turns from --history to sharpen the semantic match.

Examples:
  locket chat "What is the refund window?"
  locket chat --history turns.json "what about exceptions"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := loadHistory(historyPath)
		if err != nil {
			return err
		}
		message := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if chatID != "" {
				ctx = logging.WithChatID(ctx, chatID)
			}
			answer, err := a.chat(ctx, message, history, chatLimit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), answer)
		})
	},
}

var titleCmd = &cobra.Command{
	Use:   "title <message>",
	Short: "Derive a chat title from a first message",
	Long: `Derive a chat title from a first message. With chat.provider set the
chat model proposes the title; otherwise the message is shortened. The
embedding model is not loaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		gen, err := newGenerator(cfg.Chat)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		title, err := retrieval.ChatTitle(ctx, gen, strings.Join(args, " "), titleMaxChars)
		if err != nil {
			logger.Warn(ctx, "title generation failed, using message", zap.Error(err))
		}
		return writeJSON(cmd.OutOrStdout(), map[string]string{"title": title})
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

// loadHistory reads conversation turns from a JSON file. An empty path
// means no history.
func loadHistory(path string) ([]retrieval.Turn, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var turns []retrieval.Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	for i, t := range turns {
		if t.Role != retrieval.RoleUser && t.Role != retrieval.RoleAssistant {
			return nil, fmt.Errorf("history turn %d: unknown role %q", i, t.Role)
		}
	}
	return turns, nil
}
