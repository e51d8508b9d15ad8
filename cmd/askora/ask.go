// cmd/askora/ask.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"askora/internal/models"
	routeengine "askora/internal/workers/ai-conversation/route-engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	askContext string
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer one question and exit",
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "prior conversation text")
	askCmd.Flags().StringVar(&askSession, "session", "", "session id used to load and record history")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg)
	defer flush()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	answer := a.engine.Answer(ctx, routeengine.Request{
		Question:  strings.Join(args, " "),
		Context:   askContext,
		SessionID: askSession,
	})
	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	return printAnswer(cmd.OutOrStdout(), answer)
}

func printAnswer(w io.Writer, answer *models.Answer) error {
	var b strings.Builder
	b.WriteString(answer.AnswerText)
	b.WriteString("\n")
	if len(answer.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for i, src := range answer.Sources {
			fmt.Fprintf(&b, "  %d. %s", i+1, src.Title)
			if src.Link != "" {
				fmt.Fprintf(&b, " <%s>", src.Link)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\nintent: %s  note: %s", answer.Intent, answer.Note)
	if answer.Confidence != nil {
		fmt.Fprintf(&b, "  confidence: %s (%.2f)", answer.Confidence.Level, answer.Confidence.Score)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
