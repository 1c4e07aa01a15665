package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/mattn/go-isatty"
	"github.com/scribehq/scribe"
	bt "github.com/scribehq/scribe/bubbletea"
	"github.com/scribehq/scribe/markdown"
	"github.com/scribehq/scribe/sse"
	"github.com/spf13/cobra"
)

// Sentinel results mapped to process exit codes in main. The command
// has already reported the failure to the user by the time these are
// returned.
var (
	ErrCancelled = errors.New("generation cancelled")
	ErrFailed    = errors.New("generation failed")
)

var generateCmd = &cobra.Command{
	Use:   "generate <owner/name | repository URL>",
	Short: "Generate documentation for a repository",
	Long: `Generate documentation for a repository by streaming a generation
session from a scribe server. By default an interactive progress view is
shown and the finished document is rendered to the terminal; use --output
to write it to a file, or --plain for non-interactive line output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			server, _   = cmd.Flags().GetString("server")
			token, _    = cmd.Flags().GetString("token")
			template, _ = cmd.Flags().GetInt("template")
			title, _    = cmd.Flags().GetString("title")
			output, _   = cmd.Flags().GetString("output")
			plain, _    = cmd.Flags().GetBool("plain")
			timeout, _  = cmd.Flags().GetDuration("timeout")
		)
		if token == "" {
			token = os.Getenv("SCRIBE_TOKEN")
		}
		if !plain && !isatty.IsTerminal(os.Stdout.Fd()) {
			plain = true
		}

		req := scribe.Request{
			TargetRef:  args[0],
			Title:      title,
			Credential: token,
		}
		if template >= 0 {
			req.TemplateID = &template
		}

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		transport := sse.New(server)
		out, err := runSession(ctx, cmd, transport, req, plain)
		if err != nil {
			return err
		}

		switch out.State {
		case scribe.StateCompleted:
			return writeArtifact(cmd, out.Artifact, output, plain)
		case scribe.StateCancelled:
			return ErrCancelled
		default:
			if plain {
				reportFailure(cmd, out.Err)
			}
			return ErrFailed
		}
	},
}

func init() {
	generateCmd.Flags().String("server", "http://localhost:8080", "scribe server base URL")
	generateCmd.Flags().String("token", "", "access token (defaults to $SCRIBE_TOKEN)")
	generateCmd.Flags().Int("template", -1, "document template ID")
	generateCmd.Flags().String("title", "", "document title override")
	generateCmd.Flags().StringP("output", "o", "", "write the document to this path instead of the terminal")
	generateCmd.Flags().Bool("plain", false, "line-oriented output without the interactive view")
	generateCmd.Flags().Duration("timeout", 10*time.Minute, "abandon the session after this long (0 disables)")
}

func runSession(ctx context.Context, cmd *cobra.Command, transport scribe.Transport, req scribe.Request, plain bool) (scribe.Outcome, error) {
	if !plain {
		m, err := bt.Run(ctx, bt.New(transport, req, markdown.DefaultTheme()))
		if err != nil {
			return scribe.Outcome{}, fmt.Errorf("running progress view: %w", err)
		}
		out, resolved := m.Outcome()
		if !resolved {
			// The program quit before the session resolved (forced quit
			// or context expiry).
			return scribe.Outcome{State: scribe.StateCancelled}, nil
		}
		return out, nil
	}

	done := make(chan scribe.Outcome, 1)
	ctrl := scribe.NewController(transport,
		scribe.WithProgressHandler(func(p scribe.Progress) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s (%.0f%%)\n",
				p.Stage.Index()+1, scribe.StageCount, p.Message, p.Fraction*100)
		}),
		scribe.WithOutcomeHandler(func(o scribe.Outcome) { done <- o }),
	)
	if err := ctrl.Submit(ctx, req); err != nil {
		return scribe.Outcome{}, err
	}

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		ctrl.Cancel()
		return <-done, nil
	}
}

func writeArtifact(cmd *cobra.Command, artifact, output string, plain bool) error {
	if output != "" {
		if err := renameio.WriteFile(output, []byte(artifact), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
		return nil
	}
	if plain {
		fmt.Fprintln(cmd.OutOrStdout(), artifact)
	}
	return nil
}

func reportFailure(cmd *cobra.Command, se *scribe.SessionError) {
	if se == nil {
		se = &scribe.SessionError{Kind: scribe.KindInternal}
	}
	c := scribe.Classify(se.Kind)
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", c.Message)
	if se.Message != "" && se.Message != c.Message {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", se.Message)
	}
	if remaining, ok := se.TimeRemaining(); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "  quota resets in %s\n", remaining.Round(time.Second))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", c.Action)
}
