package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/haivivi/livepipe/pkg/live"
	"github.com/haivivi/livepipe/pkg/runner"
	"github.com/haivivi/livepipe/pkg/session"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	modelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#c9d1d9"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b"))
)

var chatFlags struct {
	backend   string
	model     string
	user      string
	sessionID string
	store     string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive live chat against a backend",
	Long: `Chat opens one live session and streams model output as it arrives.

Type a line and press enter to send it. An empty line interrupts the model
mid-turn (barge-in). Ctrl-D ends the session gracefully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dial, err := resolveDial(chatFlags.backend, chatFlags.model)
		if err != nil {
			return err
		}

		rcfg := runner.Config{
			AppName: "livepipe",
			Dial:    dial,
		}
		if chatFlags.store != "" {
			svc, err := session.NewBadgerService(session.BadgerOptions{Dir: chatFlags.store})
			if err != nil {
				return err
			}
			defer svc.Close()
			rcfg.Service = svc
		}
		r, err := runner.New(rcfg)
		if err != nil {
			return err
		}

		sess, err := r.Start(cmd.Context(), chatFlags.user, chatFlags.sessionID)
		if err != nil {
			return err
		}
		defer sess.Cancel()

		fmt.Println(noteStyle.Render(fmt.Sprintf("session %s (%s) - ctrl-d to quit", sess.ID(), chatFlags.backend)))

		go readInput(sess)

		inTurn := false
		for resp, err := range sess.Events() {
			if err != nil {
				fmt.Println(errStyle.Render("session failed: " + err.Error()))
				return err
			}
			switch {
			case resp.Rejected != nil:
				fmt.Println(errStyle.Render("rejected: " + resp.Rejected.Reason))
			case resp.Interrupted:
				if inTurn {
					fmt.Println()
					inTurn = false
				}
				fmt.Println(noteStyle.Render("(interrupted)"))
			case resp.TurnComplete:
				if inTurn {
					fmt.Println()
					inTurn = false
				}
				fmt.Print(promptStyle.Render("> "))
			case resp.Content != nil:
				fmt.Print(modelStyle.Render(resp.Content.Text()))
				inTurn = true
			}
		}
		if inTurn {
			fmt.Println()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sess.Wait(ctx)
	},
}

// readInput feeds stdin lines into the session queue. An empty line maps to
// an activity start signal, interrupting the model's in-progress turn.
func readInput(sess *runner.Session) {
	fmt.Print(promptStyle.Render("> "))
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var err error
		if line == "" {
			err = sess.Queue().SendActivityStart()
		} else {
			err = sess.Queue().SendContent(live.RoleUser, live.Text(line))
		}
		if err != nil {
			if errors.Is(err, live.ErrQueueClosed) {
				return
			}
			fmt.Println(errStyle.Render("send failed: " + err.Error()))
		}
	}
	// EOF: no more input, let the backend finish.
	sess.Queue().Close()
}

func init() {
	chatCmd.Flags().StringVarP(&chatFlags.backend, "backend", "b", "gemini", "backend to dial (gemini or openai)")
	chatCmd.Flags().StringVarP(&chatFlags.model, "model", "m", "", "model override")
	chatCmd.Flags().StringVarP(&chatFlags.user, "user", "u", "local", "user ID for the session")
	chatCmd.Flags().StringVarP(&chatFlags.sessionID, "session", "s", "", "session ID (default: generated)")
	chatCmd.Flags().StringVar(&chatFlags.store, "store", "", "record transcripts to a BadgerDB directory")
	chatCmd.Flags().StringVarP(&contextName, "context", "c", "", "context name (default: current)")
	rootCmd.AddCommand(chatCmd)
}
