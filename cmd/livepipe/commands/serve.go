package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/livepipe/pkg/runner"
	"github.com/haivivi/livepipe/pkg/session"
	"github.com/haivivi/livepipe/pkg/web"
)

var serveFlags struct {
	addr    string
	backend string
	model   string
	store   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket live gateway",
	Long: `Serve exposes live sessions over WebSocket at /v1/live.

Each client connection gets its own backend session. With --store set,
transcripts are recorded to BadgerDB and listable at /v1/sessions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dial, err := resolveDial(serveFlags.backend, serveFlags.model)
		if err != nil {
			return err
		}

		rcfg := runner.Config{
			AppName: "livepipe",
			Dial:    dial,
		}
		var svc session.Service
		if serveFlags.store != "" {
			svc, err = session.NewBadgerService(session.BadgerOptions{Dir: serveFlags.store})
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

		srv, err := web.New(web.Config{
			Addr:    serveFlags.addr,
			Runner:  r,
			AppName: "livepipe",
			Service: svc,
		})
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "127.0.0.1:8089", "listen address")
	serveCmd.Flags().StringVarP(&serveFlags.backend, "backend", "b", "gemini", "backend to dial (gemini or openai)")
	serveCmd.Flags().StringVarP(&serveFlags.model, "model", "m", "", "model override")
	serveCmd.Flags().StringVar(&serveFlags.store, "store", "", "record transcripts to a BadgerDB directory")
	serveCmd.Flags().StringVarP(&contextName, "context", "c", "", "context name (default: current)")
	rootCmd.AddCommand(serveCmd)
}
