package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lsai/internal/checkpoint"
	"lsai/internal/config"
	"lsai/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *GlobalOptions) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fine-tuned model over HTTP",
		Long: `Start the HTTP API. The listener comes up immediately and the model is
loaded in the background; /generate answers 503 until the load succeeds.
With --watch the model is reloaded whenever a training run saves a checkpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.WatchCheckpoints = watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :5050 (defaults to addr from config or LSAI_ADDR)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the model when the checkpoint changes")
	return cmd
}

// runServe serves until ctx is done, then shuts the listener down and
// releases the model.
func runServe(ctx context.Context, out io.Writer, cfg config.Config) error {
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	httpapi.SetMaxBodyBytes(cfg.HTTP.MaxBodyBytes)
	httpapi.SetGenerateTimeout(time.Duration(cfg.HTTP.GenerateTimeoutSeconds) * time.Second)
	httpapi.SetGenerationDefaults(cfg.Generation.DefaultLength, cfg.Generation.DefaultTemperature)
	httpapi.SetCORSOptions(cfg.CORS(), cfg.HTTP.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", "X-Log-Level", "X-Request-Id"})
	httpapi.SetBaseContext(ctx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	fmt.Fprintln(out, "LibreScript AI API")
	fmt.Fprintln(out, strings.Repeat("=", 25))
	fmt.Fprintf(out, "Starting on http://%s\n", ln.Addr())

	go func() {
		if err := svc.Load(ctx); err != nil {
			log.Error().Err(err).Msg("initial model load failed; POST /reload once a checkpoint exists")
		}
	}()
	if cfg.WatchCheckpoints {
		go func() {
			err := checkpoint.Watch(ctx, cfg.CheckpointDir, cfg.RunName, checkpoint.DefaultDebounce, func() {
				if err := svc.Reload(ctx); err != nil {
					log.Error().Err(err).Msg("reload after checkpoint save failed")
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("checkpoint watcher stopped")
			}
		}()
	}

	srv := &http.Server{Handler: httpapi.NewMux(svc), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("run", cfg.RunName).Str("engine", cfg.Engine.Backend).Msg("lsai listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("server stopped")
	return nil
}
