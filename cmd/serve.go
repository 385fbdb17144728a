package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/classwind/internal/bridge"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/log"
)

// DefaultAddr is where the editor bridge listens unless --addr is given.
const DefaultAddr = "localhost:7878"

func newServeCmd(st *state) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket bridge for editor extensions",
		Long: `Listen for editor extensions on a WebSocket (path /ws). Each connection
opens documents, keeps their text in sync and asks for sorts; the server
replies with edits, highlight decorations and notices.

The working directory is the workspace root.

Example:
  classwind serve                      # localhost:7878
  classwind serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "classwind bridge listening on ws://%s%s\n", ln.Addr(), bridge.Path)
			return serveBridge(ctx, st, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", DefaultAddr, "address to listen on")
	return cmd
}

// serveBridge serves the bridge on ln until ctx is done.
func serveBridge(ctx context.Context, st *state, ln net.Listener) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	provider, stopWatch, err := newRankingProvider(ctx, st, true)
	if err != nil {
		return err
	}
	defer stopWatch()

	cfgFile := st.cfgFile
	srv, err := bridge.NewServer(bridge.Options{
		Config:   st.cfg,
		Rankings: provider,
		Root:     root,
		Tracer:   st.tracing.Tracer(),
		LoadConfig: func() (config.Config, error) {
			cfg, _, err := loadConfig(viper.New(), cfgFile)
			return cfg, err
		},
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(bridge.Path, srv)
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	log.Info(log.CatBridge, "Bridge listening", "addr", ln.Addr().String(), "root", root)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	}

	// Hijacked WebSocket connections are not closed by http.Server.Shutdown.
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatBridge, "Bridge shutdown failed", err)
	}
	log.Info(log.CatBridge, "Bridge stopped")
	return nil
}
