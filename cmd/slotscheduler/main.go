package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeewonyang/TCSlotScheduler/internal/auth"
	"github.com/jeewonyang/TCSlotScheduler/internal/cli"
	"github.com/jeewonyang/TCSlotScheduler/internal/config"
	httpapi "github.com/jeewonyang/TCSlotScheduler/internal/http"
	"github.com/jeewonyang/TCSlotScheduler/internal/server"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage/sqlite"
	"github.com/jeewonyang/TCSlotScheduler/internal/ws"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slotscheduler",
		Short:         "Shared slot reservation server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), initKeysCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "slotscheduler.yaml", "path to the config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer store.Close()

	keysPath := cfg.KeysFile
	if keysPath == "" {
		keysPath = auth.ResolveKeysPath()
	}
	keyring, err := auth.LoadKeyring(keysPath)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}

	hub := ws.NewHub()
	svc := httpapi.NewService(sqlite.NewResilient(store), cfg.Resources).WithBroadcaster(hub)
	router := httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(keyring))

	srv, err := server.New(server.Config{
		Addr:       cfg.Addr,
		SocketPath: cfg.SocketPath,
		Handler:    router,
	})
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("slotscheduler listening on %s (resources: %v)", cfg.Addr, cfg.Resources)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initKeysCmd() *cobra.Command {
	var keysFile string
	cmd := &cobra.Command{
		Use:   "init-keys",
		Short: "Add a generated API key to the keys file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keysFile
			if path == "" {
				path = auth.ResolveKeysPath()
			}
			key, err := cli.InitKeysFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added key to %s:\n%s\n", path, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&keysFile, "keys-file", "", "path to the keys file (default from SLOTSCHEDULER_KEYS_FILE)")
	return cmd
}
