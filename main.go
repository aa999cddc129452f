package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"taskbook/api"
	"taskbook/commands"
	"taskbook/config"
	"taskbook/storage"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: taskbook [-config FILE] [command]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  repl     Interactive task list (default)")
	fmt.Fprintln(os.Stderr, "  serve    Start the HTTP API")
	fmt.Fprintln(os.Stderr, "  health   Check a running server")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to a YAML or TOML config file")
	flag.Usage = usage
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}

	command := "repl"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "repl":
		err = runREPL(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	case "health":
		err = runHealth(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultConfigPath returns the config path.
// Priority: TASKBOOK_CONFIG env var > ./taskbook.yaml
func defaultConfigPath() string {
	if envPath := os.Getenv("TASKBOOK_CONFIG"); envPath != "" {
		return envPath
	}
	return "taskbook.yaml"
}

// openStore opens the configured backend and loads the task store
func openStore(cfg *config.Config, logger *slog.Logger) (*storage.TaskStore, error) {
	var backend storage.Backend
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		b, err := storage.NewSQLiteBackend(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		backend = storage.NewJSONFile(cfg.Storage.Path)
	}

	store, err := storage.NewTaskStore(backend, storage.Options{
		StrictLoad: cfg.Storage.StrictLoad,
		Logger:     logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

func runREPL(ctx context.Context, cfg *config.Config) error {
	logger, level := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	commands.SetStore(store)
	commands.SetLogLevel(level)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.CyanString("> "),
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("starting prompt: %w", err)
	}
	closePrompt := sync.OnceFunc(func() { rl.Close() })
	defer closePrompt()

	fmt.Println("Welcome to taskbook! Type /help for available commands.")
	if loadErr := store.LoadErr(); loadErr != nil {
		color.Yellow("Warning: could not read %s, starting with an empty list", cfg.Storage.Path)
	}

	// Closing the prompt unblocks Readline when a signal arrives
	stop := context.AfterFunc(ctx, closePrompt)
	defer stop()

	return replLoop(ctx, rl)
}

// lineReader is the part of *readline.Instance the loop needs
type lineReader interface {
	Readline() (string, error)
}

// replLoop reads and executes commands until /quit, EOF, Ctrl-C on an empty
// line, or ctx is cancelled
func replLoop(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if !strings.HasPrefix(input, "/") {
			fmt.Println("Commands start with /. Type /help for available commands.")
			continue
		}

		quit, err := commands.Execute(input)
		if err != nil {
			fmt.Printf("%v. Type /help for available commands.\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// historyPath keeps REPL history under the user's cache directory
func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "taskbook")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, _ := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.NewServer(store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr, "storage", cfg.Storage.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func runHealth(ctx context.Context, cfg *config.Config) error {
	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: %s", resp.Status)
	}

	fmt.Println(color.GreenString("healthy"), strings.TrimSpace(string(body)))
	return nil
}
