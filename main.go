package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"terrastudio/bus"
	"terrastudio/codesync"
	"terrastudio/config"
	"terrastudio/editor"
	"terrastudio/library"
	"terrastudio/logging"
	"terrastudio/script"
	"terrastudio/territory"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	copyOut bool

	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "terrastudio",
	Short: "Headless host of a territory-map studio",
	Long: `terrastudio owns a territory-map project workspace: expression trees
describing named regions, annotation elements, and the interactive
capture and paint controllers. Map surfaces render elsewhere and talk
to the host over a WebSocket message bus; source code round-trips
through the generated territory dialect.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
		logger, logLevel, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the studio host",
	Long: `Starts the workspace engine and the surface bus, then serves the
WebSocket endpoint at /ws until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Canonicalize a territory expression",
	Long: `Parses a territory expression file ("-" for stdin) and prints its
canonical serialized form.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

var scriptCmd = &cobra.Command{
	Use:   "script <file>",
	Short: "Run an automation script against a fresh workspace",
	Long: `Executes a JavaScript automation script against an empty workspace
and prints the generated source it leaves behind.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [file|slot]",
	Short: "Print the territory names a library defines, in index order",
	Long: `Reads a library source, either a file path or a library slot
(builtin, custom, or an import alias), and prints its catalog in
display order. With no argument the builtin library is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: terrastudio.json in the data dir)")
	fmtCmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the canonical form to the system clipboard")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	lib := library.NewStore(logger, cfg.LibraryDir)
	if err := lib.Seed(); err != nil {
		logger.Warn("builtin library seed failed", zap.Error(err))
	}

	hub := bus.NewHub(logger, bus.Options{
		ScriptTimeout: cfg.ScriptTimeout,
		StatsInterval: cfg.StatsInterval,
		LibraryDir:    cfg.LibraryDir,
	})

	config.Watch(cfgPath, logger, func(next *config.Config) {
		logLevel.SetLevel(logging.Level(next.LogLevel))
		logger.Info("config reloaded", zap.String("log_level", next.LogLevel))
	})

	errCh := make(chan error, 1)
	go func() { errCh <- hub.ListenAndServe(cfg.Listen) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

func runFmt(cmd *cobra.Command, args []string) error {
	src, err := readInput(args[0])
	if err != nil {
		return err
	}
	parts, err := territory.Parse(strings.TrimSpace(src))
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	out := territory.Serialize(parts)
	fmt.Println(out)
	if copyOut {
		if err := clipboard.WriteAll(out); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	src, err := readInput(args[0])
	if err != nil {
		return err
	}
	lib := library.NewStore(logger, cfg.LibraryDir)
	if err := lib.Seed(); err != nil {
		logger.Warn("builtin library seed failed", zap.Error(err))
	}

	ed := editor.New(logger, nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ScriptTimeout)
	defer cancel()
	if err := script.New(logger, lib).Execute(ctx, src, ed); err != nil {
		return err
	}
	fmt.Print(codesync.Generate(ed.Snapshot()))
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	store := library.NewStore(logger, cfg.LibraryDir)
	code, err := catalogSource(store, args)
	if err != nil {
		return err
	}
	_, index := library.Catalog(code)
	for _, name := range index {
		fmt.Println(name)
	}
	return nil
}

// catalogSource reads the library to catalog: an explicit file path, a
// slot name, or the builtin library when nothing is given.
func catalogSource(store *library.Store, args []string) (string, error) {
	if len(args) == 0 {
		if err := store.Seed(); err != nil {
			return "", err
		}
		return store.Read(library.SourceBuiltin)
	}
	arg := args[0]
	if data, err := os.ReadFile(arg); err == nil {
		return string(data), nil
	}
	code, err := store.Read(arg)
	if err != nil {
		return "", fmt.Errorf("no file or library slot %q", arg)
	}
	return code, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
