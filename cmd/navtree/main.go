package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"golang.org/x/term"
)

// CLI is the top-level command structure for navtree.
type CLI struct {
	Debug  bool   `env:"NAVTREE_DEBUG" help:"Enable debug logging."`
	Config string `type:"path" env:"NAVTREE_CONFIG" help:"Read user configuration from this file."`

	Check        CheckCmd        `cmd:"" help:"Parse and validate hierarchy indexes."`
	Show         ShowCmd         `cmd:"" help:"Render a hierarchy index."`
	Fmt          FmtCmd          `cmd:"" help:"Rewrite hierarchy indexes in canonical layout."`
	Lookup       LookupCmd       `cmd:"" help:"Show the inheritance of one class."`
	Diff         DiffCmd         `cmd:"" help:"Compare the classes of two hierarchy indexes."`
	Import       ImportCmd       `cmd:"" help:"Store a snapshot of a hierarchy index."`
	History      HistoryCmd      `cmd:"" help:"List stored snapshots."`
	DiffSnapshot DiffSnapshotCmd `cmd:"" name:"diff-snapshot" help:"Compare two stored snapshots."`
	Where        WhereCmd        `cmd:"" help:"List stored snapshots that contain a class."`
	Forget       ForgetCmd       `cmd:"" help:"Delete a stored snapshot."`
	Browse       BrowseCmd       `cmd:"" help:"Explore a hierarchy index interactively."`
	Watch        WatchCmd        `cmd:"" help:"Re-check a hierarchy index whenever it changes."`
	MCP          MCPCmd          `cmd:"" name:"mcp" help:"Serve a hierarchy index over MCP (stdio)."`
}

// Env carries what every command needs besides its own flags.
type Env struct {
	Config *Config
	Stdout io.Writer
	Stderr io.Writer
	Width  int // terminal width of stdout, 0 when not a terminal
}

// exitCode ends the process with the given status without printing
// anything more; the command has already reported why.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("navtree"),
		kong.Description("Inspect Doxygen class hierarchy indexes."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			os.Exit(code)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "navtree: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	cfg, err := loadConfig(cli.Config, projectConfigFile)
	ctx.FatalIfErrorf(err)
	slog.Debug("config loaded", "format", cfg.Render.Format, "store", cfg.Store.Path)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx.BindTo(sigCtx, (*context.Context)(nil))
	ctx.Bind(&Env{
		Config: cfg,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Width:  termWidth(),
	})

	err = ctx.Run()
	var code exitCode
	if errors.As(err, &code) {
		stop()
		os.Exit(int(code))
	}
	ctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func termWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
