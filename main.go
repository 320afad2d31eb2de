// pattern: Imperative Shell
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"restorepoint/internal/checkpoint"
	"restorepoint/internal/cli"
	"restorepoint/internal/config"
	"restorepoint/internal/instance"
	"restorepoint/internal/logging"
	"restorepoint/internal/process"
	"restorepoint/internal/tui"
	"restorepoint/internal/watch"
)

var version = "dev"

// watchDebounce is the quiet period before a burst of file changes
// triggers a refresh.
const watchDebounce = 300 * time.Millisecond

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	dir := flag.StringP("dir", "C", ".", "directory to manage")
	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/restorepoint)")
	noColor := flag.Bool("no-color", false, "disable colored output")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, &cli.Env{})
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dataDir := config.Dir(*configDir)
	logManager, err := logging.NewManager(logging.Config{
		FilePath:       filepath.Join(dataDir, "restorepoint.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	w := newWiring(&cfg, *dir, logManager)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := cli.BuildApp(version, &cli.Env{
		Ctx:     ctx,
		Open:    w.openBackend,
		NoColor: *noColor || color.NoColor,
	})
	launchTUI := app.Execute(flag.Args())
	stop()

	code := 0
	if launchTUI {
		if err := runTUI(&cfg, dataDir, w, logManager); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		}
	}
	_ = logManager.Close()
	os.Exit(code)
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// wiring builds checkpoint managers for the managed directory. All of them
// share one runner so the single-flight guard covers the whole process.
type wiring struct {
	cfg    *config.Config
	dir    string
	runner *process.Runner
	logs   logging.LoggerProvider
	notify notifier
}

func newWiring(cfg *config.Config, dir string, logs logging.LoggerProvider) *wiring {
	return &wiring{
		cfg:    cfg,
		dir:    dir,
		runner: process.New(process.Config{Shell: cfg.Shell, Elevator: cfg.Elevator}, logs.For("runner")),
		logs:   logs,
	}
}

// open resolves the managed directory and returns a manager for it. opts
// are applied after the configured ones.
func (w *wiring) open(opts ...checkpoint.Option) (*checkpoint.Manager, error) {
	root, err := filepath.Abs(w.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", w.dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	base := []checkpoint.Option{
		checkpoint.WithGit(w.cfg.Git),
		checkpoint.WithLargeDirectory(w.cfg.LargeDirectory.MaxDepth, w.cfg.LargeDirectory.Threshold),
		checkpoint.WithLogger(w.logs.For("checkpoint")),
		checkpoint.WithNotifier(w.notify.Send),
	}
	return checkpoint.NewManager(root, w.runner, append(base, opts...)...), nil
}

func (w *wiring) openBackend(opts ...checkpoint.Option) (cli.Backend, error) {
	m, err := w.open(opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// notifier forwards events to the TUI program once it exists. Events sent
// before that are dropped.
type notifier struct {
	mu   sync.Mutex
	send func(msg tea.Msg)
}

func (n *notifier) Send(msg any) {
	n.mu.Lock()
	send := n.send
	n.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (n *notifier) attach(send func(msg tea.Msg)) {
	n.mu.Lock()
	n.send = send
	n.mu.Unlock()
}

// runTUI launches the interactive TUI for the managed directory.
func runTUI(cfg *config.Config, dataDir string, w *wiring, logManager *logging.Manager) error {
	manager, err := w.open()
	if err != nil {
		return err
	}

	lock, err := instance.Acquire(dataDir, manager.Root())
	if err != nil {
		if errors.Is(err, instance.ErrLocked) {
			return fmt.Errorf("%s is already open in another restorepoint: %w", manager.Root(), err)
		}
		return err
	}
	defer lock.Release()

	appLogger := logManager.For("app")
	appLogger.Info("application starting", "root", manager.Root(), "version", version)

	model := tui.NewModel(cfg, manager, logManager)
	p := tea.NewProgram(model, tea.WithAltScreen())
	w.notify.attach(p.Send)
	defer w.notify.attach(nil)

	watcher, err := watch.New(manager.Root(), watchDebounce, w.notify.Send, logManager.For("watch"))
	if err != nil {
		appLogger.Warn("file watching disabled", "error", err)
	} else {
		if err := watcher.Start(); err != nil {
			appLogger.Warn("file watching disabled", "error", err)
		}
		defer func() { _ = watcher.Close() }()
	}

	if _, err := p.Run(); err != nil {
		appLogger.Error("application exited with error", "error", err)
		return fmt.Errorf("running program: %w", err)
	}

	appLogger.Info("application stopped")
	return nil
}
