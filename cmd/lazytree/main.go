package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/vanderheijden86/lazytree/internal/datasource"
	"github.com/vanderheijden86/lazytree/pkg/config"
	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/feed"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/tree"
	"github.com/vanderheijden86/lazytree/pkg/ui"
	"github.com/vanderheijden86/lazytree/pkg/version"
)

// cliOptions carries the parsed flags into run.
type cliOptions struct {
	ConfigPath  string
	Source      string
	Context     string
	State       string
	Print       bool
	Search      string
	MetricsAddr string
	Interactive bool // stdin and stdout are terminals
	Width       int  // terminal width for plain output
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: $XDG_CONFIG_HOME/lazytree/config.yaml)")
	sourcePath := flag.String("source", "", "Record source: SQLite database, JSONL file, or directory to discover one in")
	contextID := flag.String("context", "", `Context record id; its children become the roots ("*" for top-level records)`)
	stateBackend := flag.String("state", "", "Navigation state backend: file, sqlite, postgres, diskv, memory, none")
	printFlag := flag.Bool("print", false, "Print the fully expanded tree to stdout instead of starting the TUI")
	searchQuery := flag.String("search", "", "Apply a search query before printing or browsing")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	versionFlag := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: lazytree [options]")
		fmt.Println("\nBrowse a hierarchical record set as a lazily loaded tree.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("lazytree %s\n", version.Version)
		os.Exit(0)
	}

	opts := cliOptions{
		ConfigPath:  *configPath,
		Source:      *sourcePath,
		Context:     *contextID,
		State:       *stateBackend,
		Print:       *printFlag,
		Search:      *searchQuery,
		MetricsAddr: *metricsAddr,
		Interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
		Width:       terminalWidth(os.Stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts cliOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(stderr, "warning: %v; using defaults\n", err)
		cfg = config.DefaultConfig()
	}
	if opts.Source != "" {
		cfg.Source.Path = opts.Source
	}
	if opts.State != "" {
		cfg.State.Backend = opts.State
	}
	if cfg.Source.Path == "" {
		return errors.New("no record source: pass -source or set source.path in the config")
	}

	problems := cfg.Validate()
	for _, p := range problems {
		if !p.Fatal {
			fmt.Fprintln(stderr, p.String())
		}
	}
	treeCfg, msgs := buildTreeConfig(cfg)
	plain := opts.Print || !opts.Interactive
	if plain && config.HasFatal(problems) {
		for _, p := range problems {
			if p.Fatal {
				fmt.Fprintln(stderr, p.String())
			}
		}
		return errors.New("invalid configuration")
	}

	// Plain output needs the whole tree up front.
	lazy := cfg.Tree.LazyLoad && !plain
	src, ds, err := openSource(ctx, cfg, lazy, func(msg string) {
		fmt.Fprintf(stderr, "warning: %s\n", msg)
	})
	if err != nil {
		return err
	}
	defer src.Close()
	debug.Log("opened %s", ds)

	hub := feed.NewHub()
	// Plain output expands everything; it must not overwrite saved state.
	stateCfg := cfg.State
	if plain {
		stateCfg.Backend = "none"
	}
	persister, closeState, err := openState(ctx, stateCfg)
	if err != nil {
		fmt.Fprintf(stderr, "warning: navigation state disabled: %v\n", err)
	}
	defer closeState()

	storeOpts := []tree.Option{
		tree.WithRootLoader(src),
		tree.WithResolver(src),
		tree.WithSearcher(newSearcher(cfg.Source.Search, src)),
		tree.WithChangeFeed(hub),
		tree.WithValidation(msgs...),
	}
	if lazy {
		storeOpts = append(storeOpts, tree.WithChildLoader(src))
	}
	if persister != nil {
		storeOpts = append(storeOpts, tree.WithPersister(persister))
	}
	store := tree.New(treeCfg, storeOpts...)
	defer func() {
		store.Wait()
		store.Close()
	}()

	if jsonl, ok := src.(*datasource.JSONLSource); ok && cfg.Source.Watch {
		w, err := datasource.Watch(ctx, jsonl, hub, datasource.WatchOptions{
			OnReload: func(diff datasource.RecordDiff) {
				if len(diff.Added) > 0 {
					store.Reload(ctx)
				}
			},
		})
		if err != nil {
			fmt.Fprintf(stderr, "warning: live reload disabled: %v\n", err)
		} else {
			defer w.Stop()
		}
	}

	if opts.MetricsAddr != "" {
		shutdown, err := serveMetrics(opts.MetricsAddr, stderr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	contexts, err := src.Contexts(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "warning: listing contexts: %v\n", err)
	}
	contextID := opts.Context
	if contextID == "" {
		contextID = datasource.AllContext
		if !plain && len(contexts) > 0 {
			picked, err := pickContext(contexts)
			if err != nil {
				return err
			}
			contextID = picked
		}
	}

	store.SetContext(contextID)
	store.Wait()
	if opts.Search != "" {
		store.Search(opts.Search)
		store.Wait()
	}

	if plain {
		if opts.Search == "" {
			store.ExpandAll()
			store.Wait()
		}
		return printTree(stdout, store.View(), opts.Width)
	}

	names := contextNames(contexts)
	m := ui.NewModel(store, ui.Options{
		Favorites:   cfg.Favorites,
		SplitRatio:  cfg.UI.SplitRatio,
		ShowDetail:  cfg.UI.ShowDetail,
		DetailStyle: cfg.UI.DetailStyle,
		ContextName: func(id string) string {
			if name, ok := names[id]; ok {
				return name
			}
			return id
		},
	})
	defer m.Close()
	return runTUIProgram(m)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func serveMetrics(addr string, stderr io.Writer) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "warning: metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set LAZYTREE_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("LAZYTREE_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
