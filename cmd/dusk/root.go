package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duskweb/dusk"
	_ "github.com/duskweb/dusk/backend/headless"
	_ "github.com/duskweb/dusk/backend/wayland"
	_ "github.com/duskweb/dusk/backend/x11"
	"github.com/duskweb/dusk/dom"
	"github.com/duskweb/dusk/engine"
	"github.com/duskweb/dusk/internal/config"
	"github.com/duskweb/dusk/media"
	"github.com/duskweb/dusk/text"
)

// defaultDocument renders when no target is given.
const defaultDocument = `<!doctype html>
<html>
<head><style>
body { margin: 24px; }
h1 { color: #223344; }
code { background: #eeeeee; }
</style></head>
<body>
<h1>dusk</h1>
<p>No document given. Pass a file path or URL:</p>
<p><code>dusk page.html</code></p>
<p>Use <code>--screenshot out.png</code> to render without a window.</p>
</body>
</html>`

var rootCmd = &cobra.Command{
	Use:   "dusk [target]",
	Short: "dusk renders an HTML document in a window or to a PNG",
	Long: "dusk parses an HTML document, resolves styles, lays it out, and\n" +
		"presents it on a Wayland or X11 window, or captures a PNG screenshot\n" +
		"in headless mode.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("screenshot", "", "render once and write a PNG to this path (implies --headless)")
	flags.Bool("headless", false, "render without a window")
	flags.Float64("width", 800, "viewport width in logical pixels")
	flags.Float64("height", 600, "viewport height in logical pixels")
	flags.String("backend", "auto", "display backend: wayland, x11, headless, or auto")
	flags.String("scale", "", "device scale override, a number or percentage (e.g. 2 or 150%)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if len(args) > 0 {
		v.Set("target", args[0])
	}
	cfg, err := config.New(v)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, base, err := loadDocument(ctx, cfg.Target)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Config{
		Title:   windowTitle(cfg.Target),
		Width:   cfg.Width,
		Height:  cfg.Height,
		Scale:   cfg.Scale,
		Backend: cfg.Backend,
		Output:  cfg.Screenshot,
	}, doc, text.NewShaper(text.NewSource()), media.NewLoader(base))

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadDocument fetches and parses the target. The returned base is the
// resolution root for relative image sources.
func loadDocument(ctx context.Context, target string) (*dom.Document, string, error) {
	if target == "" {
		return dom.Parse([]byte(defaultDocument)), "", nil
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		doc, err := loadHTTP(ctx, target)
		return doc, target, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", target, err)
	}
	return dom.Parse(data), target, nil
}

func loadHTTP(ctx context.Context, target string) (*dom.Document, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", target, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if cs := params["charset"]; cs != "" {
			return dom.ParseWithCharset(data, cs), nil
		}
	}
	return dom.Parse(data), nil
}

func windowTitle(target string) string {
	if target == "" {
		return "dusk"
	}
	return target + " - dusk"
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	dusk.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
