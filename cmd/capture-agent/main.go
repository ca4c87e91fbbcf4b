package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uakbr/bypass-methods/internal/capture"
	"github.com/uakbr/bypass-methods/internal/config"
	"github.com/uakbr/bypass-methods/internal/ipc"
	"github.com/uakbr/bypass-methods/internal/logging"
	"github.com/uakbr/bypass-methods/internal/screenshot"
	"github.com/uakbr/bypass-methods/internal/winquery"
)

var (
	version = "0.1.0"
	cfgFile string

	windowName string
	monitorIdx int
	exactMatch bool
)

var rootCmd = &cobra.Command{
	Use:   "capture-agent",
	Short: "Capture Agent",
	Long:  `Capture Agent - multi-backend screen capture with automatic fallback`,
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture one screenshot and print its path",
	Run: func(cmd *cobra.Command, args []string) {
		runCapture()
	},
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List attached displays",
	Run: func(cmd *cobra.Command, args []string) {
		listMonitors()
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible windows and their display affinity",
	Run: func(cmd *cobra.Command, args []string) {
		listWindows()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve capture requests over the named pipe",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Capture Agent v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is capture.yaml in the agent's config dir)")

	captureCmd.Flags().StringVar(&windowName, "window", "", "capture the window whose title matches")
	captureCmd.Flags().IntVar(&monitorIdx, "monitor", 0, "capture this display when no window is given")
	captureCmd.Flags().BoolVar(&exactMatch, "exact", false, "require an exact title match instead of a substring")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Validate()
	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	return cfg
}

func newAgent(cfg *config.Config) (*agent, error) {
	engine, err := capture.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize capture engine: %w", err)
	}
	shots, err := screenshot.New(cfg.ScreenshotDir, cfg.MaxWidth)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("prepare screenshot directory: %w", err)
	}
	return &agent{engine: engine, shots: shots}, nil
}

func runCapture() {
	cfg := loadConfig()
	a, err := newAgent(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.engine.Close()

	req := ipc.ScreenshotRequest{}
	if windowName != "" {
		req.WindowName = windowName
		req.Exact = exactMatch
	} else {
		req.Monitor = &monitorIdx
	}

	resp := a.TakeScreenshot(req)
	if resp.Status != "success" {
		fmt.Fprintf(os.Stderr, "Capture failed: %s\n", resp.Message)
		os.Exit(1)
	}
	fmt.Println(resp.Path)
}

func listMonitors() {
	loadConfig()
	monitors, err := capture.ListMonitors()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list monitors: %v\n", err)
		os.Exit(1)
	}
	for _, m := range monitors {
		primary := ""
		if m.IsPrimary {
			primary = " (primary)"
		}
		fmt.Printf("%d: %s %dx%d at %d,%d%s\n", m.Index, m.Name, m.Width, m.Height, m.X, m.Y, primary)
	}
}

func listWindows() {
	loadConfig()
	windows, err := winquery.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list windows: %v\n", err)
		os.Exit(1)
	}
	for _, w := range windows {
		marker := ""
		if w.Affinity != 0 {
			marker = fmt.Sprintf(" [affinity 0x%02X]", w.Affinity)
		}
		fmt.Printf("0x%08X  %s%s\n", w.Handle, w.Title, marker)
	}
}

// serverParts holds the running serve-mode components so console and
// service entry points share one shutdown path.
type serverParts struct {
	a     *agent
	srv   *ipc.Server
	errCh chan error
}

func startServer() (*serverParts, error) {
	cfg := loadConfig()
	a, err := newAgent(cfg)
	if err != nil {
		return nil, err
	}

	srv, err := ipc.NewServer(cfg.PipeName, cfg.IPCKey, a)
	if err != nil {
		a.engine.Close()
		return nil, fmt.Errorf("start server: %w", err)
	}

	p := &serverParts{a: a, srv: srv, errCh: make(chan error, 1)}
	go func() { p.errCh <- srv.Serve() }()
	return p, nil
}

func stopServer(p *serverParts) {
	p.srv.Close()
	p.a.engine.Close()
}

func runServe() {
	if isWindowsService() {
		if err := runAsService(startServer); err != nil {
			fmt.Fprintf(os.Stderr, "Service error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Capture Agent v%s serving\n", version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case err := <-p.errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		}
	}
	stopServer(p)
}
