package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/gridwalk/gridwalk/internal/config"
	gonet "github.com/gridwalk/gridwalk/internal/net"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// annotationConsole set to "off" keeps log output away from the terminal,
// for commands that draw on it.
const annotationConsole = "console"

// app carries what every subcommand needs once the root pre-run has loaded
// the config and built the logger.
type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gridwalk",
		Short:         "Server-authoritative grid movement over TCP or WebSocket",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.ResolvePath(a.configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := newLogger(cfg.Logging, cmd.Annotations[annotationConsole] != "off")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		fmt.Sprintf("config file (default $%s or %s)", config.EnvPath, config.DefaultPath))

	root.AddCommand(newServerCmd(a), newClientCmd(a), newBotCmd(a))
	return root
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(title, name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m %-41s \033[36;1m│\033[0m\n", "gridwalk  "+title)
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m名稱:\033[0m %s\n\n", name)
}

func printSection(title string) {
	// CJK characters take two columns
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Shared wiring ─────────────────────────────────────────────────

func transportOptions(cfg *config.Config, role gonet.Role) gonet.Options {
	addr := cfg.Network.BindAddress
	if role == gonet.RoleClient {
		addr = cfg.Network.ServerAddress
	}
	return gonet.Options{
		Role:              role,
		Backend:           cfg.Network.Transport,
		Address:           addr,
		WSPath:            cfg.Network.WSPath,
		InQueueSize:       cfg.Network.InQueueSize,
		OutQueueSize:      cfg.Network.OutQueueSize,
		MaxPacketsPerTick: cfg.Network.MaxPacketsPerTick,
		PacketsPerSecond:  cfg.Network.PacketsPerSecond,
		WriteTimeout:      cfg.Network.WriteTimeout,
	}
}

// newMetrics builds an in-memory go-metrics sink. SIGUSR1 dumps it to
// stderr. Returns nil when metrics are disabled.
func newMetrics(cfg config.MetricsConfig, service string) (*metrics.Metrics, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	sink := metrics.NewInmemSink(interval, 6*interval)
	mc := metrics.DefaultConfig(service)
	mc.EnableHostname = false
	mc.EnableRuntimeMetrics = false
	m, err := metrics.New(mc, sink)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}
	sig := metrics.DefaultInmemSignal(sink)
	return m, sig.Stop, nil
}

func newLogger(cfg config.LoggingConfig, console bool) (*zap.Logger, error) {
	if !console && cfg.File == "" {
		return zap.NewNop(), nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// Rotated file copy, always JSON.
	var fileCore zapcore.Core
	if cfg.File != "" {
		fileCore = newFileCore(cfg, zapCfg.Level)
	}
	if !console {
		return zap.New(fileCore), nil
	}

	log, err := zapCfg.Build()
	if err != nil || fileCore == nil {
		return log, err
	}
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

func newFileCore(cfg config.LoggingConfig, level zap.AtomicLevel) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotator),
		level,
	)
}
