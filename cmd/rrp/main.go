package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/rrp"
)

const usage = `Usage:
  rrp [flags] inspect <pack>
  rrp [flags] convert <in> <out>
  rrp [flags] serve <pack>

<pack>, <in> and <out> are directories or .zip archives.`

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup, including the
// logger flush, finishes before main exits.
func run() int {
	var (
		configFile = flag.String("config", "", "Path to runtime config file (YAML, or JSON by extension)")
		addr       = flag.String("addr", "", "Listen address for serve (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging and list every entry")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || (args[0] == "convert" && len(args) < 3) {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
		return 2
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	observability.RegisterObserver("zap", observability.NewZapObserver(logger))

	cfg := rrp.DefaultConfig()
	if *configFile != "" {
		loaded, defaulted, err := rrp.LoadConfig(*configFile)
		if err != nil {
			logger.Warn("failed to persist default config", zap.String("path", *configFile), zap.Error(err))
		}
		if defaulted {
			logger.Info("using default config", zap.String("path", *configFile))
		}
		cfg = *loaded
	}
	cfg.Observer = "zap"
	if *verbose {
		cfg.LogLevel = "verbose"
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	runtime, err := rrp.New(&cfg)
	if err != nil {
		logger.Error("failed to create runtime", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := command{runtime: runtime, cfg: cfg, logger: logger, verbose: *verbose}
	switch args[0] {
	case "inspect":
		err = cmd.inspect(ctx, args[1])
	case "convert":
		err = cmd.convert(ctx, args[1], args[2])
	case "serve":
		err = cmd.serve(ctx, args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", args[0], usage)
		err = errUsage
	}

	code := 0
	if err != nil && !errors.Is(err, errUsage) {
		logger.Error(args[0]+" failed", zap.Error(err))
		code = 1
	} else if err != nil {
		code = 2
	}
	if closeErr := runtime.Close(context.WithoutCancel(ctx)); closeErr != nil {
		logger.Error("failed to close runtime", zap.Error(closeErr))
		code = 1
	}
	return code
}

var errUsage = errors.New("usage")

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
