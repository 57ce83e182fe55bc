package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/b42link/internal/cliconfig"
	"github.com/bft-labs/b42link/internal/httpapi"
	"github.com/bft-labs/b42link/internal/script"
	"github.com/bft-labs/b42link/pkg/channel"
	"github.com/bft-labs/b42link/pkg/dispatch"
	"github.com/bft-labs/b42link/pkg/handler"
	b42log "github.com/bft-labs/b42link/pkg/log"
	"github.com/bft-labs/b42link/plugins/scriptwatcher"
)

var longHelp = strings.TrimSpace(`
Talk to a B42 device over a serial port or a socket:// bridge.

b42chat waits for the device to settle, sends FRAMES, then prints every
frame the device sends back until the link has been quiet for the response
timeout.

FRAMES is either an inline list of CMD:DATA pairs or a .toml script:
  2:17,0x3:0b101      two frames
  frames.toml         [[frame]] tables with command, data and delay

Configuration is read from $HOME/.b42link/config.toml, then B42_*
environment variables, then flags.
`)

var exampleUsage = strings.TrimSpace(`
  b42chat /dev/ttyUSB0 2:17
  b42chat socket://bench-rig -r 10s frames.toml
  b42chat /dev/ttyACM0 --watch frames.toml
  b42chat listen /dev/ttyUSB0
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "b42chat [PORT] FRAMES",
		Short:   "Send frames to a B42 device and print its replies",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			port, frames, err := splitArgs(args, cfg.Watch != "")
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log = withLevel(log, cfg)

			var steps []script.Step
			switch {
			case frames != "":
				steps, err = script.Load(frames)
			case cfg.Watch != "":
				steps, err = script.LoadFile(cfg.Watch)
			default:
				err = fmt.Errorf("FRAMES is required unless --watch is set")
			}
			if err != nil {
				return err
			}

			return runSession(cmd, cfg, log, func(ctx context.Context, s *session) error {
				return s.chat(ctx, steps, cfg.InitTimeout, cfg.ResponseTimeout, cfg.Watch != "")
			})
		},
	}

	listen := &cobra.Command{
		Use:   "listen [PORT]",
		Short: "Print frames and decode errors until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Port = args[0]
			}
			cfg.Watch = ""
			if err := cfg.Validate(); err != nil {
				return err
			}
			log = withLevel(log, cfg)

			return runSession(cmd, cfg, log, func(ctx context.Context, s *session) error {
				return s.listen(ctx)
			})
		},
	}
	root.AddCommand(listen)

	// Flags
	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.b42link/config.toml)")
	flags.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial line speed")
	flags.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "timeout of each channel read")
	flags.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "received frames buffered before the oldest is dropped")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "write link statistics to this JSON file on exit")
	flags.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "serve health, status, metrics and frame submission on this address")
	flags.StringVar(&cfg.CORSOrigins, "cors-origins", cfg.CORSOrigins, "comma-separated origins allowed to call the HTTP API")

	root.Flags().DurationVarP(&cfg.InitTimeout, "init-timeout", "i", cfg.InitTimeout, "wait this long after opening the port before sending")
	root.Flags().DurationVarP(&cfg.ResponseTimeout, "response-timeout", "r", cfg.ResponseTimeout, "stop after the device is quiet this long")
	root.Flags().StringVar(&cfg.Watch, "watch", cfg.Watch, "re-send this TOML script whenever it changes, and keep listening")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("b42chat")
		os.Exit(1)
	}
}

// splitArgs separates PORT from FRAMES. FRAMES is the last argument unless a
// watch script is configured, in which case it is optional.
func splitArgs(args []string, watching bool) (port, frames string, err error) {
	switch {
	case len(args) == 2:
		return args[0], args[1], nil
	case len(args) == 1 && watching:
		return args[0], "", nil
	case len(args) == 1:
		return "", args[0], nil
	case watching:
		return "", "", nil
	default:
		return "", "", fmt.Errorf("FRAMES is required")
	}
}

// loadConfig applies the config file and then the environment to cfg,
// leaving values of explicitly set flags alone. A PORT argument overrides
// both afterwards.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	// Environment overrides file config but not flags
	return cliconfig.ApplyEnvConfig(cfg, changed)
}

func withLevel(log zerolog.Logger, cfg cliconfig.Config) zerolog.Logger {
	lvl, err := cfg.Level()
	if err != nil {
		return log
	}
	return log.Level(lvl)
}

// runSession opens the link, runs fn until it returns or a signal arrives,
// then closes the link and saves the status file.
func runSession(cmd *cobra.Command, cfg cliconfig.Config, log zerolog.Logger, fn func(context.Context, *session) error) error {
	log.Debug().Interface("config", cfg).Msg("configuration")

	ch, err := channel.Open(cfg.Port, cfg.ChannelConfig())
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	out := cmd.OutOrStdout()
	errs := dispatch.NewErrorCollector(func(err error) {
		fmt.Fprintf(out, "! %v\n", err)
	}, true)

	opts := []handler.Option{
		handler.WithLogger(b42log.NewZerologAdapterWithLogger(log)),
		handler.WithEventHandler(errs),
		handler.WithQueueSize(cfg.QueueSize),
	}
	if cfg.Watch != "" {
		opts = append(opts, scriptwatcher.WithScriptWatcher(scriptwatcher.Config{Path: cfg.Watch}))
	}

	startedAt := time.Now()
	h, err := handler.New(ch, opts...)
	if err != nil {
		return fmt.Errorf("start handler: %w", err)
	}
	log.Info().Str("port", cfg.Port).Msg("link open")

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		api, err := httpapi.New(httpapi.Config{Addr: cfg.HTTPAddr, Port: cfg.Port, CORSOrigins: cfg.CORSOrigins}, h, log)
		if err != nil {
			_ = h.Close()
			return fmt.Errorf("http api: %w", err)
		}
		apiCtx, cancelAPI := context.WithCancel(ctx)
		defer cancelAPI()
		apiDone := make(chan struct{})
		go func() {
			defer close(apiDone)
			if err := api.Serve(apiCtx); err != nil {
				log.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("http api stopped")
			}
		}()
		defer func() {
			cancelAPI()
			<-apiDone
		}()
	}

	s := &session{link: h, out: out, logger: log}
	runErr := fn(ctx, s)
	if ctx.Err() != nil {
		log.Info().Msg("received signal, stopping...")
	}

	closeErr := h.Close()
	stats := h.Stats()
	log.Info().
		Uint64("sent", stats.FramesSent).
		Uint64("received", stats.FramesReceived).
		Uint64("decode_errors", stats.DecodeErrors()).
		Uint64("abandoned", stats.Abandoned).
		Uint64("dropped", stats.Dropped).
		Msg("link closed")

	if cfg.StatusFile != "" {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := saveStatus(saveCtx, cfg.StatusFile, cfg.Port, h, startedAt); err != nil {
			log.Error().Err(err).Str("path", cfg.StatusFile).Msg("failed to save status")
		}
	}

	if runErr != nil {
		return runErr
	}
	if err := h.Err(); err != nil {
		return err
	}
	return closeErr
}
