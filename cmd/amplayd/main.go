// amplayd: plays Blinkenlights movies from a spool directory on an
// ARCADEmini display attached as a device file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"amplayd/internal/config"
	"amplayd/internal/logging"
	"amplayd/internal/movie"
	"amplayd/internal/player"
	"amplayd/internal/playlist"
	"amplayd/internal/system"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "amplayd",
		Short:        "amplayd - daemon to play movies on an ARCADEmini",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configFlags are the settings that can be given on the command line.
// Explicitly set flags take precedence over every other config source.
type configFlags struct {
	configPath string
	envPath    string
	cfg        config.Config
}

func (f *configFlags) register(set *pflag.FlagSet) {
	def := config.Default()
	set.StringVarP(&f.configPath, "config", "c", config.DefaultConfigPath, "Path to the JSON config file")
	set.StringVar(&f.envPath, "env-file", config.DefaultEnvPath, "Path to an env file with AMPLAYD_* settings")
	set.StringVarP(&f.cfg.PlaylistDir, "playlist", "p", def.PlaylistDir, "Directory to play movies from")
	set.StringVar(&f.cfg.Device, "device", def.Device, "Display device file")
	set.StringVar(&f.cfg.PIDFile, "pid-file", def.PIDFile, "PID file location")
	set.StringVarP(&f.cfg.User, "user", "u", "", "Drop privileges to the specified user")
	set.BoolVar(&f.cfg.Debug, "debug", false, "Enable debug logging")
}

// load builds the effective configuration.
func (f *configFlags) load(set *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	if err := cfg.LoadFile(f.configPath); err != nil {
		if !isMissing(err) || set.Changed("config") {
			return cfg, err
		}
	}
	if err := cfg.LoadEnvFile(f.envPath); err != nil {
		if !isMissing(err) || set.Changed("env-file") {
			return cfg, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	if set.Changed("playlist") {
		cfg.PlaylistDir = f.cfg.PlaylistDir
	}
	if set.Changed("device") {
		cfg.Device = f.cfg.Device
	}
	if set.Changed("pid-file") {
		cfg.PIDFile = f.cfg.PIDFile
	}
	if set.Changed("user") {
		cfg.User = f.cfg.User
	}
	if set.Changed("debug") {
		cfg.Debug = f.cfg.Debug
	}

	return cfg, cfg.Validate()
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// runCmd starts the player: playlist, directory watcher and device engine.
func runCmd() *cobra.Command {
	var (
		flags    configFlags
		noDaemon bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start playing movies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger := logging.New(os.Stderr, logging.Options{Debug: cfg.Debug, Console: noDaemon})
			mainLog := logging.WithComponent(logger, "main")
			mainLog.Info().Str("version", version).Str("built", buildTime).Msg("amplayd starting")

			// --- PID file and privileges ---
			var pid *system.PIDFile
			if cfg.PIDFile != "" {
				pid, err = system.CreatePIDFile(cfg.PIDFile)
				if err != nil {
					mainLog.Error().Err(err).Msg("pid file")
					return err
				}
				defer func() {
					if err := pid.Remove(); err != nil {
						mainLog.Error().Err(err).Msg("could not remove pid file")
					}
				}()
			}

			if cfg.User != "" {
				account, err := system.LookupAccount(cfg.User)
				if err != nil {
					return err
				}
				if pid != nil {
					if err := pid.Chown(account.UID, account.GID); err != nil {
						mainLog.Error().Err(err).Str("file", pid.Path()).Msg("could not chown pid file")
					}
				}
				if err := system.DropPrivileges(account); err != nil {
					mainLog.Error().Err(err).Msg("could not drop privileges")
					return err
				}
				mainLog.Info().Str("user", account.Name).Int("uid", account.UID).Msg("dropped privileges")
			}

			// --- Playlist ---
			pl, err := playlist.Open(cfg.PlaylistDir,
				playlist.WithLogger(logging.WithComponent(logger, "playlist")))
			if err != nil {
				mainLog.Error().Err(err).Msg("error loading playlist directory")
				return err
			}
			defer pl.Close()

			// --- Directory watcher ---
			var wake <-chan struct{}
			w, err := playlist.NewWatcher(cfg.PlaylistDir, logging.WithComponent(logger, "watcher"))
			if err != nil {
				mainLog.Warn().Err(err).Msg("directory watcher unavailable, polling only")
			} else {
				wake = w.Changed()
				go func() {
					if err := w.Start(); err != nil {
						mainLog.Warn().Err(err).Msg("directory watcher stopped")
					}
				}()
				defer w.Stop()
			}

			// --- Graceful Shutdown ---
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
			defer stop()

			engine := player.NewEngine(player.Config{
				Dir:           cfg.PlaylistDir,
				DevicePath:    cfg.Device,
				RetryInterval: cfg.Retry(),
				IdleInterval:  cfg.Idle(),
			}, pl, movie.BMLDecoder{},
				player.WithWake(wake),
				player.WithLogger(logging.WithComponent(logger, "player")),
			)

			if err := engine.Run(ctx); err != nil {
				mainLog.Error().Err(err).Msg("playback failed")
				return err
			}

			mainLog.Info().Msg("shutdown complete")
			return nil
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVarP(&noDaemon, "no-daemon", "d", false, "Run in the foreground with human readable logs")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("amplayd %s\nBuilt: %s\n", version, buildTime)
		},
	}
}

func checkCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the playlist directory and the display device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			status := system.RunHealthCheck(cfg.PlaylistDir, cfg.Device)
			fmt.Printf("Playlist        : %s\n", status.PlaylistDir)
			if status.PlaylistError != "" {
				fmt.Printf("  error         : %s\n", status.PlaylistError)
			} else {
				fmt.Printf("  movies        : %d\n", status.Movies)
			}
			fmt.Printf("Device          : %s\n", status.Device)
			fmt.Printf("  present       : %v\n", status.DevicePresent)
			fmt.Printf("  char device   : %v\n", status.DeviceIsChar)
			if status.DeviceError != "" {
				fmt.Printf("  error         : %s\n", status.DeviceError)
			}

			if !status.OK() {
				return fmt.Errorf("not ready to play")
			}
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
