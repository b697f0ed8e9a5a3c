package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	hidpid "github.com/knightynite/hidpid/internal"
	"github.com/knightynite/hidpid/src/config"
	"github.com/knightynite/hidpid/src/features/session"
	"github.com/knightynite/hidpid/src/utility"
	"github.com/spf13/cobra"
)

// CLI holds references for command handlers. The daemon is built
// lazily so the --config flag is parsed before configuration loads.
type CLI struct {
	logger     *utility.Logger
	daemon     *hidpid.Daemon
	configPath string
}

// NewCLI creates a new CLI instance
func NewCLI(logger *utility.Logger) *CLI {
	return &CLI{logger: logger}
}

// CreateCommands creates all CLI commands
func (c *CLI) CreateCommands() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hidpid",
		Short: "hidpid - HiDPI daemon for external monitors",
		Long: `hidpid forces crisp HiDPI (Retina-style) rendering on external monitors
by creating a hidden virtual display and mirroring it onto the real one.
Run without arguments to start the daemon; it restores the last session
and reacts to monitor connect, disconnect, sleep and wake.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDaemon(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "",
		"config file (default ~/.config/hidpid/config.yaml)")

	rootCmd.AddCommand(c.createStatusCmd())
	rootCmd.AddCommand(c.createDisplaysCmd())
	rootCmd.AddCommand(c.createPresetsCmd())
	rootCmd.AddCommand(c.createEnableCmd())
	rootCmd.AddCommand(c.createDisableCmd())

	return rootCmd
}

func (c *CLI) createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status and persisted state",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.ensureDaemon()
			if err != nil {
				return err
			}
			fmt.Println(d.GetStatus())
			return nil
		},
	}
}

func (c *CLI) createDisplaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List online displays and their classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.ensureDaemon()
			if err != nil {
				return err
			}
			output, err := d.GetDisplays()
			if err != nil {
				return err
			}
			fmt.Println(output)
			return nil
		},
	}
}

func (c *CLI) createPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in preset catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.ensureDaemon()
			if err != nil {
				return err
			}
			fmt.Println(d.GetPresets())
			return nil
		},
	}
}

func (c *CLI) createEnableCmd() *cobra.Command {
	var width, height, ppi int

	cmd := &cobra.Command{
		Use:   "enable [preset]",
		Short: "Activate a HiDPI preset and run the daemon",
		Long: `Activate a HiDPI preset and keep the daemon running in the foreground.
Pass a preset name from 'hidpid presets', or --width and --height for a
custom "looks like" resolution.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width > 0 && height > 0 {
				return c.runDaemon(func(s *session.Session) error {
					s.ActivateCustom(width, height, ppi)
					return nil
				})
			}
			if len(args) == 0 {
				return fmt.Errorf("preset name required (or --width and --height)")
			}
			name := args[0]
			return c.runDaemon(func(s *session.Session) error {
				return s.ActivatePresetNamed(name)
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "custom logical width")
	cmd.Flags().IntVar(&height, "height", 0, "custom logical height")
	cmd.Flags().IntVar(&ppi, "ppi", 140, "assumed monitor pixel density for custom presets")

	return cmd
}

func (c *CLI) createDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Reset mirroring and clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.ensureDaemon()
			if err != nil {
				return err
			}
			msg, err := d.Disable()
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

// runDaemon brings the daemon up in the foreground until SIGINT or
// SIGTERM.
func (c *CLI) runDaemon(activate func(*session.Session) error) error {
	d, err := c.ensureDaemon()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.logger.Info("hidpid is running. Press Ctrl+C to stop.")
	return d.Run(ctx, activate)
}

func (c *CLI) ensureDaemon() (*hidpid.Daemon, error) {
	if c.daemon != nil {
		return c.daemon, nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	d, err := hidpid.NewDaemon(c.logger, cfg, nil)
	if err != nil {
		return nil, err
	}
	c.daemon = d
	return d, nil
}
