package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Bind            string
	Port            int
	DataFile        string
	DefaultMode     string
	RoundSeconds    int
	InterRoundDelay time.Duration
	IdleRoomTimeout time.Duration
	SweepInterval   time.Duration
	MinPlayers      int
	ExportEnabled   bool
	ExportFile      string
	Verbose         bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.RoundSeconds < 1 {
		return fmt.Errorf("round-seconds must be at least 1, got %d", c.RoundSeconds)
	}
	if c.MinPlayers < 1 {
		return fmt.Errorf("min-players must be at least 1, got %d", c.MinPlayers)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewCmd builds the root command. Every flag is also settable via an
// AZFOOTBALL_-prefixed environment variable.
func NewCmd(cfg *Config, run func(*Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("AZFOOTBALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "azfootball",
		Short: "Realtime A-Z footballer naming game server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: AZFOOTBALL_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: AZFOOTBALL_PORT)")
	fs.StringVar(&cfg.DataFile, "data-file", "data/players.json", "path to the reference player database (env: AZFOOTBALL_DATA_FILE)")
	fs.StringVar(&cfg.DefaultMode, "default-mode", "modern", "game mode when a room specifies none (env: AZFOOTBALL_DEFAULT_MODE)")
	fs.IntVar(&cfg.RoundSeconds, "round-seconds", 30, "countdown length per round in seconds (env: AZFOOTBALL_ROUND_SECONDS)")
	fs.DurationVar(&cfg.InterRoundDelay, "inter-round-delay", 3*time.Second, "pause between rounds (env: AZFOOTBALL_INTER_ROUND_DELAY)")
	fs.DurationVar(&cfg.IdleRoomTimeout, "idle-room-timeout", 30*time.Minute, "time before inactive rooms are removed (env: AZFOOTBALL_IDLE_ROOM_TIMEOUT)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 10*time.Minute, "how often to check for idle rooms (env: AZFOOTBALL_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.MinPlayers, "min-players", 1, "players required to start a game (env: AZFOOTBALL_MIN_PLAYERS)")
	fs.BoolVar(&cfg.ExportEnabled, "export-enabled", true, "append finished-game results to a file (env: AZFOOTBALL_EXPORT_ENABLED)")
	fs.StringVar(&cfg.ExportFile, "export-file", "./azfootball-results.txt", "path for exported game results (env: AZFOOTBALL_EXPORT_FILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level (env: AZFOOTBALL_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
