// Package cmd wires the keydeck command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keydeck/keydeck/internal/app"
	"github.com/keydeck/keydeck/internal/config"
	"github.com/keydeck/keydeck/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugMode bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "keydeck",
	Short:   "An editor for game keybind and alias profiles",
	Long:    `Keydeck manages keybind and alias profiles for games, keeping every view of a profile synchronized while you edit.`,
	Version: version,
	RunE:    runStatus,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/keydeck/config.yaml)")
	rootCmd.PersistentFlags().StringP("store", "s", "",
		"path to the profile database")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"write debug logs next to the database")
	rootCmd.PersistentFlags().Bool("no-auto-reload", false,
		"do not follow out-of-process database writes")

	_ = viper.BindPFlag("store_path", rootCmd.PersistentFlags().Lookup("store"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("store_path", defaults.StorePath)
	viper.SetDefault("auto_reload", defaults.AutoReload)
	viper.SetDefault("debounce_ms", defaults.DebounceMs)
	viper.SetDefault("log.level", defaults.Log.Level)

	viper.SetEnvPrefix("KEYDECK")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .keydeck/config.yaml (current directory)
		// 2. ~/.config/keydeck/config.yaml (user config)
		if _, err := os.Stat(".keydeck/config.yaml"); err == nil {
			viper.SetConfigFile(".keydeck/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "keydeck"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config anywhere: create one in the user config dir and
		// continue with defaults if that fails too.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			home, homeErr := os.UserHomeDir()
			if homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "keydeck", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// newApp builds the wired application for a command invocation. The
// returned cleanup runs log teardown after the app closes.
func newApp(cmd *cobra.Command) (*app.App, func(), error) {
	if noReload, _ := cmd.Flags().GetBool("no-auto-reload"); noReload {
		cfg.AutoReload = false
	}

	cleanup := func() {}
	if debugMode || os.Getenv("KEYDECK_DEBUG") != "" {
		logPath := cfg.Log.File
		if logPath == "" {
			logPath = filepath.Join(filepath.Dir(cfg.StorePath), "keydeck.log")
		}
		// Route through tea.LogToFile so stdlib log output from Bubble Tea
		// views lands in the same file as our own entries.
		if closer, err := log.InitWithTeaLog(logPath, "keydeck"); err == nil {
			log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
			cleanup = closer
		}
	}

	a, err := app.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer a.Close()

	snap := a.Coord.Snapshot()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "store:       %s\n", a.Config.StorePath)
	fmt.Fprintf(out, "profiles:    %d\n", len(snap.Profiles))
	fmt.Fprintf(out, "environment: %s\n", snap.Environment)
	if active, ok := snap.Active(); ok {
		fmt.Fprintf(out, "active:      %s (%s, %d binds, %d aliases)\n",
			active.Name, active.Game, len(active.Binds), len(active.Aliases))
	} else {
		fmt.Fprintln(out, "active:      none")
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
