package cmd

import (
	"fmt"
	"os"
	"path"

	benchCfg "kvbench/config"
	"kvbench/constants"

	"github.com/spf13/cobra"
)

type globalConfig struct {
	// directory holding the default config file
	benchConfigPath string
	// explicit config file given with --config, any supported format
	benchConfigFile string
	benchConfig     *benchCfg.BenchConfig
	verbose         bool
}

// GetConfigFilePath returns the config file the commands read and write.
func (g *globalConfig) GetConfigFilePath() string {
	if g.benchConfigFile != "" {
		return g.benchConfigFile
	}
	return path.Join(g.benchConfigPath, constants.DEFAULT_CONFIG_FILE)
}

var GConfig = &globalConfig{}

var rootCmd = &cobra.Command{
	Use:   "kvbench",
	Short: "Kvbench is a CLI tool for benchmarking key-value stores",
	Long:  "A CLI tool for measuring put, get, list and remove performance of a flat key-value object across a matrix of key sizes, value sizes and operation counts",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&GConfig.benchConfigFile, "config", "", "Config file to use instead of the one in the config directory (.json, .yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&GConfig.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(RunCmd)
	rootCmd.AddCommand(MatrixCmd)
	rootCmd.AddCommand(ConfigCmd)
	rootCmd.AddCommand(PoolCmd)
}

// loadConfig reads the config file if there is one. A missing default config
// is not an error, commands that need it fall back or ask for 'config init'.
func loadConfig() error {
	if GConfig.benchConfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		GConfig.benchConfigPath = path.Join(home, constants.DEFAULT_CONFIG_DIR)
	}

	configFile := GConfig.GetConfigFilePath()
	if _, err := os.Stat(configFile); err != nil {
		if os.IsNotExist(err) && GConfig.benchConfigFile == "" {
			return nil
		}
		return err
	}
	cfg, err := benchCfg.ReadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configFile, err)
	}
	GConfig.benchConfig = cfg
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
