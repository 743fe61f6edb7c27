package cmd

import (
	"context"
	"fmt"
	"time"

	benchCfg "kvbench/config"
	"kvbench/constants"
	"kvbench/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

var PoolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Manage the benchmark pool",
	Long:  "Create or destroy the pool the benchmarks connect to. Only the etcd backend keeps pools outside the process",
}

var poolCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the pool of the config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEtcdDriver(func(ctx context.Context, driver *store.EtcdDriver, cfg *benchCfg.BenchConfig) error {
			if err := driver.CreatePool(ctx, cfg.PoolID); err != nil {
				return err
			}
			fmt.Printf("Pool %s created on %v\n", cfg.PoolID, cfg.Endpoints)
			return nil
		})
	},
}

var poolDestroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy the pool of the config and every container left in it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEtcdDriver(func(ctx context.Context, driver *store.EtcdDriver, cfg *benchCfg.BenchConfig) error {
			if err := driver.DestroyPool(ctx, cfg.PoolID); err != nil {
				return err
			}
			fmt.Printf("Pool %s destroyed\n", cfg.PoolID)
			return nil
		})
	},
}

func init() {
	PoolCmd.AddCommand(poolCreateCmd)
	PoolCmd.AddCommand(poolDestroyCmd)
}

func withEtcdDriver(fn func(context.Context, *store.EtcdDriver, *benchCfg.BenchConfig) error) error {
	cfg := GConfig.benchConfig
	if cfg == nil {
		cfg = benchCfg.GetDefaultConfig()
	}
	if cfg.Backend != constants.BACKEND_ETCD {
		return fmt.Errorf("pools are only managed for the %s backend, the config uses %s", constants.BACKEND_ETCD, cfg.Backend)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	driver := store.NewEtcdDriver(cfg.Endpoints, time.Duration(cfg.DialTimeout), logger.Named("etcd-client"))
	return fn(ctx, driver, cfg)
}
