package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riskgate-org/riskgate/execution"
	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/keyvaluedb/boltdb"
	"github.com/riskgate-org/riskgate/metrics"
	"github.com/riskgate-org/riskgate/node"
	"github.com/riskgate-org/riskgate/rpc"
)

const (
	defaultGenesisFileName = "genesis.yaml"
	defaultDBFileName      = "node.db"
	defaultRESTAddress     = "localhost:26866"
)

type nodeRunFlags struct {
	base *baseConfiguration

	GenesisFile     string
	DBFile          string
	RESTAddress     string
	MaxBodySize     int64
	ExecutorURL     string
	ExecutorTimeout time.Duration
}

func newNodeCmd(baseConfig *baseConfiguration, runFn nodeRunnable) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "node",
		Short: "Risk-gated ledger node",
	}
	cmd.AddCommand(nodeRunCmd(baseConfig, runFn))
	return cmd
}

func nodeRunCmd(baseConfig *baseConfiguration, runFn nodeRunnable) *cobra.Command {
	flags := &nodeRunFlags{base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "run",
		Short: "Starts the node",
		Long:  `Starts the node and serves the REST API. The state is created from the genesis file on first start and recovered from the database afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runFn != nil {
				return runFn(cmd.Context(), flags)
			}
			return nodeRun(cmd.Context(), flags)
		},
	}

	addGenesisFlag(cmd, &flags.GenesisFile)
	cmd.Flags().StringVar(&flags.DBFile, "db", "", fmt.Sprintf("path to the node database (default %s)", filepath.Join("$RG_HOME", defaultDBFileName)))
	cmd.Flags().StringVar(&flags.RESTAddress, "rest-address", defaultRESTAddress, "REST API listen address, disabled when empty")
	cmd.Flags().Int64Var(&flags.MaxBodySize, "rest-max-body", rpc.MaxBodySize, "maximum size of the REST request body in bytes")
	cmd.Flags().StringVar(&flags.ExecutorURL, "executor-url", "", "base URL of the venue executing revealed commitments, reveal fails when not set")
	cmd.Flags().DurationVar(&flags.ExecutorTimeout, "executor-timeout", 10*time.Second, "timeout of the execution venue call")
	return cmd
}

func nodeRun(ctx context.Context, flags *nodeRunFlags) (rErr error) {
	log := flags.base.log
	g, err := genesis.Load(flags.base.pathInHome(flags.GenesisFile, defaultGenesisFileName))
	if err != nil {
		return err
	}

	db, err := boltdb.New(flags.base.pathInHome(flags.DBFile, defaultDBFileName))
	if err != nil {
		return fmt.Errorf("opening node database: %w", err)
	}
	defer func() { rErr = errors.Join(rErr, db.Close()) }()

	reg := metrics.NewRegistry(flags.base.Metrics)
	opts := []node.Option{node.WithDB(db), node.WithMetrics(reg)}
	if flags.ExecutorURL != "" {
		client, err := execution.New(flags.ExecutorURL, flags.ExecutorTimeout)
		if err != nil {
			return err
		}
		opts = append(opts, node.WithExecutor(client))
	} else {
		log.Warn().Msg("execution venue is not configured, reveal transactions will fail")
	}

	n, err := node.New(g, log, opts...)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	defer n.Close()

	info, err := n.Info()
	if err != nil {
		return err
	}
	log.Info().Str("genesis", info.GenesisHash.Hex()).Uint64("round", info.Round).Msg("node started")

	if flags.RESTAddress == "" {
		<-ctx.Done()
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var metricsReg *metrics.Registry
		if flags.base.Metrics {
			metricsReg = reg
		}
		server := rpc.NewRESTServer(flags.RESTAddress, flags.MaxBodySize, metricsReg, log,
			rpc.NodeEndpoints(n, log),
			rpc.InfoEndpoints(n, log),
		)
		log.Info().Str("address", flags.RESTAddress).Msg("starting REST API")
		return httpsrv.Run(ctx, *server, httpsrv.ShutdownTimeout(5*time.Second))
	})
	return eg.Wait()
}
