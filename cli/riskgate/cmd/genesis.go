package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/util"
)

type genesisFlags struct {
	base *baseConfiguration

	OutputFile        string
	Force             bool
	DomainName        string
	DomainVersion     string
	ChainID           uint64
	VerifyingContract string
	Admins            []string
	Validators        []string
	MinSigners        uint64
	Issuers           []string
	Treasury          []string
	Sponsors          []string
	CreditLiquidity   uint64
	SponsorPool       uint64
}

func newGenesisCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "genesis",
		Short: "Creates and inspects genesis files",
	}
	cmd.AddCommand(genesisNewCmd(baseConfig))
	cmd.AddCommand(genesisHashCmd(baseConfig))
	return cmd
}

func genesisNewCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &genesisFlags{base: baseConfig}
	d := genesis.Default()
	var cmd = &cobra.Command{
		Use:   "new",
		Short: "Creates genesis file with default parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return genesisNew(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", fmt.Sprintf("genesis file to create (default %s)", filepath.Join("$RG_HOME", defaultGenesisFileName)))
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "overwrite existing genesis file")
	cmd.Flags().StringVar(&flags.DomainName, "domain-name", d.Domain.Name, "name of the signing domain")
	cmd.Flags().StringVar(&flags.DomainVersion, "domain-version", d.Domain.Version, "version of the signing domain")
	cmd.Flags().Uint64Var(&flags.ChainID, "chain-id", d.Domain.ChainID, "chain id of the signing domain")
	cmd.Flags().StringVar(&flags.VerifyingContract, "verifying-contract", "", "verifying contract address of the signing domain")
	cmd.Flags().StringSliceVar(&flags.Admins, "admin", nil, "admin address (can be repeated)")
	cmd.Flags().StringSliceVar(&flags.Validators, "validator", nil, "validator address (can be repeated)")
	cmd.Flags().Uint64Var(&flags.MinSigners, "min-signers", d.MinSigners, "number of validator signatures required by attestations")
	cmd.Flags().StringSliceVar(&flags.Issuers, "issuer", nil, "issuer address (can be repeated)")
	cmd.Flags().StringSliceVar(&flags.Treasury, "treasury", nil, "treasury address (can be repeated)")
	cmd.Flags().StringSliceVar(&flags.Sponsors, "sponsor", nil, "sponsor address (can be repeated)")
	cmd.Flags().Uint64Var(&flags.CreditLiquidity, "credit-liquidity", 0, "initial liquidity of the credit pool")
	cmd.Flags().Uint64Var(&flags.SponsorPool, "sponsor-pool", 0, "initial balance of the gas sponsor pool")
	return cmd
}

func genesisNew(flags *genesisFlags) error {
	file := flags.base.pathInHome(flags.OutputFile, defaultGenesisFileName)
	if util.FileExists(file) && !flags.Force {
		return fmt.Errorf("genesis file %s exists", file)
	}

	g := genesis.Default()
	g.Domain.Name = flags.DomainName
	g.Domain.Version = flags.DomainVersion
	g.Domain.ChainID = flags.ChainID
	g.MinSigners = flags.MinSigners
	g.CreditLiquidity = flags.CreditLiquidity
	g.SponsorPool = flags.SponsorPool
	if flags.VerifyingContract != "" {
		addr, err := parseAddress(flags.VerifyingContract)
		if err != nil {
			return fmt.Errorf("invalid verifying contract: %w", err)
		}
		g.Domain.VerifyingContract = addr
	}

	var err error
	for _, f := range []struct {
		name   string
		values []string
		dst    *[]common.Address
	}{
		{"admin", flags.Admins, &g.Admins},
		{"validator", flags.Validators, &g.Validators},
		{"issuer", flags.Issuers, &g.Issuers},
		{"treasury", flags.Treasury, &g.Treasury},
		{"sponsor", flags.Sponsors, &g.Sponsors},
	} {
		if *f.dst, err = parseAddresses(f.values); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}

	if err := g.IsValid(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	if err := g.Save(file); err != nil {
		return err
	}
	hash, err := g.Hash()
	if err != nil {
		return err
	}
	consoleWriter.Println("Genesis file", file, "created, hash", hash.Hex())
	return nil
}

func genesisHashCmd(baseConfig *baseConfiguration) *cobra.Command {
	var file string
	var cmd = &cobra.Command{
		Use:   "hash",
		Short: "Prints the hash of the genesis file",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := genesis.Load(baseConfig.pathInHome(file, defaultGenesisFileName))
			if err != nil {
				return err
			}
			hash, err := g.Hash()
			if err != nil {
				return err
			}
			consoleWriter.Println(hash.Hex())
			return nil
		},
	}
	addGenesisFlag(cmd, &file)
	return cmd
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex encoded address", s)
	}
	return common.HexToAddress(s), nil
}

func parseAddresses(values []string) ([]common.Address, error) {
	if len(values) == 0 {
		return nil, nil
	}
	addrs := make([]common.Address, 0, len(values))
	for _, v := range values {
		addr, err := parseAddress(v)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
