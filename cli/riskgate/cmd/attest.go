package cmd

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
)

type attestSignFlags struct {
	GenesisFile string
	KeyFiles    []string
	SubjectRef  string
	Subject     string
	Score       uint64
	Threshold   uint64
	Nonce       uint64
	Deadline    uint64
	Validity    time.Duration
}

func newAttestCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "attest",
		Short: "Signs and verifies risk attestations",
	}
	cmd.AddCommand(attestSignCmd(baseConfig))
	cmd.AddCommand(attestVerifyCmd(baseConfig))
	cmd.AddCommand(commitmentIDCmd())
	return cmd
}

func attestSignCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &attestSignFlags{}
	var cmd = &cobra.Command{
		Use:   "sign",
		Short: "Signs an attestation with validator keys and prints the signed attestation as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return attestSign(baseConfig, flags)
		},
	}
	addGenesisFlag(cmd, &flags.GenesisFile)
	cmd.Flags().StringSliceVarP(&flags.KeyFiles, "key", "k", nil, "validator key file (can be repeated)")
	cmd.Flags().StringVar(&flags.SubjectRef, "subject-ref", "", "32 byte hex encoded reference of the assessed subject")
	cmd.Flags().StringVar(&flags.Subject, "subject", "", "address of the subject")
	cmd.Flags().Uint64Var(&flags.Score, "score", 0, "risk score")
	cmd.Flags().Uint64Var(&flags.Threshold, "threshold", 0, "score threshold the subject must meet")
	cmd.Flags().Uint64Var(&flags.Nonce, "nonce", 0, "attestation nonce")
	cmd.Flags().Uint64Var(&flags.Deadline, "deadline", 0, "unix time after which the attestation expires, overrides --validity")
	cmd.Flags().DurationVar(&flags.Validity, "validity", time.Hour, "how long the attestation is valid, 0 means no deadline")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func attestSign(baseConfig *baseConfiguration, flags *attestSignFlags) error {
	g, err := genesis.Load(baseConfig.pathInHome(flags.GenesisFile, defaultGenesisFileName))
	if err != nil {
		return err
	}
	subject, err := parseAddress(flags.Subject)
	if err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	var ref common.Hash
	if flags.SubjectRef != "" {
		if ref, err = parseHash(flags.SubjectRef); err != nil {
			return fmt.Errorf("invalid subject ref: %w", err)
		}
	}
	deadline := flags.Deadline
	if deadline == 0 && flags.Validity > 0 {
		deadline = uint64(time.Now().Add(flags.Validity).Unix())
	}

	keys := make([]*ecdsa.PrivateKey, 0, len(flags.KeyFiles))
	for _, f := range flags.KeyFiles {
		key, err := loadKey(f)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	signed, err := attestation.NewSigned(g.Domain, &attestation.Attestation{
		SubjectRef: ref,
		Subject:    subject,
		Score:      flags.Score,
		Threshold:  flags.Threshold,
		Nonce:      flags.Nonce,
		Deadline:   deadline,
	}, keys...)
	if err != nil {
		return fmt.Errorf("signing attestation: %w", err)
	}
	b, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding signed attestation: %w", err)
	}
	consoleWriter.Println(string(b))
	return nil
}

func attestVerifyCmd(baseConfig *baseConfiguration) *cobra.Command {
	var genesisFile string
	var cmd = &cobra.Command{
		Use:   "verify <file>",
		Short: "Verifies the signed attestation against the validators of the genesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := genesis.Load(baseConfig.pathInHome(genesisFile, defaultGenesisFileName))
			if err != nil {
				return err
			}
			b, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("reading signed attestation: %w", err)
			}
			signed := &attestation.Signed{}
			if err := json.Unmarshal(b, signed); err != nil {
				return fmt.Errorf("decoding signed attestation: %w", err)
			}
			if signed.Attestation == nil {
				return fmt.Errorf("signed attestation has no attestation")
			}
			validators := attestation.NewValidators(g.Validators...)
			now := uint64(time.Now().Unix())
			if err := attestation.Check(signed.Attestation, signed.SignatureSlice(), g.MinSigners, validators, g.Domain, now); err != nil {
				return fmt.Errorf("attestation is not valid: %w", err)
			}
			consoleWriter.Println("attestation is valid")
			return nil
		},
	}
	addGenesisFlag(cmd, &genesisFile)
	return cmd
}

func commitmentIDCmd() *cobra.Command {
	var owner, paramsHash, salt string
	var deadline uint64
	var cmd = &cobra.Command{
		Use:   "commitment-id",
		Short: "Computes the id of a commit-reveal commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := parseAddress(owner)
			if err != nil {
				return fmt.Errorf("invalid owner: %w", err)
			}
			ph, err := parseHash(paramsHash)
			if err != nil {
				return fmt.Errorf("invalid params hash: %w", err)
			}
			s, err := parseHash(salt)
			if err != nil {
				return fmt.Errorf("invalid salt: %w", err)
			}
			id, err := escrow.CommitmentID(o, ph, s, deadline)
			if err != nil {
				return err
			}
			consoleWriter.Println(id.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "address of the commitment owner")
	cmd.Flags().StringVar(&paramsHash, "params-hash", "", "keccak256 of the execution params")
	cmd.Flags().StringVar(&salt, "salt", "", "32 byte hex encoded salt")
	cmd.Flags().Uint64Var(&deadline, "deadline", 0, "refund deadline, 0 means not refundable")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("params-hash")
	_ = cmd.MarkFlagRequired("salt")
	return cmd
}

func addGenesisFlag(cmd *cobra.Command, value *string) {
	cmd.Flags().StringVar(value, "genesis", "", fmt.Sprintf("path to the genesis file (default %s)", filepath.Join("$RG_HOME", defaultGenesisFileName)))
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
