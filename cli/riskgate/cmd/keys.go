package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/riskgate-org/riskgate/util"
)

func newKeysCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "keys",
		Short: "Manages secp256k1 keys of validators and users",
	}
	cmd.AddCommand(keysNewCmd(baseConfig))
	cmd.AddCommand(keysAddressCmd())
	return cmd
}

func keysNewCmd(baseConfig *baseConfiguration) *cobra.Command {
	var file string
	var force bool
	var cmd = &cobra.Command{
		Use:   "new",
		Short: "Generates a new key and writes it hex encoded into the file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file = baseConfig.pathInHome(file, "key.hex")
			if util.FileExists(file) && !force {
				return fmt.Errorf("key file %s exists", file)
			}
			key, err := crypto.GenerateKey()
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
				return fmt.Errorf("creating key directory: %w", err)
			}
			if err := crypto.SaveECDSA(file, key); err != nil {
				return fmt.Errorf("saving key: %w", err)
			}
			consoleWriter.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "output", "o", "", fmt.Sprintf("key file to create (default %s)", filepath.Join("$RG_HOME", "key.hex")))
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing key file")
	return cmd
}

func keysAddressCmd() *cobra.Command {
	var file string
	var cmd = &cobra.Command{
		Use:   "address",
		Short: "Prints the address of the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(file)
			if err != nil {
				return err
			}
			consoleWriter.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "key", "k", "", "hex encoded key file")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func loadKey(file string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(file)
	if err != nil {
		return nil, fmt.Errorf("loading key %s: %w", file, err)
	}
	return key, nil
}
