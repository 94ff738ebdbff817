package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/certchat/certchat-go/pkg/cert"
)

const passphraseEnv = "CERTCHAT_PASSPHRASE"

var (
	// Global flags
	caDirFlag       string
	keystoreDirFlag string
	passphraseFlag  string

	// keystoreKDF overrides the keystore cost parameters; tests lower it.
	keystoreKDF *cert.KDFParams
)

var rootCmd = &cobra.Command{
	Use:   "certchat-keygen",
	Short: "Manage the certchat CA and account identities",
	Long: `certchat-keygen creates the certificate authority shared by certchat peers,
issues account certificates into passphrase-protected keystores, and shows
what a CA directory or keystore contains.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".certchat", name)
	}
	return filepath.Join(home, ".certchat", name)
}

func keystore() *cert.Keystore {
	return &cert.Keystore{Dir: keystoreDirFlag, KDF: keystoreKDF}
}

// passphrase returns the keystore passphrase from the flag or environment.
func passphrase() ([]byte, error) {
	p := passphraseFlag
	if p == "" {
		p = os.Getenv(passphraseEnv)
	}
	if p == "" {
		return nil, fmt.Errorf("passphrase required (--passphrase or %s)", passphraseEnv)
	}
	return []byte(p), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&caDirFlag, "ca-dir", defaultDir("ca"), "CA directory (ca.pem, ca.key)")
	rootCmd.PersistentFlags().StringVar(&keystoreDirFlag, "keystore-dir", defaultDir("keystore"), "keystore directory")
	rootCmd.PersistentFlags().StringVar(&passphraseFlag, "passphrase", "", "keystore passphrase (or "+passphraseEnv+")")
}
