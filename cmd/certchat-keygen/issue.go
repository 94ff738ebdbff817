package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certchat/certchat-go/pkg/cert"
)

var (
	issueCertOutFlag string
	issueForceFlag   bool
)

var issueCmd = &cobra.Command{
	Use:   "issue <account>",
	Short: "Issue an account identity into a keystore",
	Long: `Generate a key pair for <account>, sign a one-year certificate with the CA
in --ca-dir, and seal both into <keystore-dir>/<account>.keystore.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := args[0]
		pass, err := passphrase()
		if err != nil {
			return err
		}

		ks := keystore()
		if ks.Exists(account) && !issueForceFlag {
			return fmt.Errorf("keystore for %q already exists at %s (use --force to replace)", account, ks.Path(account))
		}

		ca, err := cert.CADir(caDirFlag).Load()
		if err != nil {
			return fmt.Errorf("failed to load CA: %w", err)
		}
		id, err := cert.NewIdentity(ca, account)
		if err != nil {
			return fmt.Errorf("failed to issue identity: %w", err)
		}
		if err := ks.Save(id, pass); err != nil {
			return fmt.Errorf("failed to save keystore: %w", err)
		}
		if issueCertOutFlag != "" {
			if err := cert.WriteCertFile(issueCertOutFlag, id.Certificate); err != nil {
				return fmt.Errorf("failed to write certificate: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Issued identity for %q\n", account)
		fmt.Fprintf(out, "  Keystore:    %s\n", ks.Path(account))
		if issueCertOutFlag != "" {
			fmt.Fprintf(out, "  Certificate: %s\n", issueCertOutFlag)
		}
		fmt.Fprintf(out, "  Fingerprint: %s\n", cert.Fingerprint(id.Certificate))
		fmt.Fprintf(out, "  Expires:     %s\n", id.ExpiresAt().Format("2006-01-02"))
		return nil
	},
}

func init() {
	issueCmd.Flags().StringVar(&issueCertOutFlag, "cert-out", "", "also write the certificate as PEM to this file")
	issueCmd.Flags().BoolVar(&issueForceFlag, "force", false, "replace an existing keystore")
	rootCmd.AddCommand(issueCmd)
}
