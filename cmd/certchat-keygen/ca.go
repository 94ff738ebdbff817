package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certchat/certchat-go/pkg/cert"
)

var (
	initCANameFlag  string
	initCAForceFlag bool
)

var initCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Create the certificate authority",
	Long: `Create a self-signed P-256 CA valid for 20 years and write ca.pem and
ca.key into --ca-dir. An existing CA is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ca, err := cert.GenerateCA(initCANameFlag)
		if err != nil {
			return fmt.Errorf("failed to generate CA: %w", err)
		}
		dir := cert.CADir(caDirFlag)
		if err := dir.Save(ca, initCAForceFlag); err != nil {
			return fmt.Errorf("failed to save CA: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created CA %q\n", ca.Certificate.Subject.CommonName)
		fmt.Fprintf(out, "  Certificate: %s\n", dir.CertPath())
		fmt.Fprintf(out, "  Private key: %s\n", dir.KeyPath())
		fmt.Fprintf(out, "  Fingerprint: %s\n", cert.Fingerprint(ca.Certificate))
		fmt.Fprintf(out, "  Expires:     %s\n", ca.Certificate.NotAfter.Format("2006-01-02"))
		return nil
	},
}

func init() {
	initCACmd.Flags().StringVar(&initCANameFlag, "name", "certchat CA", "CA common name")
	initCACmd.Flags().BoolVar(&initCAForceFlag, "force", false, "replace an existing CA")
	rootCmd.AddCommand(initCACmd)
}
