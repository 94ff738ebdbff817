package main

import (
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/certchat/certchat-go/pkg/cert"
)

var showOutputFlag string

// certSummary is the printable form of a certificate.
type certSummary struct {
	Subject     string    `yaml:"subject"`
	Issuer      string    `yaml:"issuer"`
	Serial      string    `yaml:"serial"`
	Fingerprint string    `yaml:"fingerprint"`
	NotBefore   time.Time `yaml:"not_before"`
	NotAfter    time.Time `yaml:"not_after"`
	IsCA        bool      `yaml:"is_ca"`
	SKI         string    `yaml:"ski"`
	AKI         string    `yaml:"aki,omitempty"`
}

// showResult is what show prints.
type showResult struct {
	CA       *certSummary `yaml:"ca,omitempty"`
	CAKey    bool         `yaml:"ca_key_present"`
	Account  *certSummary `yaml:"account,omitempty"`
	Keystore string       `yaml:"keystore,omitempty"`
	Valid    *bool        `yaml:"valid,omitempty"`
	Problem  string       `yaml:"problem,omitempty"`
}

func summarize(c *x509.Certificate) *certSummary {
	info := cert.GetCertificateInfo(c)
	return &certSummary{
		Subject:     info.Subject,
		Issuer:      info.Issuer,
		Serial:      info.Serial,
		Fingerprint: info.Fingerprint,
		NotBefore:   info.NotBefore,
		NotAfter:    info.NotAfter,
		IsCA:        info.IsCA,
		SKI:         hex.EncodeToString(info.SKI),
		AKI:         hex.EncodeToString(info.AKI),
	}
}

var showCmd = &cobra.Command{
	Use:   "show [account]",
	Short: "Show the CA, or an account identity checked against it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res showResult

		if len(args) == 0 {
			dir := cert.CADir(caDirFlag)
			caCert, err := dir.LoadCertificate()
			if err != nil {
				return err
			}
			res.CA = summarize(caCert)
			_, err = dir.Load()
			res.CAKey = err == nil
		} else {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			ks := keystore()
			id, err := ks.Load(args[0], pass)
			if err != nil {
				return fmt.Errorf("failed to open keystore: %w", err)
			}
			res.Account = summarize(id.Certificate)
			res.CA = summarize(id.CACertificate)
			res.Keystore = ks.Path(args[0])

			valid := true
			if err := cert.VerifyPeerCertificate(id.Certificate, id.CACertificate); err != nil {
				valid = false
				res.Problem = err.Error()
			}
			res.Valid = &valid
		}

		return printShow(cmd.OutOrStdout(), &res, showOutputFlag)
	},
}

func printShow(w io.Writer, res *showResult, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
	default:
		return fmt.Errorf("unknown output format: %s (supported: text, yaml)", format)
	}

	if res.Account != nil {
		fmt.Fprintln(w, "Account:")
		printSummary(w, res.Account)
		fmt.Fprintf(w, "  Keystore:    %s\n", res.Keystore)
		if res.Valid != nil && *res.Valid {
			fmt.Fprintln(w, "  Status:      valid")
		} else {
			fmt.Fprintf(w, "  Status:      INVALID (%s)\n", res.Problem)
		}
		fmt.Fprintln(w)
	}
	if res.CA != nil {
		fmt.Fprintln(w, "CA:")
		printSummary(w, res.CA)
		if res.Account == nil {
			key := "absent"
			if res.CAKey {
				key = "present"
			}
			fmt.Fprintf(w, "  Private key: %s\n", key)
		}
	}
	return nil
}

func printSummary(w io.Writer, s *certSummary) {
	fmt.Fprintf(w, "  Subject:     %s\n", s.Subject)
	fmt.Fprintf(w, "  Issuer:      %s\n", s.Issuer)
	fmt.Fprintf(w, "  Serial:      %s\n", s.Serial)
	fmt.Fprintf(w, "  Fingerprint: %s\n", s.Fingerprint)
	fmt.Fprintf(w, "  Valid:       %s to %s\n", s.NotBefore.Format(time.RFC3339), s.NotAfter.Format(time.RFC3339))
}

func init() {
	showCmd.Flags().StringVarP(&showOutputFlag, "output", "o", "text", "output format: text, yaml")
	rootCmd.AddCommand(showCmd)
}
