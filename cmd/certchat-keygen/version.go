package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certchat/certchat-go/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the certchat-keygen version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String("certchat-keygen"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
