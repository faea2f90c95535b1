package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the API key is accepted",
	Long: `Verify calls the Copicake account endpoint with the configured key and
prints the account payload.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	account, err := client.Verify(cmd.Context())
	if err != nil {
		return err
	}
	slog.Info("API key accepted", "base_url", baseURL)
	return printJSON(cmd, account)
}
