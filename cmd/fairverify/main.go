// Command fairverify replays a settled bet offline from its revealed server
// seed, with no database or running service.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fastprodman/betsettle/internal/config"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fairverify",
		Short:        "Verify provably fair bet outcomes",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVerifyCmd(), newHashCmd())

	return rootCmd
}

func newVerifyCmd() *cobra.Command {
	var (
		req        fairness.VerifyRequest
		game       string
		params     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute an outcome from server seed, client seed and nonce",
		Long: `Recompute an outcome from its inputs and print the result as JSON.
Exits non-zero when the inputs do not verify.

The draw is HMAC-SHA256(serverSeed, "clientSeed:nonce"). Its first four
bytes, read big-endian, are divided by 2^32 (4294967296), NOT by 2^32-1,
so every draw lies in [0,1). The output carries rngPrefix and rngDivisor
so the division can be checked by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := games.ParseGame(game)
			if err != nil {
				return err
			}

			settlement, err := config.LoadSettlement(configPath)
			if err != nil {
				return err
			}

			req.Game = g
			req.Rules, err = settlement.Games.Rules(g)
			if err != nil {
				return err
			}

			if params != "" {
				err = json.Unmarshal([]byte(params), &req.Params)
				if err != nil {
					return fmt.Errorf("params: %w", err)
				}
			}

			res := fairness.Verify(req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			err = enc.Encode(res)
			if err != nil {
				return fmt.Errorf("write result: %w", err)
			}

			if !res.Valid {
				return fmt.Errorf("verification failed: %s", res.Error)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&req.ServerSeed, "server-seed", "s", "", "Revealed server seed (required)")
	cmd.Flags().StringVarP(&req.ClientSeed, "client-seed", "c", "", "Client seed of the bet")
	cmd.Flags().Int64VarP(&req.Nonce, "nonce", "n", 0, "Nonce of the bet (required)")
	cmd.Flags().StringVarP(&game, "game", "g", "", "Game id, e.g. candle_flip (required)")
	cmd.Flags().StringVarP(&params, "params", "p", "", `Game params as JSON, e.g. '{"mines":3,"picks":[0,7]}'`)
	cmd.Flags().StringVar(&req.ExpectedHash, "hash", "", "Committed server seed hash to check against")
	cmd.Flags().StringVar(&configPath, "config", "", "Settlement YAML with the game catalog (default: built-in rules)")

	for _, name := range []string{"server-seed", "nonce", "game"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <server-seed>",
		Short: "Print the commitment hash of a server seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fairness.HashServerSeed(args[0]))
			return err
		},
	}
}
