package main

import (
	"fmt"

	"github.com/spf13/cobra"

	kiebitz "github.com/kiebitz/client-go"
	"github.com/kiebitz/client-go/internal/crypto"
)

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Create and derive backup secrets",
	}
	cmd.AddCommand(newSecretCmd(), deriveSecretCmd())
	return cmd
}

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Print a fresh backup secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := kiebitz.GenerateSecret(nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), crypto.FormatSecret(secret))
			return nil
		},
	}
}

func deriveSecretCmd() *cobra.Command {
	var count, length int
	cmd := &cobra.Command{
		Use:   "derive <secret>",
		Short: "Print the values derived from a backup secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := crypto.FromBase32(args[0])
			if err != nil {
				return err
			}
			derived, err := crypto.DeriveSecrets(raw, length, count)
			if err != nil {
				return err
			}
			for i, d := range derived {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, d)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 2, "number of values")
	cmd.Flags().IntVar(&length, "length", 32, "bytes per value")
	return cmd
}
