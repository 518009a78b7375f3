package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	kiebitz "github.com/kiebitz/client-go"
)

func mediatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediator",
		Short: "Review and verify providers",
	}
	cmd.AddCommand(providersCmd(), verifyCmd())
	return cmd
}

func newMediator(path string) (*kiebitz.Mediator, func(), error) {
	keys, err := loadMediatorKeys(path)
	if err != nil {
		return nil, nil, err
	}
	opts, closeFn, err := clientOptions()
	if err != nil {
		return nil, nil, err
	}
	m, err := kiebitz.NewMediator(keys, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return m, closeFn, nil
}

func providersCmd() *cobra.Command {
	var keysPath string
	var verified bool
	var limit int
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List pending (or verified) providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newMediator(keysPath)
			if err != nil {
				return err
			}
			defer closeFn()

			list := m.PendingProviders
			if verified {
				list = m.VerifiedProviders
			}
			providers, err := list(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tZIP\tEMAIL")
			for _, p := range providers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Data.Name, p.Data.ZipCode, p.Data.Email)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&keysPath, "keys", "", "mediator keys file (required)")
	cmd.Flags().BoolVar(&verified, "verified", false, "list verified providers instead")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of providers (0 = all)")
	cmd.MarkFlagRequired("keys")
	return cmd
}

func verifyCmd() *cobra.Command {
	var keysPath string
	var all bool
	cmd := &cobra.Command{
		Use:   "verify [provider-id...]",
		Short: "Confirm pending providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name provider ids or pass --all")
			}
			m, closeFn, err := newMediator(keysPath)
			if err != nil {
				return err
			}
			defer closeFn()

			pending, err := m.PendingProviders(cmd.Context(), 0)
			if err != nil {
				return err
			}
			confirmed := 0
			for i := range pending {
				p := &pending[i]
				if !all && !slices.Contains(args, p.ID) {
					continue
				}
				if err := m.ConfirmProvider(cmd.Context(), p); err != nil {
					return fmt.Errorf("confirm %s: %w", p.ID, err)
				}
				logger.Info("provider verified", zap.String("provider_id", p.ID), zap.String("name", p.Data.Name))
				confirmed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verified %d provider(s)\n", confirmed)
			return nil
		},
	}
	cmd.Flags().StringVar(&keysPath, "keys", "", "mediator keys file (required)")
	cmd.Flags().BoolVar(&all, "all", false, "confirm every pending provider")
	cmd.MarkFlagRequired("keys")
	return cmd
}
