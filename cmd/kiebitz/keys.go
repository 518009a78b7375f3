package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kiebitz "github.com/kiebitz/client-go"
)

// writeJSON writes v to path with owner-only permissions, or to stdout if
// path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadAdminKeys(path string) (*kiebitz.AdminKeyPairs, error) {
	if path == "" {
		return nil, fmt.Errorf("--admin is required")
	}
	var keys kiebitz.AdminKeyPairs
	if err := readJSON(path, &keys); err != nil {
		return nil, err
	}
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("admin keys in %s: %w", path, err)
	}
	return &keys, nil
}

func loadMediatorKeys(path string) (*kiebitz.MediatorKeyPairs, error) {
	if path == "" {
		return nil, fmt.Errorf("--keys is required")
	}
	var keys kiebitz.MediatorKeyPairs
	if err := readJSON(path, &keys); err != nil {
		return nil, err
	}
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("mediator keys in %s: %w", path, err)
	}
	return &keys, nil
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate system and mediator keys",
	}
	cmd.AddCommand(adminKeysCmd(), mediatorKeysCmd())
	return cmd
}

func adminKeysCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Generate the root, token and provider data keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := kiebitz.GenerateAdminKeys(nil)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, out, keys); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Admin keys written to %s\nRoot key: %s\n", out, keys.Root.PublicKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func mediatorKeysCmd() *cobra.Command {
	var adminPath, out string
	cmd := &cobra.Command{
		Use:   "mediator",
		Short: "Generate mediator keys and authorize them on the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := loadAdminKeys(adminPath)
			if err != nil {
				return err
			}
			opts, closeFn, err := clientOptions()
			if err != nil {
				return err
			}
			defer closeFn()

			admin, err := kiebitz.NewAdmin(keys, opts...)
			if err != nil {
				return err
			}
			mediator, err := admin.GenerateMediatorKeys(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, out, mediator)
		},
	}
	cmd.Flags().StringVar(&adminPath, "admin", "", "admin keys file (required)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.MarkFlagRequired("admin")
	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the relay with the root key",
	}
	cmd.AddCommand(addMediatorCmd(), resetCmd())
	return cmd
}

func addMediatorCmd() *cobra.Command {
	var adminPath, signing, encryption string
	cmd := &cobra.Command{
		Use:   "add-mediator",
		Short: "Authorize existing mediator public keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := loadAdminKeys(adminPath)
			if err != nil {
				return err
			}
			opts, closeFn, err := clientOptions()
			if err != nil {
				return err
			}
			defer closeFn()

			admin, err := kiebitz.NewAdmin(keys, opts...)
			if err != nil {
				return err
			}
			if err := admin.AddMediator(cmd.Context(), signing, encryption); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Mediator added")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminPath, "admin", "", "admin keys file (required)")
	cmd.Flags().StringVar(&signing, "signing", "", "mediator signing public key (required)")
	cmd.Flags().StringVar(&encryption, "encryption", "", "mediator encryption public key (required)")
	cmd.MarkFlagRequired("admin")
	cmd.MarkFlagRequired("signing")
	cmd.MarkFlagRequired("encryption")
	return cmd
}

func resetCmd() *cobra.Command {
	var adminPath string
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data on the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			keys, err := loadAdminKeys(adminPath)
			if err != nil {
				return err
			}
			opts, closeFn, err := clientOptions()
			if err != nil {
				return err
			}
			defer closeFn()

			admin, err := kiebitz.NewAdmin(keys, opts...)
			if err != nil {
				return err
			}
			if err := admin.ResetDB(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Relay reset")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminPath, "admin", "", "admin keys file (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	cmd.MarkFlagRequired("admin")
	return cmd
}
