package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/support-desk/backend/pkg/client"
)

func newLoginCmd() *cobra.Command {
	var profile profileFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a support session and print its descriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(serverURL, nil)
			if err != nil {
				return err
			}
			desc, err := c.Login(cmd.Context(), profile.first, profile.last)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		},
	}
	profile.register(cmd, false)
	return cmd
}
