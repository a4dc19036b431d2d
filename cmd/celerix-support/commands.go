package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

// lookupCmd submits a learner search
var lookupCmd = &cobra.Command{
	Use:   "lookup <identifier>",
	Short: "Search for a learner by username, email or numeric id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		view, err := client.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var inspectQuery schema.InspectorQuery

// inspectCmd runs the program-enrollment inspector
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect program enrollments by username or external key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectQuery.Empty() {
			return fmt.Errorf("one of --username or --external-key is required")
		}
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		view, err := client.Inspect(ctx, inspectQuery)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var edxUserID int64

// programsCmd loads the inspector for a numeric user id
var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Load the program inspector for an edX user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		if edxUserID <= 0 {
			return fmt.Errorf("--edx-user-id must be a positive integer")
		}
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		view, err := client.Programs(ctx, edxUserID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var cancelRetirementCmd = &cobra.Command{
	Use:   "cancel-retirement <retirement-id>",
	Short: "Cancel a pending account retirement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("retirement id must be a positive integer: %q", args[0])
		}
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := client.CancelRetirement(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var samlProvidersCmd = &cobra.Command{
	Use:   "saml-providers",
	Short: "List organization keys with a SAML provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		orgs, err := client.SAMLProviders(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), orgs)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, done, err := connect(cmd)
		if err != nil {
			return err
		}
		defer done()

		if err := client.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PONG")
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectQuery.Username, "username", "", "Learner username")
	inspectCmd.Flags().StringVar(&inspectQuery.ExternalKey, "external-key", "", "External user key")
	inspectCmd.Flags().StringVar(&inspectQuery.OrgKey, "org-key", "", "Organization key of the external user key")

	programsCmd.Flags().Int64Var(&edxUserID, "edx-user-id", 0, "Numeric edX user id")
}
