package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func portalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Inspect active portal workers",
	}

	cmd.AddCommand(portalListCmd())
	cmd.AddCommand(portalShowCmd())

	return cmd
}

// --- portal list ---

func portalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active portal workers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos, err := client.ListPortals(context.Background())
			if err != nil {
				return fmt.Errorf("list portals: %w", err)
			}

			out, err := formatPortals(infos, outputFormat)
			if err != nil {
				return fmt.Errorf("format portals: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

// --- portal show ---

func portalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of one portal worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			info, err := client.GetPortal(context.Background(), args[0])
			if err != nil {
				if errors.Is(err, errNotFound) {
					return fmt.Errorf("portal %q: %w", args[0], errNotFound)
				}
				return fmt.Errorf("get portal: %w", err)
			}

			out, err := formatPortal(info, outputFormat)
			if err != nil {
				return fmt.Errorf("format portal: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}
