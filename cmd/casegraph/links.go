package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/application/handlers"
)

type linkFlags struct {
	resolution    string
	bidirectional bool
}

func newLinkCmd() *cobra.Command {
	var flags linkFlags

	cmd := &cobra.Command{
		Use:   "link SOURCE_UID TARGET_UID",
		Short: "Link two entities",
		Long: `Creates a directed link from source to target. Linking an existing pair
appends the new resolution to the old one.

Examples:
  casegraph -p acme link 3f2a... 9b1c... --resolution "works for"
  casegraph -p acme link 3f2a... 9b1c... -r "knows" --bidirectional`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, args[0], args[1], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.resolution, "resolution", "r", "", "Link label")
	cmd.Flags().BoolVarP(&flags.bidirectional, "bidirectional", "b", false, "Also link target to source")

	return cmd
}

func runLink(cmd *cobra.Command, source, target string, flags linkFlags) error {
	return withLinkHandler(cmd.Context(), func(handler *handlers.LinkHandler) error {
		links, err := handler.HandleCreate(source, target, flags.resolution, flags.bidirectional)
		if err != nil {
			return fmt.Errorf("linking entities: %w", err)
		}

		for _, l := range links {
			fmt.Printf("Linked %s --[%s]--> %s\n", l.Key.Source, l.Resolution, l.Key.Target)
		}
		return nil
	})
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink SOURCE_UID TARGET_UID",
		Short: "Remove the link from source to target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnlink(cmd, args[0], args[1])
		},
	}
}

func runUnlink(cmd *cobra.Command, source, target string) error {
	return withLinkHandler(cmd.Context(), func(handler *handlers.LinkHandler) error {
		if err := handler.HandleDelete(source, target); err != nil {
			return fmt.Errorf("removing link: %w", err)
		}

		fmt.Printf("Removed link %s --> %s\n", source, target)
		return nil
	})
}

type linksFlags struct {
	depth  int
	format string
}

func newLinksCmd() *cobra.Command {
	var flags linksFlags

	cmd := &cobra.Command{
		Use:   "links UID",
		Short: "List links touching an entity",
		Long: `Shows the links into and out of an entity. With --depth above 1 the
entities reachable within that many hops are listed too.

Examples:
  casegraph -p acme links 3f2a...
  casegraph -p acme links 3f2a... --depth 3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinks(cmd, args[0], flags)
		},
	}

	cmd.Flags().IntVar(&flags.depth, "depth", DefaultLinkDepth, fmt.Sprintf("Traversal depth (1-%d)", MaxLinkDepth))
	cmd.Flags().StringVar(&flags.format, "format", "list", "Output format: list, json")

	return cmd
}

func runLinks(cmd *cobra.Command, uid string, flags linksFlags) error {
	if flags.depth < 1 || flags.depth > MaxLinkDepth {
		return fmt.Errorf("depth must be between 1 and %d", MaxLinkDepth)
	}
	if flags.format != "list" && flags.format != "json" {
		return errors.New("invalid format (valid: list, json)")
	}

	return withLinkHandler(cmd.Context(), func(handler *handlers.LinkHandler) error {
		result, err := handler.HandleList(uid, handlers.ListOptions{Depth: flags.depth})
		if err != nil {
			return fmt.Errorf("listing links: %w", err)
		}

		if flags.format == "json" {
			return printJSON(os.Stdout, result)
		}

		if len(result.Links) == 0 {
			fmt.Printf("No links found for entity: %s\n", uid)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tTARGET\tRESOLUTION")
		for _, l := range result.Links {
			fmt.Fprintf(w, "%s\t%s\t%s\n", l.Key.Source, l.Key.Target, truncate(l.Resolution, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(result.Related) > 0 {
			fmt.Printf("\nReachable within %d hops:\n", flags.depth)
			for _, r := range result.Related {
				fmt.Printf("  [%d] %s\n", r.Depth, r.UID)
			}
		}
		return nil
	})
}
