package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tarrence/clify/internal/cligen"
	"github.com/tarrence/clify/internal/openapi"
)

func (a *app) newSpecCmd() *cobra.Command {
	specCmd := &cobra.Command{
		Use:           "spec",
		Short:         "Inspect the loaded OpenAPI document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	specCmd.AddCommand(a.newSpecInfoCmd())
	specCmd.AddCommand(a.newSpecEndpointsCmd())
	specCmd.AddCommand(a.newSpecVerifyCmd())

	return specCmd
}

// document returns the loaded document or a usage error explaining why there is none.
func (a *app) document() (*openapi.Document, error) {
	if a.catalog == nil {
		return nil, newUsageError("no OpenAPI document: pass --openapi-file or set CLIFY_OPENAPI_FILE")
	}
	if err := a.catalog.Err(); err != nil {
		return nil, err
	}
	return a.catalog.Document(), nil
}

func (a *app) newSpecInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "info",
		Short:         "Show document metadata",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.document()
			if err != nil {
				return err
			}
			tree := a.catalog.Tree()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Title:\t%s\n", doc.Spec.Info.Title)
			fmt.Fprintf(w, "Version:\t%s\n", doc.Spec.Info.Version)
			fmt.Fprintf(w, "OpenAPI:\t%s\n", doc.Spec.OpenAPI)
			fmt.Fprintf(w, "Source:\t%s\n", doc.Source)
			if doc.Upgraded {
				fmt.Fprintf(w, "Upgraded:\tfrom Swagger 2.0\n")
			}
			fmt.Fprintf(w, "Server:\t%s\n", tree.DefaultServer)
			fmt.Fprintf(w, "Endpoints:\t%d\n", len(doc.Spec.Endpoints()))
			fmt.Fprintf(w, "Commands:\t%d\n", tree.Len())
			if n := len(doc.Spec.Components.SecuritySchemes); n > 0 {
				fmt.Fprintf(w, "Security schemes:\t%d\n", n)
			}
			return w.Flush()
		},
	}
}

func (a *app) newSpecEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "endpoints",
		Short:         "List operations and the commands they map to",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.document(); err != nil {
				return err
			}
			tree := a.catalog.Tree()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tMETHOD\tPATH\tTAGS\tSUMMARY")
			for _, name := range tree.Names() {
				c, _ := tree.Command(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Method, c.Path, strings.Join(c.Tags, ","), c.Summary)
			}
			return w.Flush()
		},
	}
}

func (a *app) newSpecVerifyCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Check that the document loads and maps to unique commands",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.document()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := 0
			for _, w := range doc.Warnings {
				problems++
				fmt.Fprintln(out, "malformed field:", w)
			}
			for _, c := range a.catalog.Tree().Collisions {
				problems++
				fmt.Fprintf(out, "duplicate command %q: %s replaced by %s\n", c.Name, c.Dropped, c.Kept)
			}
			if strict {
				msgs, err := openapi.VerifyStrict(cmd.Context(), doc)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					problems++
					fmt.Fprintln(out, m)
				}
			}
			if problems > 0 {
				return &cligen.ReportedError{Err: fmt.Errorf("%d problem(s) found", problems)}
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Also run full OpenAPI 3 validation")
	return cmd
}
