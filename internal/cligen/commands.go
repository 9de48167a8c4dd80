package cligen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tarrence/clify/internal/clifyhttp"
)

// OperationsGroup is the help group generated commands are listed under.
const OperationsGroup = "operations"

// AddCommands attaches one command per tree leaf to root.
func AddCommands(root *cobra.Command, tree *Tree, rt *Runtime) {
	if tree.Len() == 0 {
		return
	}
	if !root.ContainsGroup(OperationsGroup) {
		title := "API Commands:"
		if tree.Title != "" {
			title = tree.Title + " Commands:"
		}
		root.AddGroup(&cobra.Group{ID: OperationsGroup, Title: title})
	}
	for _, name := range tree.Names() {
		c, _ := tree.Command(name)
		cmd := NewCommand(c, rt)
		cmd.GroupID = OperationsGroup
		root.AddCommand(cmd)
	}
}

// NewCommand returns the cobra command for one operation. Values are read
// from rt when the command runs, so rt may be filled in after construction.
// A configured rt.Server takes precedence over the operation's own server.
func NewCommand(c *Command, rt *Runtime) *cobra.Command {
	use := c.Name
	for _, a := range c.Args {
		use += " <" + a.Name + ">"
	}
	short := c.Summary
	if short == "" {
		short = c.Endpoint()
	}
	long := c.Endpoint()
	if c.OperationID != "" {
		long += " (operationId " + c.OperationID + ")"
	}
	if c.Description != "" {
		long = c.Description + "\n\n" + long
	}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          pathArgs(c),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindings := bindFlags(cmd, c.Flags)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := rt.check(); err != nil {
			return err
		}
		vals := collectValues(cmd, c, args, bindings, rt.getenv)
		if err := rt.promptForPassword(c, vals); err != nil {
			return err
		}

		server := rt.Server
		if server == "" {
			server = c.Server
		}
		req, err := rt.Builder.Build(server, c, vals)
		if err != nil {
			return err
		}
		rt.logger().Debug("dispatching request", "command", c.Name, "method", req.Method, "url", req.URL)

		res, err := rt.Client.Execute(cmd.Context(), req)
		if err != nil {
			var terr *clifyhttp.TransportError
			if errors.As(err, &terr) {
				if perr := rt.Printer.PrintTransportError(terr); perr != nil {
					return perr
				}
				return &ReportedError{Err: err}
			}
			return err
		}
		return rt.Printer.PrintResponse(res)
	}
	return cmd
}

// pathArgs requires one positional argument per path template variable.
func pathArgs(c *Command) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > len(c.Args) {
			return fmt.Errorf("accepts %d arg(s), received %d", len(c.Args), len(args))
		}
		if len(args) < len(c.Args) {
			return &MissingPathParamError{Param: c.Args[len(args)].Param}
		}
		for i, a := range args {
			if strings.TrimSpace(a) == "" {
				return &MissingPathParamError{Param: c.Args[i].Param}
			}
		}
		return nil
	}
}

// promptForPassword asks for the basic auth password when only the username is bound.
func (rt *Runtime) promptForPassword(c *Command, vals Values) error {
	if rt.PromptPassword == nil {
		return nil
	}
	var user, pass *FlagSpec
	for i := range c.Flags {
		f := &c.Flags[i]
		if f.In != InSecurity {
			continue
		}
		switch f.Key {
		case UsernameFlag:
			user = f
		case PasswordFlag:
			pass = f
		}
	}
	if user == nil || pass == nil {
		return nil
	}
	u, _ := scalar(vals[user.Name])
	if p, _ := scalar(vals[pass.Name]); u == "" || p != "" {
		return nil
	}
	p, err := rt.PromptPassword(fmt.Sprintf("Password for %s: ", u))
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	vals[pass.Name] = p
	return nil
}
