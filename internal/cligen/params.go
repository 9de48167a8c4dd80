package cligen

import (
	"strings"

	"github.com/spf13/cobra"
)

type flagBinding struct {
	spec FlagSpec

	s  *string
	i  *int
	b  *bool
	f  *float64
	sa *[]string
}

func bindFlags(cmd *cobra.Command, specs []FlagSpec) []*flagBinding {
	var out []*flagBinding
	for _, fs := range specs {
		desc := fs.Help
		if fs.EnvVar != "" {
			desc += " [env " + fs.EnvVar + "]"
		}
		b := &flagBinding{spec: fs}

		switch fs.Kind {
		case KindInt:
			b.i = new(int)
			cmd.Flags().IntVarP(b.i, fs.Name, fs.Shorthand, 0, desc)
		case KindBool:
			b.b = new(bool)
			cmd.Flags().BoolVarP(b.b, fs.Name, fs.Shorthand, false, desc)
		case KindFloat:
			b.f = new(float64)
			cmd.Flags().Float64VarP(b.f, fs.Name, fs.Shorthand, 0, desc)
		case KindStringArray:
			b.sa = new([]string)
			cmd.Flags().StringArrayVarP(b.sa, fs.Name, fs.Shorthand, nil, desc)
		default:
			b.s = new(string)
			cmd.Flags().StringVarP(b.s, fs.Name, fs.Shorthand, "", desc)
		}
		if fs.Required {
			_ = cmd.MarkFlagRequired(fs.Name)
		}
		out = append(out, b)
	}
	return out
}

// value returns the flag's value if it was set on the command line, else the
// environment fallback.
func (b *flagBinding) value(cmd *cobra.Command, getenv func(string) string) (any, bool) {
	if cmd.Flags().Changed(b.spec.Name) {
		switch b.spec.Kind {
		case KindInt:
			return *b.i, true
		case KindBool:
			return *b.b, true
		case KindFloat:
			return *b.f, true
		case KindStringArray:
			return append([]string(nil), (*b.sa)...), true
		default:
			return *b.s, true
		}
	}
	if b.spec.EnvVar != "" && getenv != nil {
		if v := strings.TrimSpace(getenv(b.spec.EnvVar)); v != "" {
			return v, true
		}
	}
	return nil, false
}

// collectValues gathers positional arguments and set flags into Values.
func collectValues(cmd *cobra.Command, c *Command, args []string, bindings []*flagBinding, getenv func(string) string) Values {
	vals := Values{}
	for i, a := range c.Args {
		if i < len(args) {
			vals[a.Name] = args[i]
		}
	}
	for _, b := range bindings {
		if v, ok := b.value(cmd, getenv); ok {
			vals[b.spec.Name] = v
		}
	}
	return vals
}
