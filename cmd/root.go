package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tarrence/clify/internal/clifyhttp"
	"github.com/tarrence/clify/internal/cligen"
	"github.com/tarrence/clify/internal/config"
	clifylog "github.com/tarrence/clify/internal/log"
	"github.com/tarrence/clify/internal/openapi"
	"github.com/tarrence/clify/internal/output"
	"github.com/tarrence/clify/internal/version"
)

type rootOptions struct {
	OpenAPIFile string
	Server      string
	Output      string
	ConfigFile  string
	Timeout     time.Duration
	Retries     int

	Debug bool
	Trace bool

	StrictNames        bool
	RetryNonIdempotent bool
}

// reservedFlags are the root's persistent flags plus cobra's own; generated
// flags are renamed around them.
var reservedFlags = []string{
	config.KeyOpenAPIFile, config.KeyServer, config.KeyOutput, "config",
	config.KeyTimeout, config.KeyRetries, config.KeyDebug, config.KeyTrace,
	config.KeyStrictNames, "retry-non-idempotent", "help", "version",
}

type app struct {
	opts rootOptions
	cfg  *config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger  *slog.Logger
	catalog *cligen.Catalog
	rt      *cligen.Runtime
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		opts: rootOptions{
			Output:  string(output.ModeJSON),
			Timeout: clifyhttp.DefaultTimeout,
		},
		cfg:    config.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: clifylog.Discard(),
		rt:     &cligen.Runtime{},
	}
}

func (a *app) addPersistentFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&a.opts.OpenAPIFile, config.KeyOpenAPIFile, "f", "", "OpenAPI document path or URL [env CLIFY_OPENAPI_FILE, OPENAPI_FILE_PATH]")
	fs.StringVarP(&a.opts.Server, config.KeyServer, "s", "", "API server base URL [env CLIFY_SERVER]")
	fs.StringVarP(&a.opts.Output, config.KeyOutput, "o", a.opts.Output, "Output format for JSON responses: json, yaml or table")
	fs.StringVar(&a.opts.ConfigFile, "config", "", "Config file (YAML, JSON or TOML)")
	fs.DurationVar(&a.opts.Timeout, config.KeyTimeout, a.opts.Timeout, "HTTP timeout for fetching the document and calling the API")
	fs.IntVar(&a.opts.Retries, config.KeyRetries, 0, "Retries on 429/5xx responses")
	fs.BoolVar(&a.opts.Debug, config.KeyDebug, false, "Log request/response metadata to stderr (redacts credentials)")
	fs.BoolVar(&a.opts.Trace, config.KeyTrace, false, "Log full request/response bodies to stderr (redacts credential headers)")
	fs.BoolVar(&a.opts.StrictNames, config.KeyStrictNames, false, "Fail when two operations derive the same command name")
	fs.BoolVar(&a.opts.RetryNonIdempotent, "retry-non-idempotent", false, "Allow retries for non-idempotent requests on 429/5xx")
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clify",
		Short: "Run any OpenAPI described API from the command line",
		Long: "clify turns an OpenAPI (2.0 or 3.x) document into commands: one per operation,\n" +
			"with path parameters as arguments and query, header and cookie parameters as flags.\n\n" +
			"Usage:\n" +
			"  clify -f api.yaml <operation> [path-args...] [flags]\n\n" +
			"Examples:\n" +
			"  export CLIFY_OPENAPI_FILE=https://api.example.com/openapi.yaml\n" +
			"  clify get-users --limit 10\n" +
			"  clify get-user-by-id 123 -o yaml\n" +
			"  clify create-user --data @user.json --token \"$TOKEN\"\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initRuntime(cmd.Root())
		},
	}
	a.addPersistentFlags(root.PersistentFlags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newUsageError(err.Error())
	})

	root.SetVersionTemplate("{{.Version}}\n")
	root.Version = version.Version()

	root.AddCommand(a.newSpecCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// initRuntime resolves settings after flag parsing and fills in the runtime
// shared by generated commands.
func (a *app) initRuntime(root *cobra.Command) error {
	if err := a.cfg.BindFlags(root.PersistentFlags()); err != nil {
		return err
	}
	mode, err := output.ParseMode(a.cfg.Output())
	if err != nil {
		return newUsageError(err.Error())
	}
	if a.cfg.Retries() < 0 {
		return newUsageError(fmt.Sprintf("invalid --retries %d (must be >= 0)", a.cfg.Retries()))
	}
	a.logger = clifylog.New(a.stderr, a.cfg.Debug())

	a.rt.Server = a.cfg.Server()
	a.rt.Logger = a.logger
	a.rt.Printer = output.NewPrinter(a.stdout, a.stderr, mode)
	a.rt.Builder = cligen.RequestBuilder{UserAgent: version.UserAgent(), Stdin: a.stdin}
	a.rt.Client = clifyhttp.NewClient(clifyhttp.ClientOptions{
		Timeout:            a.cfg.Timeout(),
		Retries:            a.cfg.Retries(),
		Debug:              a.cfg.Debug(),
		Trace:              a.cfg.Trace(),
		RetryNonIdempotent: a.opts.RetryNonIdempotent,
		UserAgent:          version.UserAgent(),
		Redact:             a.sensitiveKeys(),
		Out:                a.stderr,
	})
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.rt.PromptPassword = func(prompt string) (string, error) {
			fmt.Fprint(a.stderr, prompt)
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(a.stderr)
			return string(b), err
		}
	}
	return nil
}

// sensitiveKeys lists the wire names of every credential flag so the client
// masks them in debug output.
func (a *app) sensitiveKeys() []string {
	if a.catalog == nil {
		return nil
	}
	tree := a.catalog.Tree()
	seen := map[string]bool{}
	var out []string
	for _, name := range tree.Names() {
		c, _ := tree.Command(name)
		for _, f := range c.Flags {
			if f.Sensitive && f.Key != "" && !seen[f.Key] {
				seen[f.Key] = true
				out = append(out, f.Key)
			}
		}
	}
	return out
}

// prescan reads the flags needed before the command tree can exist.
func (a *app) prescan(args []string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("prescan", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	var scratch app
	scratch.opts = a.opts
	scratch.addPersistentFlags(fs)
	fs.BoolP("help", "h", false, "")
	fs.Bool("version", false, "")
	_ = fs.Parse(args)
	return fs
}

// needsDocument reports whether the invocation can use API commands.
func needsDocument(positional []string) bool {
	if len(positional) == 0 {
		return true
	}
	switch positional[0] {
	case "version", "completion":
		return false
	}
	return true
}

// loadCommands builds the catalog and attaches its commands to root. A
// document that fails to load leaves root without API commands.
func (a *app) loadCommands(ctx context.Context, root *cobra.Command) {
	source := a.cfg.OpenAPIFile()
	if source == "" {
		return
	}
	opts := []cligen.BuildOption{
		cligen.WithReservedFlags(reservedFlags...),
		cligen.WithLogger(a.logger),
	}
	if a.cfg.StrictNames() {
		opts = append(opts, cligen.WithStrictNames())
	}
	timeout := a.cfg.Timeout()
	a.catalog = cligen.NewCatalog(func() (*openapi.Document, error) {
		return openapi.Load(ctx, source,
			openapi.WithHTTPTimeout(timeout),
			openapi.WithUserAgent(version.UserAgent()),
		)
	}, opts...)

	if err := a.catalog.Err(); err != nil {
		fmt.Fprintln(a.stderr, output.FormatError("could not load OpenAPI document: "+err.Error()))
		return
	}
	for _, w := range a.catalog.Document().Warnings {
		a.logger.Warn("ignoring malformed document field", "detail", w)
	}
	tree := a.catalog.Tree()
	// Only the displayed default changes: an unset --server leaves each
	// command on its own operation or document server.
	if f := root.PersistentFlags().Lookup(config.KeyServer); f != nil && tree.DefaultServer != "" {
		f.DefValue = tree.DefaultServer
	}
	cligen.AddCommands(root, tree, a.rt)
}

// run executes one invocation and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	pre := a.prescan(args)
	if path, _ := pre.GetString("config"); path != "" {
		if err := a.cfg.ReadFile(path); err != nil {
			fmt.Fprintln(a.stderr, output.FormatError(err.Error()))
			return 1
		}
	}
	if err := a.cfg.BindFlags(pre); err != nil {
		fmt.Fprintln(a.stderr, output.FormatError(err.Error()))
		return 1
	}
	a.logger = clifylog.New(a.stderr, a.cfg.Debug())

	root := a.newRootCmd()
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if needsDocument(pre.Args()) {
		a.loadCommands(ctx, root)
	}

	root.SetArgs(args)
	c, err := root.ExecuteContextC(ctx)
	return a.exitCode(c, err)
}

func (a *app) exitCode(c *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	var reported *cligen.ReportedError
	if errors.As(err, &reported) {
		return 1
	}
	fmt.Fprintln(a.stderr, output.FormatError(err.Error()))
	if isUsage(err) {
		path := "clify"
		if c != nil {
			path = c.CommandPath()
		}
		fmt.Fprintf(a.stderr, "Run '%s --help' for usage.\n", path)
	}
	return 1
}

// Execute runs clify with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newApp(os.Stdin, os.Stdout, os.Stderr).run(ctx, os.Args[1:])
}
