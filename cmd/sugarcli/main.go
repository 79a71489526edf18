package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/config"
)

var version = "dev"

// errNotFound marks a lookup that completed without a record.
var errNotFound = errors.New("not found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if !errors.Is(err, errNotFound) {
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", domain.ErrorCodeOf(err), err)
		}
		os.Exit(1)
	}
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, `sugarcli - SugarCRM v4 REST client

USAGE:
    sugarcli [FLAGS] COMMAND [ARGS]

COMMANDS:
    get <module> <id>              Load one record (soft-deleted records are not found)
    list <module> [options-json]   List records, e.g. '{"query":"...","max_results":20}'
    get-ids <module> <ids>         Load records by id (JSON array or a,b,c)
    save <module> <fields-json>    Create or update a record, prints its id
    call <method> [args-json]      Call any REST method with the session attached
    history [n]                    Show the last n audited calls (default 20)
    mcp                            Serve the CRM operations as MCP tools on stdio
    encrypt <value>                Encrypt a secret for the config file
    doctor                         Run health checks
    version                        Print the version

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file (default: ~/.sugarcli/config.yaml)
    --json             Print records as JSON instead of tables

CONFIGURATION:
    Environment: SUGARCLI_* variables override the config file
    SUGARCLI_CONFIG_KEY decrypts "enc:" secrets

EXAMPLES:
    sugarcli get Contacts 5b1a7c2e-...
    sugarcli list Accounts '{"query":"accounts.name LIKE ''Acme%''","max_results":5}'
    sugarcli save Contacts '{"first_name":"Jane","last_name":"Doe"}'
    sugarcli call get_server_info`)
}

// cliFlags holds the global flags.
type cliFlags struct {
	ConfigPath string
	JSON       bool
	Help       bool
}

// parseFlags separates global flags from the command and its arguments.
func parseFlags(args []string) (cliFlags, []string) {
	var flags cliFlags
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--config="):
			flags.ConfigPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--json":
			flags.JSON = true
		case args[i] == "--help" || args[i] == "-h":
			flags.Help = true
		default:
			rest = append(rest, args[i])
		}
	}
	return flags, rest
}

// configPath resolves the config file: flag, then env, then default.
func configPath(flags cliFlags) string {
	if flags.ConfigPath != "" {
		return flags.ConfigPath
	}
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		return p
	}
	return config.DefaultPath()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags, rest := parseFlags(args)
	if flags.Help || len(rest) == 0 || rest[0] == "help" {
		showUsage(stdout)
		return nil
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "sugarcli %s\n", version)
		return nil
	case "encrypt":
		return runEncrypt(cmdArgs, stdout)
	case "doctor":
		return runDoctor(ctx, configPath(flags), stdout)
	case "get", "list", "get-ids", "save", "call", "history", "mcp":
	default:
		return fmt.Errorf("unknown command %q; run 'sugarcli --help' for usage", cmd)
	}

	cfg, err := config.Load(configPath(flags))
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, flags.JSON, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "get":
		return a.runGet(ctx, cmdArgs)
	case "list":
		return a.runList(ctx, cmdArgs)
	case "get-ids":
		return a.runGetIDs(ctx, cmdArgs)
	case "save":
		return a.runSave(ctx, cmdArgs)
	case "call":
		return a.runCall(ctx, cmdArgs)
	case "history":
		return a.runHistory(ctx, cmdArgs)
	default:
		return a.runMCP(ctx)
	}
}
