package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

var (
	inspectDriver      string
	inspectDSN         string
	inspectDBStatement string
	inspectPeerService string
	inspectSite        string
	inspectConcurrency int
)

// inspection is the JSON line printed for one statement.
type inspection struct {
	Statement  string             `json:"statement"`
	SpanName   string             `json:"span_name"`
	Operation  string             `json:"operation"`
	Valid      bool               `json:"valid"`
	Outcome    string             `json:"outcome"`
	Attributes dbtrace.Attributes `json:"attributes"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [statement...]",
	Short: "Show the span a statement would produce",
	Long: `Runs each statement through the telemetry pipeline and prints one JSON
object per statement, in input order.

Statements are read from the arguments, or one per line from stdin when
no arguments are given. Blank lines are skipped.

Examples:
  sentinel-db inspect --driver postgres --dsn postgres://app@db:5432/orders \
      --db-statement obfuscate --site query "SELECT * FROM users WHERE id = 42"

  cat statements.sql | sentinel-db inspect --driver mysql --dsn 'app@tcp(db:3306)/orders'`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDriver, "driver", "", "driver name used to resolve db.system (e.g. postgres, mysql)")
	inspectCmd.Flags().StringVar(&inspectDSN, "dsn", "", "data source name to derive connection attributes from")
	inspectCmd.Flags().StringVar(&inspectDBStatement, "db-statement", "", "statement policy: include, omit or obfuscate")
	inspectCmd.Flags().StringVar(&inspectPeerService, "peer-service", "", "peer.service attribute value")
	inspectCmd.Flags().StringVar(&inspectSite, "site", dbtrace.CallExecute.String(), "call site: execute, ddl, dui, insert or query")
	inspectCmd.Flags().IntVar(&inspectConcurrency, "concurrency", 4, "statements inspected in parallel")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	opts, err := inspectOptions(cmd)
	if err != nil {
		return err
	}

	site, ok := dbtrace.ParseCallSite(inspectSite)
	if !ok {
		return fmt.Errorf("unknown call site %q", inspectSite)
	}

	statements := args
	if len(statements) == 0 {
		statements, err = readStatements(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	ic := dbtrace.NewForDSN(inspectDriver, inspectDSN, opts...)

	results, err := inspectAll(cmd.Context(), ic, site, statements, inspectConcurrency)
	if err != nil {
		return err
	}

	logger.Debug().
		Int("statements", len(results)).
		Str("db.system", ic.Descriptor().Vendor).
		Str("call_site", site.String()).
		Msg("inspection finished")

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

// inspectOptions loads the config file and environment, then applies the
// command line flags on top.
func inspectOptions(cmd *cobra.Command) ([]dbtrace.Option, error) {
	cfg, err := dbtrace.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("db-statement") {
		policy, err := dbtrace.ParsePolicy(inspectDBStatement)
		if err != nil {
			return nil, err
		}
		cfg.DBStatement = policy
	}
	if cmd.Flags().Changed("peer-service") {
		cfg.PeerService = inspectPeerService
	}

	// Inspection never skips a statement, whatever the file says.
	cfg.Enabled = true

	return append(cfg.Options(), dbtrace.WithLogger(logger)), nil
}

// readStatements returns the non-blank lines of r.
func readStatements(r io.Reader) ([]string, error) {
	var statements []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		statements = append(statements, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}
	return statements, nil
}

// inspectAll describes statements with at most concurrency workers.
// Results keep the order of statements.
func inspectAll(
	ctx context.Context,
	ic *dbtrace.Interceptor,
	site dbtrace.CallSite,
	statements []string,
	concurrency int,
) ([]inspection, error) {
	if concurrency < 1 {
		return nil, errors.New("concurrency must be at least 1")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]inspection, len(statements))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, statement := range statements {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = inspect(ic, site, statement)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func inspect(ic *dbtrace.Interceptor, site dbtrace.CallSite, statement string) inspection {
	tel := ic.Describe(dbtrace.Call{
		Site:      site,
		Statement: dbtrace.Text(statement),
	})

	return inspection{
		Statement:  statement,
		SpanName:   tel.Name(dbtrace.CallOptions{}),
		Operation:  tel.Classification.Operation(),
		Valid:      tel.Classification.Valid,
		Outcome:    tel.Obfuscation.Outcome.String(),
		Attributes: tel.Attributes,
	}
}
