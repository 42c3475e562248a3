package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	_ "github.com/advanced-rising/vanillameta/pkg/adapters/datasource/all" // register every engine
	"github.com/advanced-rising/vanillameta/pkg/app"
	"github.com/advanced-rising/vanillameta/pkg/models"
	"github.com/advanced-rising/vanillameta/pkg/retry"
	"github.com/advanced-rising/vanillameta/pkg/services"
)

func newEnginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List supported database engines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Engine", "Name", "Driver", "Adapter", "Probe", "Available"})
			for _, e := range datasource.RegisteredEngines() {
				t.AppendRow(table.Row{e.Kind, e.DisplayName, e.Driver, e.Adapter, e.ProbeSQL, e.Available})
			}
			t.Render()
			return nil
		},
	}
}

type testOptions struct {
	engine     string
	configJSON string
	configFile string
}

func newTestCommand(root *rootOptions) *cobra.Command {
	opts := &testOptions{}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a connection config without storing it",
		Example: `  vmctl test --engine pg --config-json '{"host":"localhost","user":"postgres","database":"app"}'
  vmctl test --engine sqlite3 --config-file ./sqlite.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfigMap(opts.configJSON, opts.configFile)
			if err != nil {
				return err
			}

			logger := root.logger()
			resolver := datasource.NewResolver("")
			if appCfg, err := root.loadConfig(); err == nil {
				resolver = datasource.NewResolver(appCfg.Datasource.CockroachCluster)
				resolver.HostRewrite = appCfg.Datasource.HostRewriter()
			}

			// Probes never touch the registry.
			svc := services.NewConnectionService(
				resolver,
				datasource.NewHandleFactory(retry.DefaultConfig().WithMaxRetries(0), logger),
				nil,
				datasource.NewNormalizer(),
				true,
				logger,
			)

			result := svc.TestConnection(cmd.Context(), models.ParseEngineKind(opts.engine), cfg)
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			if result.Status != models.StatusSuccess {
				return fmt.Errorf("connection test failed: %s", result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "Engine kind (mysql, pg, cockroachdb, snowflake, bigquery, oracledb, mssql, sqlite3, duckdb)")
	cmd.Flags().StringVar(&opts.configJSON, "config-json", "", "Connection config as a JSON object")
	cmd.Flags().StringVar(&opts.configFile, "config-file", "", "Read the connection config from a JSON file")
	_ = cmd.MarkFlagRequired("engine")

	return cmd
}

type queryOptions struct {
	format string
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:     "query <id> <sql>",
		Short:   "Run SQL on a stored connection",
		Example: `  vmctl query 3 "SELECT count(*) FROM orders" --format json`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid connection id %q", args[0])
			}

			appCfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), appCfg, root.logger())
			if err != nil {
				return err
			}
			defer func() { _ = application.Close() }()

			result := application.Connections.ExecuteQuery(cmd.Context(), id, args[1])
			if result.Status != models.StatusSuccess {
				return fmt.Errorf("query failed: %s", result.Message)
			}
			return renderQueryResult(cmd.OutOrStdout(), result, opts.format)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table, json")
	return cmd
}

func newDatabasesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List stored connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), appCfg, root.logger())
			if err != nil {
				return err
			}
			defer func() { _ = application.Close() }()

			conns, err := application.Databases.List(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Engine", "Updated"})
			for _, c := range conns {
				t.AppendRow(table.Row{c.ID, c.Name, c.Engine, c.UpdatedAt.Format("2006-01-02 15:04:05")})
			}
			t.Render()
			return nil
		},
	}
}

func readConfigMap(inline, path string) (map[string]any, error) {
	raw := []byte(inline)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config must be a JSON object: %w", err)
	}
	return cfg, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
