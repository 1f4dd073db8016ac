package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/propmap/internal/config"
	"github.com/joeblew999/propmap/internal/geodata"
	"github.com/joeblew999/propmap/internal/logger"
	"github.com/joeblew999/propmap/internal/server"
	"github.com/joeblew999/propmap/internal/service"
)

// Options defines all CLI flags and env vars for the propmap server.
// Flags: --host, --port, --data-dir, --web-dir, --presets, --log-level, --strict, --no-db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir  string `doc:"Directory holding sources/ and duckdb/" default:".data"`
	WebDir   string `doc:"Path to web/ directory" default:"web"`
	Presets  string `doc:"YAML file merged over the built-in presets"`
	LogLevel string `doc:"Log level: debug, info, warn, error" default:"info"`
	Strict   bool   `doc:"Fail map loads when the point layer is unavailable"`
	NoDB     bool   `doc:"Disable the DuckDB attribute tables"`
}

func newServer(opts *Options, log *zap.SugaredLogger) (*server.Server, error) {
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		WebDir:      opts.WebDir,
		PresetsFile: opts.Presets,
		Strict:      opts.Strict,
		NoDB:        opts.NoDB,
		Log:         log,
	})
}

func main() {
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log := logger.Must(opts.LogLevel)
		srv, err := newServer(opts, log)
		if err != nil {
			log.Fatalw("server setup failed", "err", err)
		}

		httpServer := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler: srv,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Infow("propmap server starting",
				"map", baseURL+"/map",
				"docs", baseURL+"/docs",
				"openapi", baseURL+"/openapi.json",
				"data", opts.DataDir,
			)

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalw("server error", "err", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctx)
			_ = srv.Close()
			_ = log.Sync()
		})
	})

	cli.Root().Use = "propmap"
	cli.Root().Short = "Proportional symbol maps with temporal sequencing"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv, err := newServer(opts, logger.Nop())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// legend subcommand: print a preset's legend for every sequence step
	legendCmd := &cobra.Command{
		Use:   "legend <preset>",
		Short: "Print the max/mean/min legend of every attribute in a preset",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := logger.Must(opts.LogLevel)
			ds, err := loadDataset(cmd.Context(), opts, args[0], log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", args[0], err)
				os.Exit(1)
			}
			writeLegendTable(os.Stdout, ds)
		}),
	}
	cli.Root().AddCommand(legendCmd)

	cli.Run()
}

func loadDataset(ctx context.Context, opts *Options, preset string, log *zap.SugaredLogger) (*service.Dataset, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	presets, err := config.Load(opts.Presets)
	if err != nil {
		return nil, err
	}
	catalog := service.NewCatalog(service.CatalogConfig{
		Presets: presets,
		Loader:  geodata.NewLoader(opts.DataDir, log.Named("geodata")),
		Strict:  true,
		Log:     log.Named("catalog"),
	})
	return catalog.Dataset(ctx, preset)
}

func writeLegendTable(w io.Writer, ds *service.Dataset) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Step", "Attribute", "Year", "Max", "Mean", "Min"})

	for i, attr := range ds.Attributes[:ds.Steps] {
		legend := ds.BuildLegend(attr)
		row := []string{fmt.Sprint(i), attr, legend.Year}
		if !legend.Valid {
			row = append(row, "-", "-", "-")
		}
		for _, c := range legend.Circles {
			value := strings.TrimSuffix(c.Label, " "+ds.Preset.LegendUnit)
			row = append(row, fmt.Sprintf("%s (r=%.2f)", value, c.Radius))
		}
		table.Append(row)
	}
	table.Render()
}
