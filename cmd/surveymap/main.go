package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-survey/internal/db"
	"github.com/joeblew999/plat-survey/internal/server"
	"github.com/joeblew999/plat-survey/internal/service"
)

// Options defines all CLI flags and env vars for the survey map server.
// Flags: --host, --port, --data-dir, --config, --debug
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG, SERVICE_DEBUG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir string `doc:"Directory for survey files and databases" default:".data"`
	Config  string `doc:"Settings file (default ./surveymap.yaml when present)"`
	Debug   bool   `doc:"Enable debug logging"`
}

func newLogger(opts *Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		ConfigFile: opts.Config,
		Logger:     newLogger(opts),
	})
}

func mustServer(opts *Options) *server.Server {
	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpSrv *http.Server

		hooks.OnStart(func() {
			srv = mustServer(opts)
			logger := newLogger(opts)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-survey API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s (%s store)\n", opts.DataDir, srv.Settings().Store.Driver)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpSrv = &http.Server{Addr: addr, Handler: srv}
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("server error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpSrv != nil {
				httpSrv.Shutdown(context.Background())
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "surveymap"
	cli.Root().Short = "Survey map layer and visibility service"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
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

	// import subcommand: copy survey files into a SQL database
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the survey files under --data-dir into a SQL database",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			driver, _ := cmd.Flags().GetString("driver")
			dsn, _ := cmd.Flags().GetString("dsn")
			n, err := importSurveys(cmd.Context(), opts.DataDir, db.Config{
				Driver:  driver,
				DSN:     dsn,
				DataDir: opts.DataDir,
				DBName:  "survey",
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error importing surveys: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Imported %d surveys into %s\n", n, driver)
		}),
	}
	importCmd.Flags().String("driver", "sqlite", "Target driver: sqlite or duckdb")
	importCmd.Flags().String("dsn", "", "Target DSN (default <data-dir>/<driver>/survey.*)")
	cli.Root().AddCommand(importCmd)

	cli.Run()
}

func importSurveys(ctx context.Context, dataDir string, target db.Config) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := service.NewFileStore(dataDir)
	if err != nil {
		return 0, err
	}
	conn, err := db.Open(ctx, target)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return service.Copy(ctx, src, service.NewSQLStore(conn))
}
