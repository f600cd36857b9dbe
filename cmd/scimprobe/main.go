// Command scimprobe is the CLI host for the facade: it wires cobra
// subcommands onto facade.Facade and prints progress events to stdout as
// they arrive, per SPEC_FULL.md §4.7.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marcelom97/scimprobe/config"
	"github.com/marcelom97/scimprobe/facade"
	"github.com/marcelom97/scimprobe/model"
	"github.com/marcelom97/scimprobe/store"
)

var (
	dbPath     string
	configPath string
	logger     = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scimprobe",
		Short: "SCIM 2.0 conformance and load-testing engine",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "scimprobe.db", "path to the result store database")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a server configs YAML file")

	root.AddCommand(newConfigsCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newLoadtestCmd())
	root.AddCommand(newRunsCmd())
	return root
}

func openFacade() (*facade.Facade, func(), error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return facade.New(s), func() { s.Close() }, nil
}

func loadFileConfig() (*config.FileConfig, error) {
	if configPath == "" {
		return &config.FileConfig{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc config.FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &fc, nil
}

// resolveServerID returns the id matching nameOrID: either a raw id already
// in the store, or the name of a server in the config file, in which case
// that one server is saved to the store and its new id returned.
func resolveServerID(ctx context.Context, f *facade.Facade, nameOrID string) (string, error) {
	if existing, err := f.GetServerConfig(ctx, nameOrID); err == nil && existing != nil {
		return existing.ID, nil
	}

	fc, err := loadFileConfig()
	if err != nil {
		return "", err
	}
	for _, sc := range fc.Servers {
		if sc.Name == nameOrID {
			saved, err := f.SaveServerConfig(ctx, sc)
			if err != nil {
				return "", fmt.Errorf("save server config %q: %w", sc.Name, err)
			}
			return saved.ID, nil
		}
	}
	return "", fmt.Errorf("unknown server %q (not a stored id and not found in %s)", nameOrID, configPath)
}

// --- configs ---

func newConfigsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "configs", Short: "Manage server configs"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored server configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			configs, err := f.GetServerConfigs(context.Background())
			if err != nil {
				return err
			}
			for _, c := range configs {
				fmt.Printf("%s\t%s\t%s\n", c.ID, c.Name, c.BaseURL)
			}
			return nil
		},
	})

	var name, baseURL, authKind, token string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a server config",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			saved, err := f.SaveServerConfig(context.Background(), config.ServerConfig{
				Name:     name,
				BaseURL:  baseURL,
				AuthKind: config.AuthKind(authKind),
				Token:    token,
			})
			if err != nil {
				return err
			}
			fmt.Println(saved.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "server name")
	addCmd.Flags().StringVar(&baseURL, "base-url", "", "SCIM base URL")
	addCmd.Flags().StringVar(&authKind, "auth", "", "bearer, basic, api-key, or empty")
	addCmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a server config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			return f.DeleteServerConfig(context.Background(), args[0])
		},
	})
	return cmd
}

// --- validate ---

func newValidateCmd() *cobra.Command {
	var server, categories string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run conformance probes against a SCIM server",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := context.Background()

			serverID, err := resolveServerID(ctx, f, server)
			if err != nil {
				return err
			}

			cats := strings.Split(categories, ",")
			for i := range cats {
				cats[i] = strings.TrimSpace(cats[i])
			}

			runID, err := f.RunValidation(ctx, model.ValidationRunConfig{
				ServerConfigID: serverID,
				Categories:     cats,
			}, func(p model.ValidationProgress) {
				fmt.Printf("[%s] %d/%d %s\n", p.CurrentCategory, p.Completed, p.Total, p.CurrentTest)
			})
			if err != nil {
				logger.Error("validation run failed", "error", err)
				return err
			}
			fmt.Println("run:", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server name or id")
	cmd.Flags().StringVar(&categories, "categories", "schema_discovery,users_crud,groups_crud,patch_operations,filtering_pagination,duplicate_detection,soft_delete,group_operations", "comma-separated category list")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

// --- loadtest ---

func newLoadtestCmd() *cobra.Command {
	var server, scenario, scenarios string
	var requests, concurrency, rampUp int
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a concurrent load-test scenario against a SCIM server",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := context.Background()

			serverID, err := resolveServerID(ctx, f, server)
			if err != nil {
				return err
			}

			cfg := model.LoadTestConfig{
				ServerConfigID: serverID,
				Scenario:       scenario,
				TotalRequests:  requests,
				Concurrency:    concurrency,
				RampUpSeconds:  rampUp,
			}
			if scenarios != "" {
				cfg.Scenarios = strings.Split(scenarios, ",")
			}

			runID, err := f.StartLoadTest(ctx, cfg, func(p model.LoadTestProgress) {
				fmt.Printf("[%s] %d/%d rps=%.1f errors=%d\n", p.Phase, p.Completed, p.Total, p.CurrentRPS, p.ErrorCount)
			})
			if err != nil {
				logger.Error("load test failed", "error", err)
				return err
			}
			fmt.Println("run:", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server name or id")
	cmd.Flags().StringVar(&scenario, "scenario", "create_users", "single scenario to run")
	cmd.Flags().StringVar(&scenarios, "scenarios", "", "comma-separated scenarios for a multi-scenario run")
	cmd.Flags().IntVar(&requests, "requests", 100, "total requests (N)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "concurrent permits (C)")
	cmd.Flags().IntVar(&rampUp, "ramp-up", 0, "ramp-up window in seconds (R)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

// --- runs ---

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "runs", Short: "Inspect past test runs"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List test runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			runs, err := f.GetTestRuns(context.Background(), "", "")
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, r.RunType, r.Status, r.StartedAt.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show a run's summary and result count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := context.Background()
			run, err := f.GetTestRun(ctx, args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}
			fmt.Printf("id: %s\nstatus: %s\nstarted: %s\n", run.ID, run.Status, run.StartedAt)
			if run.RunType == model.RunLoadTest {
				results, err := f.GetLoadTestResults(ctx, run.ID)
				if err != nil {
					return err
				}
				fmt.Println("results:", len(results))
			} else {
				results, err := f.GetValidationResults(ctx, run.ID)
				if err != nil {
					return err
				}
				fmt.Println("results:", len(results))
			}
			if run.SummaryJSON != nil {
				fmt.Println("summary:", *run.SummaryJSON)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a run and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeFn, err := openFacade()
			if err != nil {
				return err
			}
			defer closeFn()
			return f.DeleteTestRun(context.Background(), args[0])
		},
	})

	return cmd
}
