package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/config"
	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
	"github.com/BuzzLyutic/flowtrack/internal/service"
)

// RootCommand is the flowtrack command tree.
type RootCommand struct {
	cmd    *cobra.Command
	config *config.Config
	logger *zap.Logger
}

func NewRootCommand(cfg *config.Config, logger *zap.Logger) *RootCommand {
	root := &RootCommand{
		config: cfg,
		logger: logger,
	}

	root.cmd = &cobra.Command{
		Use:   "flowtrack",
		Short: "Task service over a record store",
		Long: `flowtrack serves a task REST API backed by a record store and runs one-shot
task commands against the same store.

BACKENDS:
  sqlite      embedded database at SQLITE_PATH (default)
  postgres    PostgreSQL at DATABASE_URL
  apper       remote record API at APPER_URL

EXAMPLES:
  flowtrack serve --port 9090
  flowtrack tasks create --title "Buy milk" --priority high
  flowtrack tasks update 7 --status completed --completed-at 2024-02-01T10:00:00Z
  flowtrack tasks list --backend postgres`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.applyFlags(cmd)
		},
	}

	flags := root.cmd.PersistentFlags()
	flags.String("backend", "", "record backend: sqlite, postgres or apper (overrides BACKEND)")
	flags.String("sqlite-path", "", "SQLite database file (overrides SQLITE_PATH)")
	flags.String("table", "", "record table name (overrides TASK_TABLE)")

	root.cmd.AddCommand(root.serveCommand(), root.tasksCommand())
	return root
}

func (r *RootCommand) Execute(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// Command exposes the cobra command, mainly for SetArgs/SetOut in tests.
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

func (r *RootCommand) applyFlags(cmd *cobra.Command) error {
	overrides := map[string]*string{
		"backend":     &r.config.Backend,
		"sqlite-path": &r.config.SQLitePath,
		"table":       &r.config.Table,
		"port":        &r.config.Port,
	}
	for name, dst := range overrides {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		*dst = f.Value.String()
	}

	switch r.config.Backend {
	case config.BackendSQLite, config.BackendPostgres, config.BackendApper:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", r.config.Backend)
	}
}

// newService opens the configured backend and builds the task service on it.
// The returned func releases the backend.
func (r *RootCommand) newService(ctx context.Context, bus *notify.Bus) (*service.TaskService, func(), error) {
	client, closeFn, err := openClient(ctx, r.config, r.logger)
	if err != nil {
		return nil, nil, err
	}
	srv := service.NewTaskService(client, r.config.Table, files.NewKeyCaseConverter(), bus, r.logger)
	return srv, closeFn, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
