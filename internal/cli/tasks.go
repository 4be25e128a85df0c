package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/model"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
	"github.com/BuzzLyutic/flowtrack/internal/service"
)

var ErrNothingToUpdate = errors.New("nothing to update: pass at least one field flag")

func (r *RootCommand) tasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Run task operations against the configured backend",
	}
	cmd.AddCommand(
		r.listCommand(),
		r.getCommand(),
		r.createCommand(),
		r.updateCommand(),
		r.deleteCommand(),
	)
	return cmd
}

// withService opens the backend for the duration of fn.
func (r *RootCommand) withService(cmd *cobra.Command, fn func(srv *service.TaskService) error) error {
	srv, closeFn, err := r.newService(cmd.Context(), notify.NewBus(r.logger))
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(srv)
}

func (r *RootCommand) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withService(cmd, func(srv *service.TaskService) error {
				return writeJSON(cmd, srv.List(cmd.Context()))
			})
		},
	}
}

func (r *RootCommand) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return r.withService(cmd, func(srv *service.TaskService) error {
				task, err := srv.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, task)
			})
		},
	}
}

func (r *RootCommand) createCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := patchFromFlags(cmd)
			if err != nil {
				return err
			}
			return r.withService(cmd, func(srv *service.TaskService) error {
				task, err := srv.Create(cmd.Context(), patch)
				if err != nil {
					return err
				}
				return writeJSON(cmd, task)
			})
		},
	}
	addPatchFlags(cmd)
	return cmd
}

func (r *RootCommand) updateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := patchFromFlags(cmd)
			if err != nil {
				return err
			}
			if patch.Empty() {
				return ErrNothingToUpdate
			}
			return r.withService(cmd, func(srv *service.TaskService) error {
				task, err := srv.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return writeJSON(cmd, task)
			})
		},
	}
	addPatchFlags(cmd)
	cmd.Flags().Bool("clear-completed", false, "reset the completion time to null")
	return cmd
}

func (r *RootCommand) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return r.withService(cmd, func(srv *service.TaskService) error {
				ok, err := srv.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]bool{"success": ok})
			})
		},
	}
}

func addPatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("title", "", "task title")
	flags.String("description", "", "task description")
	flags.String("priority", "", "low, medium or high")
	flags.String("status", "", "active or completed")
	flags.String("completed-at", "", "completion timestamp")
	flags.StringArray("file", nil, "attachment name (repeatable)")
}

// patchFromFlags sets only the fields whose flags were given.
func patchFromFlags(cmd *cobra.Command) (model.TaskPatch, error) {
	var p model.TaskPatch
	flags := cmd.Flags()

	for name, dst := range map[string]**string{
		"title":       &p.Title,
		"description": &p.Description,
		"priority":    &p.Priority,
		"status":      &p.Status,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return p, err
		}
		*dst = model.String(v)
	}

	if flags.Changed("completed-at") {
		v, err := flags.GetString("completed-at")
		if err != nil {
			return p, err
		}
		p.CompletedAt = model.SetString(v)
	}
	if reset, _ := flags.GetBool("clear-completed"); reset {
		p.CompletedAt = model.Null()
	}

	if flags.Changed("file") {
		names, err := flags.GetStringArray("file")
		if err != nil {
			return p, err
		}
		p.Files = make([]files.Descriptor, 0, len(names))
		for _, n := range names {
			p.Files = append(p.Files, files.Descriptor{"name": n})
		}
	}
	return p, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
