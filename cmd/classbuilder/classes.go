package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/spf13/cobra"
)

var (
	ownerID string
	query   string
)

var (
	classesCmd = &cobra.Command{
		Use:   "classes",
		Short: "Manage stored classes",
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the owner's classes",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	showCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Print a class as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of the owner's classes",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	validateCmd = &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Check a class file against the save rules without storing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	saveCmd = &cobra.Command{
		Use:   "save <file.json>",
		Short: "Validate a class file and store it for the owner",
		Args:  cobra.ExactArgs(1),
		RunE:  runSave,
	}
	newCmd = &cobra.Command{
		Use:   "new",
		Short: "Print a fresh default class as JSON",
		Args:  cobra.NoArgs,
		RunE:  runNew,
	}
)

func init() {
	classesCmd.PersistentFlags().StringVar(&ownerID, "owner", auth.LocalOwner, "owner id")
	listCmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive filter on title and description")

	classesCmd.AddCommand(listCmd, showCmd, deleteCmd, validateCmd, saveCmd, newCmd)
}

// withService opens the configured storage for the duration of fn.
func withService(ctx context.Context, fn func(*classes.Service) error) error {
	backend, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc, err := classes.New(classes.Dependencies{
		Backend:       backend,
		LogManager:    SlogManager,
		ViewerBaseURL: config.GetServerConfig().ViewerBaseURL,
	})
	if err != nil {
		return err
	}
	return fn(svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runList(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(svc *classes.Service) error {
		list, err := svc.List(cmd.Context(), ownerID, query)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No classes found.")
			return nil
		}
		for _, s := range list {
			fmt.Fprintf(out, "%s\t%s\t%d markers\n", s.ID, s.Title, s.MarkerCount)
		}
		return nil
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(svc *classes.Service) error {
		c, err := svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(svc *classes.Service) error {
		removed, err := svc.Delete(cmd.Context(), ownerID, args[0])
		if err != nil {
			return err
		}
		if !removed {
			return classes.ErrNotFound
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func readClassFile(path string) (core.Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Class{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var c core.Class
	if err := json.Unmarshal(data, &c); err != nil {
		return core.Class{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return c, nil
}

// runValidate needs no storage.
func runValidate(cmd *cobra.Command, args []string) error {
	c, err := readClassFile(args[0])
	if err != nil {
		return err
	}
	svc, err := classes.New(classes.Dependencies{Backend: nopBackend{}, LogManager: SlogManager})
	if err != nil {
		return err
	}
	if err := svc.Validate(c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is ready to save\n", args[0])
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	c, err := readClassFile(args[0])
	if err != nil {
		return err
	}
	return withService(cmd.Context(), func(svc *classes.Service) error {
		stored, err := svc.Save(cmd.Context(), ownerID, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d markers)\n", stored.ID, len(stored.MarkerObjects))
		return nil
	})
}

func runNew(cmd *cobra.Command, args []string) error {
	svc, err := classes.New(classes.Dependencies{Backend: nopBackend{}, LogManager: SlogManager})
	if err != nil {
		return err
	}
	c, err := svc.NewClass(ownerID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), c)
}
