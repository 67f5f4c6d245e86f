package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/gitsorted/internal/app/storage"
	"github.com/stacklok/gitsorted/internal/issues"
)

func newIssuesCmd() *cobra.Command {
	issuesCmd := &cobra.Command{
		Use:   "issues",
		Short: "Inspect synchronized issues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List synchronized issues, newest first",
		RunE:  runIssuesList,
	}
	listCmd.Flags().String("format", "table", "Output format (table or json)")
	issuesCmd.AddCommand(listCmd)

	return issuesCmd
}

func runIssuesList(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported format %q (use table or json)", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	svc, err := factory.CreateIssueService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create issue service: %w", err)
	}

	records, err := svc.ListIssues(ctx)
	if err != nil {
		return fmt.Errorf("failed to list issues: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return printIssueTable(cmd.OutOrStdout(), records)
}

func printIssueTable(w io.Writer, records []issues.Record) error {
	table := tablewriter.NewWriter(w)
	table.Header("Number", "Title", "Author", "Created", "Last Processed")
	for _, r := range records {
		if err := table.Append([]string{
			strconv.Itoa(r.Number),
			r.Title,
			r.Author,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.LastProcessed.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}
	return table.Render()
}
