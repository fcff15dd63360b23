package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clubvault/internal/domain"
	"clubvault/internal/service"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <organization-id>",
		Short: "Show storage usage of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid organization id: %w", err)
			}

			vault, err := openVault()
			if err != nil {
				return err
			}
			defer vault.Close()

			info, err := vault.Quota.GetQuotaInfo(cmd.Context(), orgID, nil)
			if err != nil {
				return err
			}

			teams, err := vault.OrgCatalog.ListSubOrganizations(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			names := make(map[uuid.UUID]string, len(teams))
			for _, t := range teams {
				names[t.ID] = t.Name
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Used:   %s of %s (%.1f%%)\n",
				formatBytes(info.Usage.TotalBytes), formatBytes(info.Limit.TotalBytes), info.UsagePercent)
			fmt.Fprintf(out, "Photos: %s\n", formatBytes(info.Usage.PhotosBytes))
			fmt.Fprintf(out, "Files:  %s\n", formatBytes(info.Usage.DocumentBytes))
			if d := info.Limit.ScheduledDowngrade; d != nil {
				fmt.Fprintf(out, "Scheduled downgrade to +%d GB on %s\n", d.AddonGB, d.EffectiveAt.Format("2006-01-02"))
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OWNER\tPHOTOS\tFILES\tTOTAL")
			for _, group := range info.Usage.PerSubOrganization {
				owner := "Club root"
				if group.SubOrganizationID != nil {
					owner = names[*group.SubOrganizationID]
					if owner == "" {
						owner = group.SubOrganizationID.String()
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", owner,
					formatBytes(group.PhotosBytes), formatBytes(group.DocumentBytes), formatBytes(group.Bytes))
			}
			return w.Flush()
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var hard bool
	cmd := &cobra.Command{
		Use:   "purge <object-id>...",
		Short: "Permanently delete objects from trash",
		Long: `Permanently delete objects from trash.

With --hard, objects are deleted even if they are not in trash.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := openVault()
			if err != nil {
				return err
			}
			defer vault.Close()

			result := &domain.BatchResult{}
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err == nil {
					if hard {
						err = vault.Trash.HardDelete(cmd.Context(), operator, id)
					} else {
						err = vault.Trash.PurgeForever(cmd.Context(), operator, id)
					}
				}
				item := domain.ItemResult{ObjectID: id, OK: err == nil}
				if err != nil {
					item.Reason = err.Error()
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
				}
				result.Add(item)
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Summary("deleted %d forever"))
			if result.Failed > 0 {
				return fmt.Errorf("%d objects were not deleted", result.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "delete objects that are not in trash")
	return cmd
}

func newEmptyTrashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "empty-trash <organization-id>",
		Short: "Permanently delete everything in an organization's trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid organization id: %w", err)
			}

			vault, err := openVault()
			if err != nil {
				return err
			}
			defer vault.Close()

			result, err := vault.Trash.EmptyTrash(cmd.Context(), operator, orgID)
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				if !item.OK {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", item.ObjectID, item.Reason)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary("deleted %d forever"))
			return nil
		},
	}
}

type exportOptions struct {
	team       string
	folder     int64
	recursive  bool
	excluded   []string
	individual bool
	out        string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export <organization-id>",
		Short: "Export a folder into a zip archive",
		Long: `Export a folder (or the scope root) into a zip archive.

Examples:
  # Export the whole club root recursively
  vaultctl export <org> --recursive

  # Export a team folder without the "Drafts" subfolder
  vaultctl export <org> --team <team> --folder 42 --recursive --exclude Drafts

  # Save every object as a separate file
  vaultctl export <org> --recursive --individual --out ./photos`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.team, "team", "", "sub-organization id")
	cmd.Flags().Int64Var(&opts.folder, "folder", 0, "root folder id (default: scope root)")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", false, "include all subfolders")
	cmd.Flags().StringArrayVar(&opts.excluded, "exclude", nil, "exact folder path to skip (repeatable)")
	cmd.Flags().BoolVar(&opts.individual, "individual", false, "save objects one by one instead of a zip")
	cmd.Flags().StringVar(&opts.out, "out", ".", "output directory")
	return cmd
}

func runExport(cmd *cobra.Command, org string, opts exportOptions) error {
	orgID, err := uuid.Parse(org)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}
	scope := domain.OrganizationScope(orgID)
	if opts.team != "" {
		teamID, err := uuid.Parse(opts.team)
		if err != nil {
			return fmt.Errorf("invalid team id: %w", err)
		}
		scope = domain.SubOrganizationScope(orgID, teamID)
	}
	var rootID *int64
	if opts.folder != 0 {
		rootID = &opts.folder
	}
	mode := domain.ExportModeCurrentFolder
	if opts.recursive {
		mode = domain.ExportModeRecursive
	}

	vault, err := openVault()
	if err != nil {
		return err
	}
	defer vault.Close()

	ctx := cmd.Context()
	sel, err := vault.Export.Discover(ctx, operator, scope, rootID, mode)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tPHOTOS\tFILES")
	for _, f := range sel.Folders {
		path := f.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", path, f.PhotoCount, f.FileCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	progress := func(p domain.Progress) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d", p.Completed, p.Total)
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var result *domain.ArchiveResult
	if opts.individual {
		result, err = vault.Export.FetchIndividually(ctx, sel.Filter(opts.excluded), saveTo(opts.out), progress)
	} else {
		result, err = vault.Export.BuildArchive(ctx, sel, opts.excluded, progress)
		if err == nil {
			name := filepath.Join(opts.out, service.ArchiveName(sel, time.Now()))
			if werr := os.WriteFile(name, result.Data, 0o644); werr != nil {
				return fmt.Errorf("failed to write archive: %w", werr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %s\n", name)
		}
	}
	fmt.Fprintln(cmd.ErrOrStderr())

	if result != nil {
		for _, f := range result.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", entryPath(f.Path, f.Name), f.Reason)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d, %d failed\n", result.Succeeded, len(result.Failed))
	}
	return err
}

// saveTo пишет объект в dir/<path>/<name>
func saveTo(dir string) service.ItemSink {
	root, err := filepath.Abs(dir)
	if err != nil {
		root = filepath.Clean(dir)
	}
	return func(item domain.ExportItem, data []byte) error {
		name := filepath.Join(root, filepath.FromSlash(item.EntryName()))
		if !strings.HasPrefix(name, root+string(filepath.Separator)) {
			return fmt.Errorf("entry %q escapes output directory", item.EntryName())
		}
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return err
		}
		return os.WriteFile(name, data, 0o644)
	}
}

func entryPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
