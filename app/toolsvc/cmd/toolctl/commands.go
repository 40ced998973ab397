package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

var (
	flagOutput   string
	flagTimeout  time.Duration
	flagTo       string
	flagToDir    string
	flagToFormat string
	flagWorkers  int
)

// ==================== inspect ====================

var inspectCmd = &cobra.Command{
	Use:   "inspect <owner>",
	Short: "Print an owner's persisted tool collection",
	Example: `  toolctl inspect 069a79f4-44e9-4726-a5be-fca90e38aaf5
  toolctl inspect alice -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		s, closeStorage, err := openStorage(&cfg, &cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStorage()

		c, err := s.Load(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load owner %s: %w", args[0], err)
		}
		if c == nil {
			return fmt.Errorf("owner %s has no persisted tools", args[0])
		}
		return printCollection(cmd.OutOrStdout(), c, flagOutput)
	},
}

// collectionView 输出用的稳定结构，工具按 uniqueId 排序
type collectionView struct {
	Owner     string              `json:"owner" yaml:"owner"`
	LastSaved time.Time           `json:"last_saved" yaml:"last_saved"`
	Tools     []*model.ToolRecord `json:"tools" yaml:"tools"`
}

func printCollection(w io.Writer, c *model.OwnerCollection, format string) error {
	view := collectionView{Owner: c.OwnerID, LastSaved: c.LastSaved}
	for _, rec := range c.Tools {
		view.Tools = append(view.Tools, rec)
	}
	sort.Slice(view.Tools, func(i, j int) bool { return view.Tools[i].UniqueID < view.Tools[j].UniqueID })

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(view)
	default:
		return fmt.Errorf("unsupported output format %q (json|yaml)", format)
	}
}

// ==================== backup ====================

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the configured storage backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		s, closeStorage, err := openStorage(&cfg, &cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStorage()

		if !s.Backup(ctx) {
			return fmt.Errorf("backup failed for driver %s", cfg.Storage.Driver)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup of %s storage finished\n", cfg.Storage.Driver)
		return nil
	},
}

// ==================== migrate ====================

var migrateCmd = &cobra.Command{
	Use:   "migrate --to <driver>",
	Short: "Copy every owner from the configured backend to another backend",
	Example: `  toolctl migrate --to sqlite
  toolctl migrate --to file --to-dir ./playerdata-yaml --to-format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		dstCfg := cfg.Storage
		dstCfg.Driver = dao.Driver(flagTo)
		if flagToDir != "" {
			dstCfg.Dir = flagToDir
			dstCfg.SQLite.Path = ""
		}
		if flagToFormat != "" {
			dstCfg.Format = dao.Format(flagToFormat)
		}
		if dstCfg.Driver == cfg.Storage.Driver && dstCfg.Dir == cfg.Storage.Dir && dstCfg.Format == cfg.Storage.Format {
			return fmt.Errorf("source and destination are the same %s backend", dstCfg.Driver)
		}

		src, closeSrc, err := openStorage(&cfg, &cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		defer closeSrc()
		dst, closeDst, err := openStorage(&cfg, &dstCfg)
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer closeDst()

		start := time.Now()
		report, err := dao.Migrate(ctx, src, dst, flagWorkers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d owners (%d tools, %d skipped) from %s to %s in %s\n",
			report.Owners, report.Tools, report.Skipped,
			cfg.Storage.Driver, dstCfg.Driver, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

// ==================== delete ====================

var deleteCmd = &cobra.Command{
	Use:   "delete <owner> <uid>",
	Short: "Remove one tool from an owner's persisted collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		s, closeStorage, err := openStorage(&cfg, &cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStorage()

		if err := s.Delete(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted tool %s of owner %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&flagOutput, "output", "o", "yaml", "output format (json|yaml)")

	migrateCmd.Flags().StringVar(&flagTo, "to", "", "destination driver (file|sqlite|postgres|redis)")
	migrateCmd.Flags().StringVar(&flagToDir, "to-dir", "", "destination directory for file/sqlite drivers")
	migrateCmd.Flags().StringVar(&flagToFormat, "to-format", "", "destination file format (binary|yaml)")
	migrateCmd.Flags().IntVar(&flagWorkers, "workers", 8, "concurrent owner copies")
	_ = migrateCmd.MarkFlagRequired("to")

	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Minute, "overall command timeout")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flagTimeout)
}
