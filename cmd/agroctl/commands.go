package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"agro-report/internal/app"
	"agro-report/internal/config"
	"agro-report/internal/service/aggregate"
	"agro-report/internal/service/excel"
	"agro-report/internal/service/migrate"
	"agro-report/internal/service/reports"
	"agro-report/internal/service/syncer"
	"agro-report/internal/storage"
	"agro-report/internal/storage/open"
)

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move legacy browser data into the collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return e.withStore(ctx, func(cfg *config.Config, store open.Store) error {
				if cfg.LegacyDump != "" {
					n, err := migrate.SeedLegacyDump(ctx, store, cfg.LegacyDump)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d legacy keys loaded from %s\n", n, cfg.LegacyDump)
				}

				res, err := migrate.Run(ctx, store)
				if err != nil {
					return err
				}
				if !res.Migrated() {
					fmt.Fprintln(cmd.OutOrStdout(), "Tidak ada data lama untuk dimigrasi.")
					return nil
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Migrasi selesai: %d laporan (%d dilewati), %d jenis aktivitas custom\n",
					res.Reports, res.SkippedReports, res.CustomActTypes)
				return nil
			})
		},
	}
}

func pushCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send unsynced reports to the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Push(cmd.Context())
				if errors.Is(err, syncer.ErrNothingToSync) {
					fmt.Fprintln(cmd.OutOrStdout(), "Semua data sudah tersinkronisasi!")
					return nil
				}
				if err != nil {
					return err
				}

				via := ""
				if res.Fallback {
					via = " (fallback)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d laporan berhasil disinkronisasi%s\n", res.Marked, via)
				return nil
			})
		},
	}
}

func pullMasterCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pull-master",
		Short: "Replace the master activity type catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.PullMasterCatalog(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d jenis aktivitas master dimuat\n", n)
				return nil
			})
		},
	}
}

func pullActualCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pull-actual",
		Short: "Fetch reports recorded under the saved NIK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.PullActual(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d laporan baru ditambahkan\n", n)
				return nil
			})
		},
	}
}

func exportCmd(e *env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every report to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				data, err := a.Export()
				if errors.Is(err, app.ErrNothingToExport) {
					fmt.Fprintln(cmd.OutOrStdout(), "Tidak ada data untuk diexport!")
					return nil
				}
				if err != nil {
					return err
				}

				path := output
				if path == "" {
					path = excel.FileName(time.Now())
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Data berhasil diexport ke %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default Laporan_KLP1_AGRO_<date>.xlsx)")
	return cmd
}

func importCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Merge reports from an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return e.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Import(cmd.Context(), f)
				if errors.Is(err, excel.ErrNothingToImport) {
					fmt.Fprintln(cmd.OutOrStdout(), "Semua data dalam file sudah ada di sistem!")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d laporan berhasil diimpor\n", n)
				return nil
			})
		},
	}
}

func listCmd(e *env) *cobra.Command {
	var date, kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest date first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := reports.Filter{Date: date}
			if kind != "" {
				k, ok := storage.ParseKind(kind)
				if !ok {
					return fmt.Errorf("unknown report type %q", kind)
				}
				filter.Kind = k
			}

			return e.withApp(cmd.Context(), func(a *app.App) error {
				list := a.ListReports(filter)

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIPE\tTANGGAL\tESTATE\tDIVISI\tBLOK\tACTTYP\tPEKERJAAN\tSYNC")
				for _, r := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%t\n",
						r.ID, r.Type, r.Date, r.Estate, r.Division, r.Block, r.ActivityType, r.Job, r.Synced)
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				st := a.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d laporan (%d perawatan, %d panen), %d belum sinkron\n",
					st.Total, st.Maintenance, st.Harvest, st.Unsynced)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "only reports of this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&kind, "type", "", "perawatan or panen")
	return cmd
}

func messageCmd(e *env) *cobra.Command {
	var q aggregate.Query
	var kind string

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Print the daily WhatsApp message for an estate and division",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := storage.ParseKind(kind)
			if !ok {
				return fmt.Errorf("unknown report type %q", kind)
			}
			q.Kind = k
			if q.Date == "" {
				q.Date = time.Now().Format("2006-01-02")
			}

			return e.withApp(cmd.Context(), func(a *app.App) error {
				msg, err := a.DailyMessage(q)
				if errors.Is(err, aggregate.ErrNoReports) {
					fmt.Fprintln(cmd.OutOrStdout(), "Tidak ada laporan pada tanggal tersebut!")
					return nil
				}
				if err != nil {
					return err
				}

				_, err = fmt.Fprint(cmd.OutOrStdout(), msg)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", "perawatan", "perawatan or panen")
	cmd.Flags().StringVar(&q.Estate, "estate", "", "estate name")
	cmd.Flags().IntVar(&q.Division, "divisi", 0, "division number")
	cmd.Flags().StringVar(&q.Date, "date", "", "report date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("estate")
	_ = cmd.MarkFlagRequired("divisi")
	return cmd
}
