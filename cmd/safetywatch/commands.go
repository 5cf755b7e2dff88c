package main

import (
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/report"
	"safetywatch/internal/services"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var out string
	var compress bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print violation summaries and optionally export the report data",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := toolkit()
			if err != nil {
				return err
			}
			defer tk.Logger.Close()

			rep, err := tk.Service.Report(cmd.Context())
			if err != nil {
				return err
			}
			printReport(rep)

			if out == "" {
				return nil
			}
			if err := tk.Exporter.WriteFile(out, rep, compress); err != nil {
				return err
			}
			fmt.Printf("\nReport data written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write report data to this file")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the written report")
	return cmd
}

func printReport(rep *report.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== Safety Violation Report ==="))
	fmt.Printf("Generated: %s\n", rep.GeneratedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Total violations: %d\n", rep.Total)

	for _, c := range rep.Categories {
		fmt.Printf("\n%s (%d)\n", yellow(c.Title), c.Total)
		fmt.Printf("  %-10s %8s %12s %11s %13s\n", "SERIES", "TOTAL", "WORST MONTH", "WORST WEEK", "THIS WEEK")
		for _, s := range c.Series {
			current := fmt.Sprintf("%d", s.Summary.CurrentWeekCount)
			if s.Summary.WeekEnded {
				current += " (ended)"
			}
			if s.Summary.CurrentWeekCount > 0 && s.Summary.CurrentWeekCount == s.Summary.WorstWeek {
				current = red(current)
			}
			fmt.Printf("  %-10s %8d %12d %11d %13s\n", s.Name, s.Summary.Total, s.Summary.WorstMonth, s.Summary.WorstWeek, current)
		}
	}
	fmt.Println()
}

func datesCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "dates [category]",
		Short: "List the date folders of a category, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := toolkit()
			if err != nil {
				return err
			}
			defer tk.Logger.Close()

			records, err := tk.Service.Dates(cmd.Context(), services.DatesQuery{
				Category: models.Category(args[0]),
				Refresh:  refresh,
			})
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			for _, r := range records {
				access := green("ok")
				if !r.Accessible {
					access = red("no access")
				}
				fmt.Printf("%s  images=%-4d videos=%-4d items=%-4d %s %s\n",
					r.DisplayDate.Format(models.DisplayDateLayout), r.ImageCount, r.VideoCount, r.ItemCount,
					formatSubTypes(r.SubTypeCounts), access)
			}
			if len(records) == 0 {
				fmt.Println("No date folders")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", true, "reload from the remote store")
	return cmd
}

func formatSubTypes(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share [category] [email]",
		Short: "Grant an account writer access to a category's root folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := toolkit()
			if err != nil {
				return err
			}
			defer tk.Logger.Close()

			if err := tk.Service.Share(cmd.Context(), models.Category(args[0]), args[1]); err != nil {
				return err
			}
			fmt.Printf("%s %s shared with %s\n", color.GreenString("✓"), args[0], args[1])
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print a report previously exported with report --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := report.NewZstdCompressor()
			if err != nil {
				return err
			}
			rep, err := report.NewExporter(comp).ReadFile(args[0])
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
}
