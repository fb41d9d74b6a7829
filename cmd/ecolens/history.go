package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/cli"
	"github.com/Veraticus/ecolens/internal/model"
)

const defaultHistoryLimit = 10

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scans",
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", defaultHistoryLimit, "number of scans to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	userID := viper.GetString("user.id")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	scans, err := store.RecentScans(ctx, userID, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(scans) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No scans yet. Run 'ecolens scan' to get started!"))
		return nil
	}

	rows := make([][]string, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, []string{
			s.ScannedAt.Local().Format("Jan 02 15:04"),
			s.ObjectLabel,
			s.Category.String(),
			fmt.Sprintf("%.0f%%", s.Confidence*100),
		})
	}
	fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon+" Recent scans for "+userID))
	fmt.Fprintln(out, cli.RenderTable([]string{"When", "Object", "Category", "Confidence"}, rows))

	counts, err := store.CategoryCounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	fmt.Fprintln(out, cli.RenderBox("Totals", formatCounts(counts)))
	return nil
}

func formatCounts(counts map[model.Category]int) string {
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	lines := make([]string, 0, len(categories))
	for _, c := range categories {
		lines = append(lines, fmt.Sprintf("%s: %d", c, counts[model.Category(c)]))
	}
	return strings.Join(lines, "\n")
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show level and XP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID := viper.GetString("user.id")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := store.GetProfile(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.LeafIcon+" "+userID, describeProfile(profile.XP)))
			return nil
		},
	}
}

func describeProfile(xp int) string {
	level := model.LevelFor(xp)
	lines := []string{
		fmt.Sprintf("Level %d %s", level.Number, level.Name),
		fmt.Sprintf("%d XP", xp),
	}
	if next, ok := model.NextLevel(xp); ok {
		lines = append(lines, fmt.Sprintf("%d XP to %s (%.0f%%)", next.MinXP-xp, next.Name, model.Progress(xp)))
	} else {
		lines = append(lines, "Top level reached!")
	}
	return strings.Join(lines, "\n")
}
