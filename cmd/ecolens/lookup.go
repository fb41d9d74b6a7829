package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ecolens/internal/cli"
	"github.com/Veraticus/ecolens/internal/config"
	"github.com/Veraticus/ecolens/internal/model"
)

func mapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "map <label>...",
		Short: "Show which category a classifier label maps to",
		Long: `Resolve classifier labels against the active profile's taxonomy rules.

Useful for checking a rule table without a camera or a model.`,
		Example: `  ecolens map "water bottle" "banana"
  ecolens --profile sorting map "pop bottle"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMap,
	}
}

func runMap(cmd *cobra.Command, args []string) error {
	profile, err := config.LoadEngineProfile()
	if err != nil {
		return fmt.Errorf("failed to load engine profile: %w", err)
	}
	mapper, err := profile.Mapper()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(args))
	for _, label := range args {
		res := mapper.Resolve(label)
		keyword := res.Keyword
		if keyword == "" {
			keyword = "-"
		}
		rows = append(rows, []string{label, res.Category.String(), keyword, res.Guidance})
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"Label", "Category", "Keyword", "Guidance"}, rows))
	return nil
}

func missionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List the mission catalog and the available profiles",
		RunE:  runMissions,
	}

	cmd.Flags().Bool("profiles", false, "list the built-in profiles instead")

	return cmd
}

func runMissions(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if listProfiles, _ := cmd.Flags().GetBool("profiles"); listProfiles {
		fmt.Fprintln(out, cli.FormatTitle("Built-in profiles"))
		for _, name := range config.BuiltinProfiles() {
			fmt.Fprintf(out, "  • %s\n", name)
		}
		return nil
	}

	profile, err := config.LoadEngineProfile()
	if err != nil {
		return fmt.Errorf("failed to load engine profile: %w", err)
	}

	if len(profile.Missions) == 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Profile %q has no missions; it sorts into %s.", profile.Name, categoryList(profile.Rules))))
		return nil
	}

	rows := make([][]string, 0, len(profile.Missions))
	for _, m := range profile.Missions {
		rows = append(rows, []string{string(m.TargetCategory), m.Prompt, strings.Join(m.Examples, ", ")})
	}

	fmt.Fprintln(out, cli.FormatTitle(cli.TargetIcon+" Missions: "+profile.Name))
	fmt.Fprintln(out, cli.RenderTable([]string{"Category", "Prompt", "Examples"}, rows))
	return nil
}

func categoryList(rules []model.TaxonomyRule) string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, string(r.Category))
	}
	return strings.Join(names, ", ")
}
