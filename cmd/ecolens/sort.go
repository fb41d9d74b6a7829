package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/cli"
	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/config"
	"github.com/Veraticus/ecolens/internal/sorter"
)

func sortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <dir>",
		Short: "Classify a directory of frames into bins",
		Long: `Classify every image in a directory and report the bin each one belongs to.

Uses the rules of the active profile. Nothing is written to history.`,
		Args: cobra.ExactArgs(1),
		RunE: runSort,
	}

	cmd.Flags().Int("parallel", sorter.DefaultParallel, "frames classified at once")
	cmd.Flags().Bool("json", false, "print results as JSON instead of a summary")

	return cmd
}

func runSort(cmd *cobra.Command, args []string) error {
	parallel, _ := cmd.Flags().GetInt("parallel")
	asJSON, _ := cmd.Flags().GetBool("json")

	profile, err := config.LoadEngineProfile()
	if err != nil {
		return fmt.Errorf("failed to load engine profile: %w", err)
	}
	mapper, err := profile.Mapper()
	if err != nil {
		return err
	}

	paths, err := camera.ListImages(config.ExpandPath(args[0]))
	if err != nil {
		return fmt.Errorf("failed to list frames: %w", err)
	}
	if len(paths) == 0 {
		return common.NewUserError(fmt.Sprintf("No images found in %s", args[0]), nil)
	}

	adapter, err := startClassifier(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = adapter.Close() }()

	if err := adapter.Wait(cmd.Context()); err != nil {
		return err
	}

	reporter := cli.NewBatchReporter(cmd.ErrOrStderr(), len(paths))
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), reporter.Progress)

	results, err := sorter.Sort(ctx, paths, adapter, mapper, sorter.Options{
		Parallel: parallel,
		OnResult: func(r sorter.Result) { reporter.Record(r.Category, r.Err) },
	})
	if err != nil {
		if handler.WasInterrupted() || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("sorting failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprintln(cmd.OutOrStdout(), reporter.Summary())
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(fmt.Sprintf("%s: %v", r.Path, r.Err)))
		}
	}
	return nil
}
