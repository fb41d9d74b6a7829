package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/config"
	"github.com/Veraticus/ecolens/internal/tui"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start an interactive scanning session",
		Long: `Open the viewfinder and scan objects one frame at a time.

Frames come from --camera: a directory that is read in rotation, or a single
image file. Press space to scan, h for history and q to quit.`,
		RunE: runScan,
	}

	cmd.Flags().String("camera", "", "frame directory or image file (default: camera.dir)")
	cmd.Flags().Bool("history", false, "show the history panel on start")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cameraPath, _ := cmd.Flags().GetString("camera")
	if cameraPath == "" {
		cameraPath = viper.GetString("camera.dir")
	}
	showHistory, _ := cmd.Flags().GetBool("history")

	profile, err := config.LoadEngineProfile()
	if err != nil {
		return fmt.Errorf("failed to load engine profile: %w", err)
	}

	cam, err := openCamera(cameraPath)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	adapter, err := startClassifier(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = adapter.Close() }()

	publisher, stopPublisher, err := startPublisher()
	if err != nil {
		slog.Warn("Scan events will not be published", "error", err)
	}
	defer stopPublisher()

	builder := &sessionBuilder{profile: profile, adapter: adapter, sink: store, publisher: publisher}
	sess, err := builder.build(viper.GetString("user.id"), cam)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	// Close flushes pending history writes before the store closes.
	defer func() { _ = sess.Close() }()

	slog.Debug("Starting scan session",
		"session_id", sess.ID(),
		"profile", profile.Name,
		"camera", cameraPath)

	return tui.Run(ctx, sess,
		tui.WithHistory(store),
		tui.WithHistoryPanel(showHistory),
	)
}
