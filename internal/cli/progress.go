package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/ecolens/internal/model"
)

// BatchReporter shows a progress bar while frames are sorted and a summary
// when they are done.
type BatchReporter struct {
	writer    io.Writer
	bar       *progressbar.ProgressBar
	counts    map[model.Category]int
	total     int
	processed int
	failed    int
	mu        sync.Mutex
}

// NewBatchReporter creates a reporter for total frames.
func NewBatchReporter(writer io.Writer, total int) *BatchReporter {
	if writer == nil {
		writer = os.Stdout
	}
	r := &BatchReporter{
		writer: writer,
		total:  total,
		counts: make(map[model.Category]int),
	}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Sorting frames...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return r
}

// Record counts one finished frame.
func (r *BatchReporter) Record(category model.Category, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed++
	if err != nil {
		r.failed++
	} else {
		r.counts[category]++
	}
	if addErr := r.bar.Add(1); addErr != nil {
		slog.Warn("Failed to update progress bar", "error", addErr)
	}
}

// Progress describes how far the batch got.
func (r *BatchReporter) Progress() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("Sorted %d of %d frames before stopping.", r.processed, r.total)
}

// Summary renders the per-category totals.
func (r *BatchReporter) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	categories := make([]string, 0, len(r.counts))
	for c := range r.counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&b, "  • %s: %d\n", c, r.counts[model.Category(c)])
	}
	if r.failed > 0 {
		fmt.Fprintf(&b, "  • failed: %d\n", r.failed)
	}
	fmt.Fprintf(&b, "  • total: %d", r.processed)

	return RenderBox(ChartIcon+" Sorting Complete", b.String())
}
