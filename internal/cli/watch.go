package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"docrag/config"
	ragerr "docrag/internal/errors"
)

var (
	watchStore    string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder...]",
	Short: "Append files to an index as they appear or change",
	Long: `Watch follows the given folders and runs an append for files that were
created or written, after the folder has been quiet for the debounce period.
Deleted files are not removed from the index.

Examples:
  docrag watch --store ./index ./manuals`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchStore, "store", "s", "", "store directory (required)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before appending")
	_ = watchCmd.MarkFlagRequired("store")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range args {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if err := addTree(w, abs); err != nil {
			return err
		}
	}
	logger.Info("watching", "folders", args, "store", watchStore)

	var fatal error
	flush := func(paths []string) {
		paths = appendable(cfg, paths)
		if len(paths) == 0 {
			return
		}
		lock, err := lockStore(watchStore, true)
		if err != nil {
			logger.Error("lock failed", "error", err)
			return
		}
		defer lock.Unlock()

		result, err := appendPaths(cmd, cfg, watchStore, paths, false)
		if err != nil {
			logger.Error("append failed", "code", ragerr.CodeOf(err), "error", err)
			if ragerr.IsFatal(err) && fatal == nil {
				// A missing store or a dimension mismatch fails every later append too.
				fatal = err
				stop()
			}
			return
		}
		logger.Info("appended", "files", result.FilesAdded, "chunks", result.Added, "unchanged", result.FilesUnchanged)
	}

	collectChanges(ctx, w.Events, w.Errors, watchDebounce, logger, func(ev fsnotify.Event) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addTree(w, ev.Name); err != nil {
				logger.Warn("failed to watch new folder", "path", ev.Name, "error", err)
			}
		}
	}, flush)
	return fatal
}

// appendable keeps the paths whose extension the index accepts.
func appendable(cfg *config.Config, paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if cfg.Index.ExtensionAllowed(p) {
			out = append(out, p)
		}
	}
	return out
}

// addTree watches root and every folder below it.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// collectChanges gathers create and write events and calls flush with the
// sorted distinct paths once no event arrived for debounce. It returns
// when ctx is done or the event channel closes; pending paths are flushed
// first.
func collectChanges(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, debounce time.Duration, logger *slog.Logger, onCreate func(fsnotify.Event), flush func([]string)) {
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	drain := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		flush(paths)
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		case ev, ok := <-events:
			if !ok {
				drain()
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) && onCreate != nil {
				onCreate(ev)
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		case <-timer.C:
			drain()
		}
	}
}
