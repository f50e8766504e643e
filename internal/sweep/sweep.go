// Package sweep removes stored files that no content row references. Such files
// are left behind when an upload's row insert and its cleanup both fail.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/storage"
)

type References interface {
	FilePaths(ctx context.Context) ([]string, error)
}

type Target struct {
	Family string
	Dir    string
	Refs   References
}

type Options struct {
	// Grace keeps recent files, which may belong to uploads still in flight.
	Grace  time.Duration
	DryRun bool
	Now    func() time.Time
}

type Report struct {
	Family  string   `json:"family"`
	Scanned int      `json:"scanned"`
	Orphans int      `json:"orphans"`
	Young   int      `json:"young"`
	Removed int      `json:"removed"`
	Keys    []string `json:"keys,omitempty"`
}

func Run(ctx context.Context, store storage.Storage, targets []Target, opts Options) ([]Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.Grace)

	reports := make([]Report, 0, len(targets))
	for _, t := range targets {
		r, err := runOne(ctx, store, t, cutoff, opts.DryRun)
		if err != nil {
			return reports, fmt.Errorf("sweep %s: %w", t.Family, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func runOne(ctx context.Context, store storage.Storage, t Target, cutoff time.Time, dryRun bool) (Report, error) {
	l := logging.FromContext(ctx).With("family", t.Family, "dir", t.Dir, "dry_run", dryRun)
	rep := Report{Family: t.Family}

	refs, err := t.Refs.FilePaths(ctx)
	if err != nil {
		return rep, fmt.Errorf("load references: %w", err)
	}
	// rows may hold legacy absolute paths, so match on the file name within the family dir
	referenced := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		referenced[path.Base(r)] = struct{}{}
	}

	infos, err := store.List(ctx, t.Dir)
	if err != nil {
		return rep, fmt.Errorf("list files: %w", err)
	}

	for _, info := range infos {
		rep.Scanned++
		if _, ok := referenced[path.Base(info.Key)]; ok {
			continue
		}
		if info.ModTime.After(cutoff) {
			rep.Young++
			continue
		}
		rep.Orphans++
		rep.Keys = append(rep.Keys, info.Key)
		if dryRun {
			l.Info("orphan_found", "key", info.Key, "size", info.Size)
			continue
		}
		if err := store.Delete(ctx, info.Key); err != nil && !errors.Is(err, storage.ErrNotExist) {
			l.Error("orphan_remove_failed", "key", info.Key, "error", err)
			continue
		}
		rep.Removed++
		l.Info("orphan_removed", "key", info.Key, "size", info.Size)
	}
	return rep, nil
}
