package walker

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/permtree/permtree/pkg/errors"
	"github.com/permtree/permtree/pkg/logging"
	"github.com/permtree/permtree/pkg/roles"
	"github.com/permtree/permtree/pkg/rules"
)

// Change is one planned or applied ownership/mode change.
type Change struct {
	Path  string
	Rel   string
	Role  string
	UID   int
	GID   int
	Mode  os.FileMode
	IsDir bool
}

// Summary reports what a traversal did. Warnings are per-entry and never
// abort the run.
type Summary struct {
	Entries   int
	Applied   int
	NoOps     int
	Unmatched int
	Skipped   int
	Warnings  int

	// Planned holds the changes a dry run would have made; empty otherwise.
	Planned []Change
}

// Walker drives a recursive scan of a directory tree, classifies each
// entry, and applies the first matching rule's role. The rule table and
// role registry are read-only; the walk itself is sequential.
type Walker struct {
	fs     afero.Fs
	table  *rules.Table
	logger zerolog.Logger
	dryRun bool
}

// New returns a walker over the given filesystem and rule table. With
// dryRun set, changes are recorded in the summary instead of applied.
func New(fs afero.Fs, table *rules.Table, dryRun bool) *Walker {
	return &Walker{
		fs:     fs,
		table:  table,
		logger: logging.GetLogger("walker"),
		dryRun: dryRun,
	}
}

// Walk traverses the tree rooted at root. Only a root that cannot be
// entered is fatal; everything below it is handled best-effort with
// per-entry warnings.
func (w *Walker) Walk(root string) (*Summary, error) {
	info, err := w.fs.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRootAccess, "cannot enter tree root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrRootAccess, "tree root %s is not a directory", root)
	}

	sum := &Summary{}
	walkErr := afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Cannot inspect entry")
			sum.Warnings++
			return nil
		}
		w.visit(root, path, info, sum)
		return nil
	})
	if walkErr != nil {
		return sum, errors.Wrapf(walkErr, errors.ErrRootAccess, "traversal of %s failed", root)
	}

	w.logger.Info().
		Int("entries", sum.Entries).
		Int("applied", sum.Applied).
		Int("unmatched", sum.Unmatched).
		Int("skipped", sum.Skipped).
		Int("warnings", sum.Warnings).
		Msg("Traversal finished")
	return sum, nil
}

func (w *Walker) visit(root, path string, info os.FileInfo, sum *Summary) {
	kind := classify(info.Mode())
	rel, err := relativePath(root, path, kind)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("Cannot compute relative path")
		sum.Warnings++
		return
	}

	// Symlinks and special files are never matched against any rule.
	switch kind {
	case rules.EntrySymlink:
		w.logger.Info().Str("path", rel).Msg("Skipping symlink")
		sum.Skipped++
		return
	case rules.EntryOther:
		w.logger.Info().Str("path", rel).Msg("Skipping special file")
		sum.Skipped++
		return
	}

	sum.Entries++
	decision := w.table.Match(rules.Entry{RelPath: rel, Kind: kind})
	switch decision.Kind {
	case rules.DecisionApply:
		w.apply(path, rel, decision.Role, kind == rules.EntryDir, sum)
	case rules.DecisionNoOp:
		sum.NoOps++
		w.logger.Debug().
			Str("path", rel).
			Int("line", decision.Rule.Line).
			Msg("Entry matched an explicit no-op rule")
	case rules.DecisionUnmatched:
		sum.Unmatched++
		w.logger.Warn().Str("path", rel).Msg("No rule matched entry")
	}
}

// apply performs the ownership and mode change for one matched entry. The
// two operations are independent: either can fail without affecting the
// other, and failures are per-entry warnings.
func (w *Walker) apply(path, rel string, role *roles.Role, isDir bool, sum *Summary) {
	mode := role.FileMode
	if isDir {
		mode = role.DirMode
	}
	sum.Applied++

	if w.dryRun {
		sum.Planned = append(sum.Planned, Change{
			Path:  path,
			Rel:   rel,
			Role:  role.Name,
			UID:   role.UID,
			GID:   role.GID,
			Mode:  mode,
			IsDir: isDir,
		})
		return
	}

	if err := w.fs.Chown(path, role.UID, role.GID); err != nil {
		w.logger.Warn().Err(err).
			Str("path", rel).
			Str("role", role.Name).
			Msg("Ownership change failed")
		sum.Warnings++
	}
	if err := w.fs.Chmod(path, mode); err != nil {
		w.logger.Warn().Err(err).
			Str("path", rel).
			Str("role", role.Name).
			Msg("Mode change failed")
		sum.Warnings++
	}
	w.logger.Debug().
		Str("path", rel).
		Str("role", role.Name).
		Str("mode", mode.Perm().String()).
		Msg("Applied role")
}

func classify(mode os.FileMode) rules.Kind {
	switch {
	case mode&os.ModeSymlink != 0:
		return rules.EntrySymlink
	case mode.IsDir():
		return rules.EntryDir
	case mode.IsRegular():
		return rules.EntryFile
	default:
		return rules.EntryOther
	}
}

// relativePath normalizes an entry path against the tree root: components
// joined by "/", a trailing "/" for directories, and "/" for the root
// itself.
func relativePath(root, path string, kind rules.Kind) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "/", nil
	}
	if kind == rules.EntryDir {
		rel += "/"
	}
	return rel, nil
}
