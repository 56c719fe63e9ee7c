package auditlog

import (
	"fmt"
	"path/filepath"

	"ibaudit/waf"

	"github.com/ncruces/go-strftime"
)

// commitState tracks one record's content file from open to the atomic
// rename. There is exactly one per record and it is never shared, so no
// locking is needed for content writes.
type commitState struct {
	fs   FileSystem
	file File

	// relPath is the final path relative to the audit base directory, as
	// written to the index line.
	relPath  string
	fullPath string
	tempPath string
}

// openContentFile resolves the record's output directory, creates it if
// missing, and opens the temporary content file. Nothing is visible under
// the final name until commit.
func openContentFile(fs FileSystem, cfg *waf.AuditConfig, tx *waf.Transaction, site *waf.Site) (*commitState, error) {
	dir := cfg.BaseDir
	rel := ""
	if cfg.SubdirFormat != "" {
		rel = strftime.Format(cfg.SubdirFormat, tx.LogTime.UTC())
		dir = filepath.Join(dir, rel)
	}

	if err := fs.MkDirAll(dir, cfg.DirMode); err != nil {
		return nil, fmt.Errorf("could not create audit log dir %q: %v", dir, err)
	}

	name := tx.ID + ".log"
	if site != nil && site.ID != "" {
		name = tx.ID + "_" + site.ID + ".log"
	}

	c := &commitState{
		fs:       fs,
		relPath:  filepath.Join(rel, name),
		fullPath: filepath.Join(dir, name),
	}
	c.tempPath = c.fullPath + ".part"

	f, err := fs.OpenAppend(c.tempPath, cfg.FileMode)
	if err != nil {
		return nil, fmt.Errorf("could not open audit log %q: %v", c.tempPath, err)
	}
	c.file = f

	return c, nil
}

// commit closes the temp file and renames it to the final path. Exactly
// one rename attempt is made; on failure the temp file is left in place
// for operator inspection.
func (c *commitState) commit() error {
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("could not close audit log %q: %v", c.tempPath, err)
	}
	if err := c.fs.Rename(c.tempPath, c.fullPath); err != nil {
		return fmt.Errorf("could not rename audit log %q: %v", c.tempPath, err)
	}
	return nil
}

// discard closes the temp file after a failed write, leaving the partial
// temp file on disk. The final path is never created.
func (c *commitState) discard() {
	c.file.Close()
}
