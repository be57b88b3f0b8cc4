package comment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the on-disk home of one named bot:
//
//	<root>/log/<name>.log
//	<root>/ini/<name>.yaml
//	<root>/db/<name>.db
type Workspace struct {
	Root string
	Name string
}

func (w Workspace) LogPath() string    { return filepath.Join(w.Root, "log", w.Name+".log") }
func (w Workspace) ConfigPath() string { return filepath.Join(w.Root, "ini", w.Name+".yaml") }
func (w Workspace) LedgerPath() string { return filepath.Join(w.Root, "db", w.Name+".db") }

func (w Workspace) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return errors.New("workspace: name is empty")
	}
	if strings.ContainsAny(w.Name, `/\`) || w.Name == "." || w.Name == ".." {
		return fmt.Errorf("workspace: invalid name %q", w.Name)
	}
	return nil
}

// EnsureDirs creates the log, ini and db directories.
func (w Workspace) EnsureDirs() error {
	if err := w.Validate(); err != nil {
		return err
	}
	for _, p := range []string{w.LogPath(), w.ConfigPath(), w.LedgerPath()} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("workspace: %w", err)
		}
	}
	return nil
}
