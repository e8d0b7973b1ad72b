// Package preflight prepares the directories the CLI writes to (the SQLite
// catalog and the log file) before anything opens them.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirCheck names a directory that must exist.
type DirCheck struct {
	Path  string
	Label string
	Fatal bool // failure aborts the run
}

// Result is the outcome of one DirCheck.
type Result struct {
	Path    string
	Label   string
	Existed bool
	Created bool
	Err     error
}

// ParentOf returns a check for the directory holding file. Relative files in
// the working directory need no check and yield ok == false.
func ParentOf(file, label string, fatal bool) (DirCheck, bool) {
	if file == "" || file == ":memory:" {
		return DirCheck{}, false
	}
	dir := filepath.Dir(file)
	if dir == "." {
		return DirCheck{}, false
	}
	return DirCheck{Path: dir, Label: label, Fatal: fatal}, true
}

// EnsureDirs creates every missing directory. All checks run; the returned
// error joins the failures of fatal checks.
func EnsureDirs(checks []DirCheck) ([]Result, error) {
	results := make([]Result, 0, len(checks))
	var fatal []error

	for _, check := range checks {
		res := Result{Path: check.Path, Label: check.Label}

		info, err := os.Stat(check.Path)
		switch {
		case err == nil && info.IsDir():
			res.Existed = true
		case err == nil:
			res.Existed = true
			res.Err = fmt.Errorf("%s path %s is not a directory", check.Label, check.Path)
		case errors.Is(err, os.ErrNotExist):
			if err := os.MkdirAll(check.Path, 0o755); err != nil {
				res.Err = fmt.Errorf("failed to create %s directory %s: %w", check.Label, check.Path, err)
			} else {
				res.Created = true
			}
		default:
			res.Err = fmt.Errorf("failed to check %s path %s: %w", check.Label, check.Path, err)
		}

		if res.Err != nil && check.Fatal {
			fatal = append(fatal, res.Err)
		}
		results = append(results, res)
	}

	return results, errors.Join(fatal...)
}
