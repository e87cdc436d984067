package graph

import (
	"errors"
	"fmt"
)

var (
	errEmptyPluginID = errors.New("plugin id must not be empty")
	errNoExtensions  = errors.New("plugin must claim at least one extension")
)

// UnsupportedExtensionError reports that no registered plugin claims a file's
// extension. Batch callers collect it per file and continue.
type UnsupportedExtensionError struct {
	Path string
	Ext  string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("no plugin registered for extension %q (%s)", e.Ext, e.Path)
}

// IOError reports that a file could not be read. Batch callers collect it per
// file and continue.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
