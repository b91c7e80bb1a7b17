package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"

	devenv "loto6-archive/dev/env"
)

// FilesystemOutput writes every instrumented message to its own file in a
// directory, named by message id.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput resolves dir (which may start with <dev_state>) and
// clears it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
