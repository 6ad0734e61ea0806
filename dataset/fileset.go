package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// Fileset maps a dataset name to its input files.
type Fileset map[string][]string

// LoadFileset reads a {"dataset": ["file", ...]} JSON file.
func LoadFileset(path string) (Fileset, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // user-provided fileset path
	if err != nil {
		return nil, err
	}
	var fs Fileset
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fs, nil
}

func (f Fileset) Files(name string) ([]string, error) {
	files, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return files, nil
}
