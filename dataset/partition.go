package dataset

import "fmt"

// DivideList splits files into groups of about nfiles. The number of groups
// is ceil(len/nfiles) and the first len%groups groups take one extra file.
// Fewer files than nfiles give a single group.
func DivideList(files []string, nfiles int) [][]string {
	if nfiles < 1 || len(files) < nfiles {
		return [][]string{files}
	}

	n := len(files) / nfiles
	if len(files)%nfiles != 0 {
		n++
	}

	size, remainder := len(files)/n, len(files)%n
	out := make([][]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < remainder {
			end++
		}
		out = append(out, files[start:end])
		start = end
	}
	return out
}

// Partition is one job's share of a dataset.
type Partition struct {
	Key     string   `json:"key" yaml:"key"`
	Dataset string   `json:"dataset" yaml:"dataset"`
	Index   int      `json:"index" yaml:"index"`
	Files   []string `json:"files" yaml:"files"`
}

// Partitions splits the files of a dataset. A lone partition is keyed by
// the dataset name, otherwise keys are <dataset>_<i> counting from 1.
func Partitions(dataset string, files []string, nfiles int) []Partition {
	groups := DivideList(files, nfiles)
	out := make([]Partition, len(groups))
	for i, g := range groups {
		key := dataset
		if len(groups) > 1 {
			key = fmt.Sprintf("%s_%d", dataset, i+1)
		}
		out[i] = Partition{Key: key, Dataset: dataset, Index: i + 1, Files: g}
	}
	return out
}
