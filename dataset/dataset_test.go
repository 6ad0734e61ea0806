package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func files(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("f%d.root", i)
	}
	return out
}

func sizes(groups [][]string) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

func TestDivideList(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		nfiles int
		want   []int
	}{
		{name: "fewer than nfiles", n: 3, nfiles: 5, want: []int{3}},
		{name: "exact", n: 10, nfiles: 5, want: []int{5, 5}},
		{name: "remainder", n: 11, nfiles: 5, want: []int{4, 4, 3}},
		{name: "many", n: 23, nfiles: 4, want: []int{4, 4, 4, 4, 4, 3}},
		{name: "one per group", n: 3, nfiles: 1, want: []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := files(tt.n)
			got := DivideList(in, tt.nfiles)
			assert.Equal(t, tt.want, sizes(got))

			var flat []string
			for _, g := range got {
				flat = append(flat, g...)
			}
			assert.Equal(t, in, flat)
		})
	}
}

func TestPartitions(t *testing.T) {
	parts := Partitions("WW", files(11), 5)
	require.Len(t, parts, 3)
	assert.Equal(t, "WW_1", parts[0].Key)
	assert.Equal(t, "WW_3", parts[2].Key)
	assert.Equal(t, 3, parts[2].Index)

	parts = Partitions("WW", files(2), 5)
	require.Len(t, parts, 1)
	assert.Equal(t, "WW", parts[0].Key)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2018", "SingleMuon.yaml"), `
name: SingleMuon
process: Data
query:
  - SingleMuon/Run2018A-UL2018_MiniAODv2_NanoAODv9-v2/NANOAOD
  - SingleMuon/Run2018B-UL2018_MiniAODv2_NanoAODv9-v2/NANOAOD
year: "2018"
is_mc: false
partitions: 15
`)
	writeFile(t, filepath.Join(dir, "2018", "QCD_HT300to500.yml"), `
name: QCD_HT300to500
process: QCD
query: QCD_HT300to500_TuneCP5_PSWeights_13TeV-madgraph-pythia8/RunIISummer20UL18NanoAODv9-v1/NANOAODSIM
year: "2018"
is_mc: true
xsec: 351900
`)
	writeFile(t, filepath.Join(dir, "2017", "SingleMuon.yaml"), `
name: SingleMuon
process: Data
year: "2017"
`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a dataset")

	cat, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"QCD_HT300to500", "SingleMuon"}, cat.Names("2018"))

	qcd, err := cat.Get("2018", "QCD_HT300to500")
	require.NoError(t, err)
	assert.True(t, qcd.IsMC)
	require.NotNil(t, qcd.XSec)
	assert.Equal(t, 351900.0, *qcd.XSec)
	assert.Equal(t, 1, qcd.Partitions)
	assert.Len(t, qcd.Query, 1)

	data, err := cat.Get("2018", "SingleMuon")
	require.NoError(t, err)
	assert.Len(t, data.Query, 2)
	assert.Equal(t, 15, data.Partitions)
	assert.Equal(t, 7, data.FilesPerPartition(100))
	assert.Equal(t, 3, data.FilesPerPartition(3))

	_, err = cat.Get("2016", "SingleMuon")
	assert.ErrorIs(t, err, ErrUnknown)

	writeFile(t, filepath.Join(dir, "2018", "bad.yaml"), "name: WW\nprocess: Diboson\nyear: \"2018\"\nis_mc: true\n")
	_, err = LoadCatalog(dir)
	assert.ErrorIs(t, err, ErrMissingXSec)
}

func TestCatalogDuplicate(t *testing.T) {
	cat := Catalog{}
	require.NoError(t, cat.Add(&Config{Name: "WW", Year: "2018"}))
	assert.ErrorIs(t, cat.Add(&Config{Name: "WW", Year: "2018"}), ErrDuplicate)
	assert.NoError(t, cat.Add(&Config{Name: "WW", Year: "2017"}))
}

func TestLoadFileset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileset.json")
	writeFile(t, path, `{"WW": ["a.root", "b.root"]}`)

	fs, err := LoadFileset(path)
	require.NoError(t, err)
	got, err := fs.Files("WW")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.root", "b.root"}, got)

	_, err = fs.Files("ZZ")
	assert.ErrorIs(t, err, ErrUnknown)
}
