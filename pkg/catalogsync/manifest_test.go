package catalogsync

import (
	"testing"

	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		want    Manifest
		wantErr bool
	}{
		{
			name: "installed manifest",
			file: "MANIFEST.json",
			data: `{"collection_info":{"namespace":"acme","name":"demos","version":"1.0.0"}}`,
			want: Manifest{Namespace: "acme", Name: "demos", Version: "1.0.0"},
		},
		{
			name: "galaxy file",
			file: "/src/galaxy.yml",
			data: "namespace: acme\nname: demos\nversion: 2.0.0\nreadme: README.md\n",
			want: Manifest{Namespace: "acme", Name: "demos", Version: "2.0.0"},
		},
		{name: "missing name", file: "galaxy.yml", data: "namespace: acme\n", wantErr: true},
		{name: "empty json", file: "MANIFEST.json", data: "", wantErr: true},
		{name: "bad yaml", file: "galaxy.yml", data: "namespace: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseManifest(tt.file, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadManifest_PrefersInstalledManifest(t *testing.T) {
	fake := hosttest.New(nil)
	fake.AddFile("/c/MANIFEST.json", `{"collection_info":{"namespace":"built","name":"demos"}}`)
	fake.AddFile("/c/galaxy.yml", "namespace: source\nname: demos\n")

	m, err := ReadManifest(t.Context(), fake, "/c")
	require.NoError(t, err)
	assert.Equal(t, "built", m.Namespace)
}

func TestReadManifest_SkipsBrokenDescriptor(t *testing.T) {
	fake := hosttest.New(nil)
	fake.AddFile("/c/MANIFEST.json", "")
	fake.AddFile("/c/galaxy.yaml", "namespace: acme\nname: demos\n")

	m, err := ReadManifest(t.Context(), fake, "/c")
	require.NoError(t, err)
	assert.Equal(t, "acme", m.Namespace)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.Context(), hosttest.New(nil), "/nothing")
	require.Error(t, err)
	assert.True(t, faults.IsParse(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, faults.ReasonMissingTarget, Classify("fatal: cannot change to '/x': No such file or directory"))
	assert.Equal(t, faults.ReasonMissingTarget, Classify("fatal: not a git repository (or any of the parent directories): .git"))
	assert.Equal(t, faults.ReasonAuthOrNotFound, Classify("remote: Repository not found."))
	assert.Equal(t, faults.ReasonAuthOrNotFound, Classify("fatal: could not read Username for 'https://git.example.com'"))
	assert.Equal(t, faults.ReasonGeneric, Classify("error: merge conflict"))
}
