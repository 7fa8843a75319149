package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host"
	"gopkg.in/yaml.v3"
)

// ManifestFiles are the descriptors looked up in a collection directory, in order.
// MANIFEST.json is written by installs, galaxy.yml lives in source checkouts.
var ManifestFiles = []string{"MANIFEST.json", "galaxy.yml", "galaxy.yaml"}

// Manifest is the namespace and name a collection declares about itself.
type Manifest struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name"      yaml:"name"`
	Version   string `json:"version"   yaml:"version"`
}

type installedManifest struct {
	CollectionInfo Manifest `json:"collection_info"`
}

// ParseManifest decodes a descriptor, choosing the format from its file name.
func ParseManifest(fileName string, data []byte) (Manifest, error) {
	var m Manifest

	switch filepath.Base(fileName) {
	case "MANIFEST.json":
		var installed installedManifest

		err := json.Unmarshal(data, &installed)
		if err != nil {
			return Manifest{}, fmt.Errorf("invalid %s: %w", fileName, err)
		}

		m = installed.CollectionInfo
	default:
		err := yaml.Unmarshal(data, &m)
		if err != nil {
			return Manifest{}, fmt.Errorf("invalid %s: %w", fileName, err)
		}
	}

	m.Namespace = strings.TrimSpace(m.Namespace)
	m.Name = strings.TrimSpace(m.Name)

	if m.Namespace == "" || m.Name == "" {
		return Manifest{}, fmt.Errorf("%s does not declare namespace and name", fileName)
	}

	return m, nil
}

// ReadManifest returns the first parseable descriptor found in dir.
func ReadManifest(ctx context.Context, h host.Host, dir string) (Manifest, error) {
	var errs []error

	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)

		data, err := h.ReadFile(ctx, path)
		if err != nil {
			if !host.IsNotExist(err) {
				errs = append(errs, err)
			}

			continue
		}

		m, err := ParseManifest(name, data)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		return m, nil
	}

	if len(errs) == 0 {
		return Manifest{}, faults.Parse("read manifest", "no manifest in "+dir, nil)
	}

	return Manifest{}, faults.Parse("read manifest", "unreadable manifest in "+dir, errors.Join(errs...))
}
