// Package layout resolves every on-disk location used by demodeck from a single base directory.
package layout

import (
	"path/filepath"
	"strings"

	"github.com/dukex/demodeck/pkg/models"
)

const (
	// DefaultBaseDir is where demodeck keeps its catalog mirror, config and instances.
	DefaultBaseDir = "/var/lib/demodeck"

	CatalogFileName      = "demos.yaml"
	SpecFileName         = "spec.json"
	StatusFileName       = "status.json"
	EngineStatusFileName = "engine-status.json"
	LaunchPlaybookName   = "launch.yml"
	ConfigFileName       = "config.json"
)

// Layout maps logical resources to paths under BaseDir.
type Layout struct {
	BaseDir string
}

// New creates a layout rooted at baseDir, or DefaultBaseDir when empty.
func New(baseDir string) Layout {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}

	return Layout{BaseDir: filepath.Clean(baseDir)}
}

func (l Layout) ConfigFile() string {
	return filepath.Join(l.BaseDir, ConfigFileName)
}

// CatalogRoot is the collections path mounted into the sandbox on registry installs.
func (l Layout) CatalogRoot() string {
	return filepath.Join(l.BaseDir, "catalog")
}

func (l Layout) CollectionsRoot() string {
	return filepath.Join(l.CatalogRoot(), "ansible_collections")
}

func (l Layout) CollectionPath(namespace, name string) string {
	return filepath.Join(l.CollectionsRoot(), namespace, name)
}

// CollectionIdentity reports the namespace and name of a dir laid out by CollectionPath.
func (l Layout) CollectionIdentity(dir string) (namespace, name string, ok bool) {
	rel, err := filepath.Rel(l.CollectionsRoot(), filepath.Clean(dir))
	if err != nil {
		return "", "", false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." || parts[0] == "." {
		return "", "", false
	}

	return parts[0], parts[1], true
}

func (l Layout) InstancesRoot() string {
	return filepath.Join(l.BaseDir, "instances")
}

func (l Layout) InstanceDir(id string) string {
	return filepath.Join(l.InstancesRoot(), id)
}

func (l Layout) SpecFile(id string) string {
	return filepath.Join(l.InstanceDir(id), SpecFileName)
}

func (l Layout) StatusFile(id string) string {
	return filepath.Join(l.InstanceDir(id), StatusFileName)
}

// EngineStatusFile is the side-channel record the automation engine may write.
func (l Layout) EngineStatusFile(id string) string {
	return filepath.Join(l.InstanceDir(id), EngineStatusFileName)
}

// LaunchPlaybook is the generated wrapper playbook used to run role-kind demos.
func (l Layout) LaunchPlaybook(id string) string {
	return filepath.Join(l.InstanceDir(id), LaunchPlaybookName)
}

// Collection binds a layout to one resolved collection.
type Collection struct {
	Root      string
	Namespace string
	Name      string
}

// Collection returns the collection mirror located at the default path for namespace/name.
func (l Layout) Collection(namespace, name string) Collection {
	return Collection{Root: l.CollectionPath(namespace, name), Namespace: namespace, Name: name}
}

// CollectionFor returns the collection a config points at, honouring a path recorded by
// a local sync.
func (l Layout) CollectionFor(cfg models.CatalogConfig) Collection {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = models.DefaultNamespace
	}

	coll := l.Collection(namespace, cfg.CollectionName)
	if cfg.CollectionPath != "" {
		coll.Root = filepath.Clean(cfg.CollectionPath)
	}

	return coll
}

func (c Collection) CatalogFile() string {
	return filepath.Join(c.Root, CatalogFileName)
}

// RoleDefaultsFiles lists the candidate defaults files of a role, in lookup order.
func (c Collection) RoleDefaultsFiles(rolePath string) []string {
	dir := filepath.Join(c.Root, "roles", RoleName(rolePath), "defaults")

	return []string{filepath.Join(dir, "main.yml"), filepath.Join(dir, "main.yaml")}
}

// RunTarget resolves what the automation engine runs for a definition: the playbook
// file path for playbooks, the fully-qualified role name for roles.
func (c Collection) RunTarget(kind models.DemoKind, path string) string {
	if kind == models.DemoKindRole {
		if strings.Count(path, ".") == 2 {
			return path
		}

		return c.Namespace + "." + c.Name + "." + RoleName(path)
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(c.Root, "playbooks", path)
}

// RoleName strips any collection qualifier from a role reference.
func RoleName(rolePath string) string {
	rolePath = strings.Trim(strings.TrimSpace(rolePath), "/")
	if idx := strings.LastIndex(rolePath, "."); idx >= 0 && !strings.Contains(rolePath, "/") {
		return rolePath[idx+1:]
	}

	return filepath.Base(rolePath)
}
