package models

import (
	"regexp"
	"strings"
)

// DefaultNamespace is used when no namespace has been configured.
const DefaultNamespace = "local"

var registryIdentifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+\.[A-Za-z0-9_]+(:[^\s]+)?$`)

// CatalogConfig is the operator-supplied description of where the catalog comes from.
type CatalogConfig struct {
	Source         string `json:"source"                          validate:"required_without=UseLocal"`
	Namespace      string `json:"namespace"                       validate:"omitempty,collection_segment"`
	CollectionName string `json:"collection_name"                 validate:"omitempty,collection_segment"`
	UseLocal       bool   `json:"use_local"`
	// CollectionPath is set by sync when the collection was found outside the catalog root.
	CollectionPath        string `json:"collection_path,omitempty"`
	ExecutionSandboxImage string `json:"execution_sandbox_image,omitempty"`
}

// SourceKind classifies the catalog source string.
type SourceKind string

const (
	SourceKindNone     SourceKind = ""
	SourceKindVCS      SourceKind = "vcs"
	SourceKindRegistry SourceKind = "registry"
)

// SourceKind reports whether Source is a version-control URL or a registry identifier.
func (c CatalogConfig) SourceKind() SourceKind {
	source := strings.TrimSpace(c.Source)

	switch {
	case source == "":
		return SourceKindNone
	case registryIdentifierPattern.MatchString(source):
		return SourceKindRegistry
	default:
		return SourceKindVCS
	}
}

// RegistryName splits a registry identifier into namespace and name, dropping any version pin.
func (c CatalogConfig) RegistryName() (string, string, bool) {
	if c.SourceKind() != SourceKindRegistry {
		return "", "", false
	}

	ref, _, _ := strings.Cut(strings.TrimSpace(c.Source), ":")
	namespace, name, _ := strings.Cut(ref, ".")

	return namespace, name, true
}
