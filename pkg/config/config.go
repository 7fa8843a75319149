// Package config loads and saves the operator's catalog configuration.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/go-playground/validator/v10"
)

var collectionSegment = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store persists the CatalogConfig as <base>/config.json.
type Store struct {
	host     host.Host
	path     string
	logger   *slog.Logger
	validate *validator.Validate
}

func NewStore(h host.Host, l layout.Layout, logger *slog.Logger) *Store {
	return &Store{
		host:     h,
		path:     l.ConfigFile(),
		logger:   logger.With("module", "config"),
		validate: NewValidator(),
	}
}

// NewValidator returns a validator that knows the collection_segment tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("collection_segment", func(fl validator.FieldLevel) bool {
		return collectionSegment.MatchString(fl.Field().String())
	})

	return v
}

// Defaults is the configuration used when nothing has been saved yet.
func Defaults() models.CatalogConfig {
	return models.CatalogConfig{Namespace: models.DefaultNamespace}
}

// Load never fails: a missing or unreadable file yields the defaults.
func (s *Store) Load(ctx context.Context) models.CatalogConfig {
	data, err := s.host.ReadFile(ctx, s.path)
	if err != nil {
		if !host.IsNotExist(err) {
			s.logger.WarnContext(ctx, "Cannot read config, using defaults", "path", s.path, "error", err)
		}

		return Defaults()
	}

	cfg := Defaults()

	err = json.Unmarshal(data, &cfg)
	if err != nil {
		s.logger.WarnContext(ctx, "Invalid config, using defaults", "path", s.path, "error", err)

		return Defaults()
	}

	return normalize(cfg)
}

// Validate checks cfg against the field rules.
func (s *Store) Validate(cfg models.CatalogConfig) error {
	err := s.validate.Struct(cfg)
	if err != nil {
		return fmt.Errorf("invalid catalog config: %w", err)
	}

	return nil
}

// Save validates and writes cfg.
func (s *Store) Save(ctx context.Context, cfg models.CatalogConfig) error {
	cfg = normalize(cfg)

	if err := s.Validate(cfg); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = s.host.WriteFile(ctx, s.path, data)
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", s.path, err)
	}

	s.logger.InfoContext(ctx, "Config saved", "path", s.path, "source", cfg.Source)

	return nil
}

// RecordCollection stores the namespace, collection name and location a sync resolved.
// An empty path means the default location under the catalog root. The rest of the
// configuration is left as it is on disk.
func (s *Store) RecordCollection(ctx context.Context, namespace, name, path string) error {
	cfg := s.Load(ctx)
	if cfg.Namespace == namespace && cfg.CollectionName == name && cfg.CollectionPath == path {
		return nil
	}

	cfg.Namespace = namespace
	cfg.CollectionName = name
	cfg.CollectionPath = path

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return s.host.WriteFile(ctx, s.path, data)
}

func normalize(cfg models.CatalogConfig) models.CatalogConfig {
	cfg.Source = strings.TrimSpace(cfg.Source)
	cfg.Namespace = strings.TrimSpace(cfg.Namespace)
	cfg.CollectionName = strings.TrimSpace(cfg.CollectionName)
	cfg.ExecutionSandboxImage = strings.TrimSpace(cfg.ExecutionSandboxImage)
	cfg.CollectionPath = strings.TrimSpace(cfg.CollectionPath)

	if cfg.Namespace == "" {
		cfg.Namespace = models.DefaultNamespace
	}

	return cfg
}
