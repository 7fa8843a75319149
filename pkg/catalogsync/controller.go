// Package catalogsync keeps the local mirror of the demo catalog current.
package catalogsync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dukex/demodeck/pkg/eventbus"
	"github.com/dukex/demodeck/pkg/events"
	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Mode string

const (
	ModeLocal    Mode = "local"
	ModeVCS      Mode = "vcs"
	ModeRegistry Mode = "registry"
)

// Provenance records where the resolved namespace and name came from.
type Provenance string

const (
	ProvenanceManifest Provenance = "manifest"
	ProvenancePath     Provenance = "path"
	ProvenanceConfig   Provenance = "config"
)

// Install output markers that mean success even when warnings made the exit code non-zero.
var installSuccessMarkers = []string{
	"was installed successfully",
	"Nothing to do. All requested collections are already installed",
}

var installedPathPattern = regexp.MustCompile(`Installing '[^']+' to '([^']+)'`)

// Result describes a completed sync.
type Result struct {
	Mode           Mode       `json:"mode"`
	Namespace      string     `json:"namespace"`
	CollectionName string     `json:"collection_name"`
	CollectionPath string     `json:"collection_path"`
	Provenance     Provenance `json:"provenance"`
	// Degraded is set when the namespace and name could only be taken from the config.
	Degraded bool   `json:"degraded"`
	Output   string `json:"output,omitempty"`
}

// ConfigStore is the part of the config store sync needs.
type ConfigStore interface {
	Load(ctx context.Context) models.CatalogConfig
	RecordCollection(ctx context.Context, namespace, name, path string) error
}

// Controller runs catalog syncs. Calls against the same target must not overlap.
type Controller struct {
	host       host.Host
	layout     layout.Layout
	config     ConfigStore
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger
	localRoots []string
	retry      RetryPolicy
}

type Option func(*Controller)

// WithLocalRoots replaces the directories searched in local mode.
func WithLocalRoots(roots ...string) Option {
	return func(c *Controller) {
		c.localRoots = roots
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Controller) {
		c.retry = policy
	}
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(c *Controller) {
		c.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// DefaultLocalRoots are the collection roots searched in local mode, in order.
func DefaultLocalRoots(l layout.Layout) []string {
	return []string{
		l.CollectionsRoot(),
		"/usr/share/ansible/collections/ansible_collections",
		"/etc/ansible/collections/ansible_collections",
	}
}

func NewController(h host.Host, l layout.Layout, config ConfigStore, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		host:       h,
		layout:     l,
		config:     config,
		tracer:     otelhelper.NoopTracer(),
		logger:     logger.With("module", "catalogsync"),
		localRoots: DefaultLocalRoots(l),
		retry:      DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Sync brings the mirror up to date for the stored configuration and records the
// resolved collection back into it.
func (c *Controller) Sync(ctx context.Context) (*Result, error) {
	cfg := c.config.Load(ctx)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "catalogsync.sync",
		attribute.String(otelhelper.SyncSourceKey, cfg.Source),
	)
	defer span.End()

	result, err := c.sync(ctx, cfg)
	if err != nil {
		otelhelper.SetError(span, err)
		c.logger.ErrorContext(ctx, "Catalog sync failed", "source", cfg.Source, "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.SyncModeKey, string(result.Mode)),
		attribute.String(otelhelper.CollectionPathKey, result.CollectionPath),
	)

	recordedPath := result.CollectionPath
	if recordedPath == c.layout.CollectionPath(result.Namespace, result.CollectionName) {
		recordedPath = ""
	}

	err = c.config.RecordCollection(ctx, result.Namespace, result.CollectionName, recordedPath)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to record resolved collection", "error", err)
	}

	c.logger.InfoContext(ctx, "Catalog synced",
		"mode", result.Mode,
		"namespace", result.Namespace,
		"collection", result.CollectionName,
		"provenance", result.Provenance,
	)

	c.publish(ctx, result)

	return result, nil
}

func (c *Controller) sync(ctx context.Context, cfg models.CatalogConfig) (*Result, error) {
	if cfg.UseLocal {
		return c.syncLocal(ctx, cfg)
	}

	if cfg.Source == "" {
		return nil, faults.Configuration("sync", "catalog source is required")
	}

	if cfg.ExecutionSandboxImage == "" {
		return nil, faults.Configuration("sync", "execution sandbox image is required")
	}

	switch cfg.SourceKind() {
	case models.SourceKindRegistry:
		return c.syncRegistry(ctx, cfg)
	default:
		return c.syncVCS(ctx, cfg)
	}
}

// syncLocal looks for an already present collection. The first root holding a matching
// manifest wins.
func (c *Controller) syncLocal(ctx context.Context, cfg models.CatalogConfig) (*Result, error) {
	if cfg.Namespace == "" || cfg.CollectionName == "" {
		return nil, faults.Configuration("sync", "namespace and collection name are required in local mode")
	}

	for _, root := range c.localRoots {
		dir := filepath.Join(root, cfg.Namespace, cfg.CollectionName)

		m, err := ReadManifest(ctx, c.host, dir)
		if err != nil {
			c.logger.DebugContext(ctx, "No collection here", "dir", dir, "error", err)

			continue
		}

		if m.Namespace != cfg.Namespace || m.Name != cfg.CollectionName {
			c.logger.DebugContext(ctx, "Manifest does not match", "dir", dir, "namespace", m.Namespace, "name", m.Name)

			continue
		}

		return &Result{
			Mode:           ModeLocal,
			Namespace:      m.Namespace,
			CollectionName: m.Name,
			CollectionPath: dir,
			Provenance:     ProvenanceManifest,
		}, nil
	}

	return nil, faults.Acquisition("sync", faults.ReasonAuthOrNotFound,
		fmt.Sprintf("collection %s.%s not found in %s", cfg.Namespace, cfg.CollectionName, strings.Join(c.localRoots, ", ")), nil)
}

// syncVCS updates the checkout in place, cloning it when there is nothing to update.
func (c *Controller) syncVCS(ctx context.Context, cfg models.CatalogConfig) (*Result, error) {
	if cfg.CollectionName == "" {
		return nil, faults.Configuration("sync", "collection name is required for a repository source")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = models.DefaultNamespace
	}

	target := c.layout.CollectionPath(namespace, cfg.CollectionName)

	output, err := c.pull(ctx, target)
	if err != nil {
		if faults.ReasonOf(err) != faults.ReasonMissingTarget {
			return nil, err
		}

		c.logger.InfoContext(ctx, "No checkout to update, cloning", "target", target, "source", cfg.Source)

		output, err = c.clone(ctx, cfg.Source, target)
		if err != nil {
			return nil, err
		}
	}

	result := c.resolve(ctx, cfg, target, "")
	result.Mode = ModeVCS
	result.Output = output

	return result, nil
}

func (c *Controller) pull(ctx context.Context, target string) (string, error) {
	res, err := host.Run(ctx, c.host, host.Command{Name: "git", Args: []string{"-C", target, "pull", "--ff-only"}})
	if err != nil {
		return "", faults.Acquisition("pull", faults.ReasonGeneric, "cannot run git", err)
	}

	if res.ExitCode != 0 {
		return res.Output, commandFailure("pull", res)
	}

	return res.Output, nil
}

func (c *Controller) clone(ctx context.Context, source, target string) (string, error) {
	steps := []host.Command{
		{Name: "mkdir", Args: []string{"-p", filepath.Dir(target)}},
		{Name: "rm", Args: []string{"-rf", target}},
		{Name: "git", Args: []string{"clone", source, target}},
	}

	var output string

	for _, step := range steps {
		res, err := host.Run(ctx, c.host, step)
		if err != nil {
			return "", faults.Acquisition("clone", faults.ReasonGeneric, "cannot run "+step.Name, err)
		}

		if res.ExitCode != 0 {
			return res.Output, commandFailure("clone", res)
		}

		output = res.Output
	}

	return output, nil
}

// syncRegistry installs the collection inside the sandbox image with the catalog root
// mounted.
func (c *Controller) syncRegistry(ctx context.Context, cfg models.CatalogConfig) (*Result, error) {
	namespace, name, _ := cfg.RegistryName()
	root := c.layout.CatalogRoot()

	res, err := host.Run(ctx, c.host, host.Command{Name: "mkdir", Args: []string{"-p", root}})
	if err != nil {
		return nil, faults.Acquisition("install", faults.ReasonGeneric, "cannot prepare "+root, err)
	}

	if res.ExitCode != 0 {
		return nil, commandFailure("install", res)
	}

	res, err = host.Run(ctx, c.host, host.Command{Name: "podman", Args: []string{
		"run", "--rm",
		"-v", root + ":" + root + ":Z",
		cfg.ExecutionSandboxImage,
		"ansible-galaxy", "collection", "install", cfg.Source,
		"-p", root,
		"--force",
	}})
	if err != nil {
		return nil, faults.Acquisition("install", faults.ReasonGeneric, "cannot run podman", err)
	}

	if !installSucceeded(res) {
		return nil, faults.Acquisition("install", faults.ReasonInstallRejected,
			fmt.Sprintf("install exited with code %d", res.ExitCode), outputError(res.Output))
	}

	if res.ExitCode != 0 {
		c.logger.WarnContext(ctx, "Install reported success with a non-zero exit code", "exit_code", res.ExitCode)
	}

	installed := ""
	if m := installedPathPattern.FindStringSubmatch(res.Output); m != nil {
		installed = filepath.Clean(m[1])
	}

	dir := installed
	if dir == "" {
		dir = c.layout.CollectionPath(namespace, name)
	}

	fallback := cfg
	if fallback.CollectionName == "" {
		fallback.Namespace, fallback.CollectionName = namespace, name
	}

	result := c.resolve(ctx, fallback, dir, installed)
	result.Mode = ModeRegistry
	result.Output = res.Output

	return result, nil
}

func installSucceeded(res host.Result) bool {
	if res.ExitCode == 0 {
		return true
	}

	for _, marker := range installSuccessMarkers {
		if strings.Contains(res.Output, marker) {
			return true
		}
	}

	return false
}

// resolve derives the authoritative namespace and name: the manifest first, retried to
// ride out propagation lag, then the installed path or an existing collection dir,
// then the config.
func (c *Controller) resolve(ctx context.Context, cfg models.CatalogConfig, dir, installed string) *Result {
	var m Manifest

	err := c.retry.Do(ctx, func(attempt int) error {
		var err error

		m, err = ReadManifest(ctx, c.host, dir)
		if err != nil {
			c.logger.DebugContext(ctx, "Manifest not readable yet", "dir", dir, "attempt", attempt+1, "error", err)
		}

		return err
	})
	if err == nil {
		return &Result{
			Namespace:      m.Namespace,
			CollectionName: m.Name,
			CollectionPath: dir,
			Provenance:     ProvenanceManifest,
		}
	}

	if installed != "" {
		c.logger.WarnContext(ctx, "Using installed path for collection identity", "path", installed, "error", err)

		return &Result{
			Namespace:      filepath.Base(filepath.Dir(installed)),
			CollectionName: filepath.Base(installed),
			CollectionPath: installed,
			Provenance:     ProvenancePath,
		}
	}

	if namespace, name, ok := c.layout.CollectionIdentity(dir); ok && host.Exists(ctx, c.host, dir) {
		c.logger.WarnContext(ctx, "Using collection dir for collection identity", "path", dir, "error", err)

		return &Result{
			Namespace:      namespace,
			CollectionName: name,
			CollectionPath: dir,
			Provenance:     ProvenancePath,
		}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = models.DefaultNamespace
	}

	c.logger.WarnContext(ctx, "Degraded sync: collection identity taken from config",
		"namespace", namespace,
		"collection", cfg.CollectionName,
		"error", err,
	)

	return &Result{
		Namespace:      namespace,
		CollectionName: cfg.CollectionName,
		CollectionPath: dir,
		Provenance:     ProvenanceConfig,
		Degraded:       true,
	}
}

func (c *Controller) publish(ctx context.Context, result *Result) {
	if c.publisher == nil {
		return
	}

	event := &events.CatalogSynced{
		BaseEvent:      events.NewBaseEvent(events.CatalogSyncedEvent, ""),
		Mode:           string(result.Mode),
		Namespace:      result.Namespace,
		CollectionName: result.CollectionName,
		CollectionPath: result.CollectionPath,
		Provenance:     string(result.Provenance),
		Degraded:       result.Degraded,
	}

	err := c.publisher.Publish(ctx, result.Namespace+"."+result.CollectionName, event)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to publish catalog synced event", "error", err)
	}
}
