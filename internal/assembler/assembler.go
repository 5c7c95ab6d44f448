// Package assembler builds a project-wide Hierarchy from the modules
// extracted out of every source unit under a root directory: it merges the
// per-file results, infers the top-level module from the instantiation
// graph, and derives cross-module connections, clock domains and
// instance-to-instance net links.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
	"github.com/robert-at-pretension-io/rtl-hier/internal/graph"
)

// ModuleExtractor extracts the first module of one source unit.
type ModuleExtractor interface {
	ExtractFile(path string) (*extractor.ModuleInfo, error)
}

// Assembler assembles hierarchies. It is safe for concurrent use.
type Assembler struct {
	cfg       *config.Config
	extractor ModuleExtractor
	logger    *zap.Logger
	metrics   *Metrics
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithConfig sets the configuration. The default is config.DefaultConfig.
func WithConfig(cfg *config.Config) Option {
	return func(a *Assembler) { a.cfg = cfg }
}

// WithExtractor overrides the per-file extractor.
func WithExtractor(ex ModuleExtractor) Option {
	return func(a *Assembler) { a.extractor = ex }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg == nil {
		a.cfg = config.DefaultConfig()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.extractor == nil {
		a.extractor = extractor.New(
			extractor.WithClockTokens(a.cfg.Extraction.ClockTokens...),
			extractor.WithResetTokens(a.cfg.Extraction.ResetTokens...),
		)
	}
	return a
}

// AssembleHierarchy assembles root with the default configuration.
func AssembleHierarchy(ctx context.Context, root string) (*Hierarchy, error) {
	return New().Assemble(ctx, root)
}

type fileResult struct {
	path   string
	mod    *extractor.ModuleInfo
	err    error
	cached bool
}

// Assemble extracts every source unit under root and builds the hierarchy.
// Individual file failures are recorded in the report. The returned error
// is a *HierarchyError, a context error, or a file-enumeration error.
func (a *Assembler) Assemble(ctx context.Context, root string) (*Hierarchy, error) {
	runID := uuid.NewString()
	log := a.logger.With(zap.String("run_id", runID), zap.String("root", root))
	start := time.Now()

	h, err := a.assemble(ctx, root, runID, log)
	switch {
	case err == nil:
		a.metrics.assembly("ok")
		a.metrics.setModules(len(h.Submodules) + 1)
		log.Info("hierarchy assembled",
			zap.String("top", h.TopModule.Name),
			zap.Int("modules", len(h.Submodules)+1),
			zap.Int("skipped", len(h.Report.Skipped)),
			zap.Duration("elapsed", time.Since(start)),
		)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		a.metrics.assembly("cancelled")
		log.Warn("assembly cancelled", zap.Error(err))
	default:
		a.metrics.assembly("error")
		log.Error("assembly failed", zap.Error(err))
	}
	return h, err
}

func (a *Assembler) assemble(ctx context.Context, root, runID string, log *zap.Logger) (*Hierarchy, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, &HierarchyError{Err: ErrRootNotFound, Root: root, Msg: err.Error()}
	}

	files, err := a.cfg.ResolveFiles(root)
	if err != nil {
		return nil, fmt.Errorf("resolving source files: %w", err)
	}
	log.Debug("resolved source files", zap.Int("files", len(files)))

	var cache *moduleCache
	if a.cfg.CacheEnabled() {
		cache = newModuleCache(a.cfg.CacheDir(root), cacheVersion(a.cfg))
		if err := cache.Load(); err != nil {
			log.Warn("extraction cache disabled", zap.Error(err))
			cache = nil
		}
	}

	results, err := a.extractAll(ctx, files, cache, log)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(); err != nil {
			log.Warn("saving extraction cache", zap.Error(err))
		}
	}

	h, err := a.build(ctx, root, results, log)
	if err != nil {
		return nil, err
	}
	h.Report.RunID = runID
	h.Report.Files = len(files)
	return h, nil
}

// extractAll extracts files concurrently. Results keep the order of files
// so the merge is deterministic. Partial results are dropped when ctx ends.
func (a *Assembler) extractAll(ctx context.Context, files []string, cache *moduleCache, log *zap.Logger) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers())
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.extractOne(path, cache, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Assembler) extractOne(path string, cache *moduleCache, log *zap.Logger) fileResult {
	res := fileResult{path: path}

	var hash string
	if cache != nil {
		h, err := hashFile(path)
		if err == nil {
			hash = h
			mod, ok, err := cache.Get(path, h)
			if err != nil {
				log.Debug("cache read failed", zap.String("file", path), zap.Error(err))
			}
			if ok {
				res.mod = mod
				res.cached = true
				return res
			}
		}
	}

	start := time.Now()
	res.mod, res.err = a.extractor.ExtractFile(path)
	a.metrics.observeExtract(time.Since(start))

	if res.err == nil && cache != nil && hash != "" {
		if err := cache.Put(path, hash, res.mod); err != nil {
			log.Debug("cache write failed", zap.String("file", path), zap.Error(err))
		}
	}
	return res
}

// build merges file results in path order. The first definition of a
// module name wins.
func (a *Assembler) build(ctx context.Context, root string, results []fileResult, log *zap.Logger) (*Hierarchy, error) {
	h := &Hierarchy{
		Submodules:   make(map[string]*extractor.ModuleInfo),
		ClockDomains: make(map[string][]string),
		FileMapping:  make(map[string]string),
	}
	modules := make(map[string]*extractor.ModuleInfo)

	for _, r := range results {
		if r.err != nil {
			kind := extractor.KindOf(r.err)
			h.Report.Skipped = append(h.Report.Skipped, SkippedFile{Path: r.path, Kind: kind, Message: r.err.Error()})
			a.metrics.fileProcessed(string(kind))
			log.Debug("skipping source unit", zap.String("file", r.path), zap.Error(r.err))
			continue
		}

		if r.cached {
			h.Report.CacheHits++
			a.metrics.fileProcessed("cached")
		} else {
			a.metrics.fileProcessed("ok")
		}

		mod := r.mod
		if kept, dup := h.FileMapping[mod.Name]; dup {
			conflict := Conflict{Module: mod.Name, Kept: kept, Dropped: r.path}
			if a.cfg.Analysis.FailOnConflict {
				return nil, &HierarchyError{
					Err:  ErrConflict,
					Root: root,
					Msg:  fmt.Sprintf("module %s declared in %s and %s", mod.Name, kept, r.path),
				}
			}
			h.Report.Conflicts = append(h.Report.Conflicts, conflict)
			log.Warn("duplicate module definition",
				zap.String("module", mod.Name),
				zap.String("kept", kept),
				zap.String("dropped", r.path),
			)
			continue
		}
		modules[mod.Name] = mod
		h.FileMapping[mod.Name] = r.path

		for _, other := range mod.OtherModules {
			h.Report.Warnings = append(h.Report.Warnings,
				fmt.Sprintf("%s declares additional module %s; only %s was extracted", r.path, other, mod.Name))
		}
	}

	if len(modules) == 0 {
		return nil, &HierarchyError{Err: ErrNoModules, Root: root}
	}

	g := buildGraph(modules)
	cycles := g.FindCycles()
	log.Debug("instantiation graph built", zap.Int("modules", g.Len()), zap.Int("cycles", len(cycles)))
	for _, c := range cycles {
		h.Report.Warnings = append(h.Report.Warnings, fmt.Sprintf("instantiation cycle: %v", c))
	}
	h.Report.Cycles = cycles

	top, err := a.selectTop(root, g.Roots(), modules, cycles)
	if err != nil {
		return nil, err
	}

	h.TopModule = modules[top]
	for name, m := range modules {
		if name != top {
			h.Submodules[name] = m
		}
	}

	h.Report.Warnings = append(h.Report.Warnings, unreachableWarnings(g, top)...)

	var warnings []string
	h.Connections, warnings = crossModuleConnections(modules)
	h.Report.Warnings = append(h.Report.Warnings, warnings...)

	limit := a.cfg.InstancePathLimit()
	domains, truncated, err := clockDomains(ctx, h.TopModule, modules, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		h.Report.Warnings = append(h.Report.Warnings, fmt.Sprintf(
			"clock domains cover only the first %d instance paths; raise analysis.maxInstancePaths to see the rest", limit))
	}
	h.ClockDomains = domains
	h.InstanceConnections = instanceConnections(modules)
	return h, nil
}

// unreachableWarnings names the modules the top never instantiates, directly
// or transitively. Their instances are left out of the clock domains.
func unreachableWarnings(g *graph.Graph, top string) []string {
	reached := make(map[string]bool)
	for _, name := range g.Reachable(top) {
		reached[name] = true
	}
	var warnings []string
	for _, name := range g.Nodes() {
		if reached[name] {
			continue
		}
		if parents := g.Parents(name); len(parents) > 0 {
			warnings = append(warnings, fmt.Sprintf("module %s is instantiated only by %s, outside top %s; its instances have no clock domain",
				name, strings.Join(parents, ", "), top))
		} else {
			warnings = append(warnings, fmt.Sprintf("module %s is never instantiated under top %s; its instances have no clock domain", name, top))
		}
	}
	return warnings
}

// selectTop applies the configured top if any, otherwise requires exactly
// one uninstantiated module.
func (a *Assembler) selectTop(root string, roots []string, modules map[string]*extractor.ModuleInfo, cycles [][]string) (string, error) {
	if want := a.cfg.Top; want != "" {
		if _, ok := modules[want]; !ok {
			return "", &HierarchyError{
				Err:        ErrNoTopLevel,
				Root:       root,
				Msg:        fmt.Sprintf("configured top module %s was not extracted", want),
				Candidates: roots,
			}
		}
		return want, nil
	}

	switch len(roots) {
	case 1:
		return roots[0], nil
	case 0:
		return "", &HierarchyError{Err: ErrNoTopLevel, Root: root, Msg: "every module is instantiated", Cycles: cycles}
	default:
		return "", &HierarchyError{Err: ErrAmbiguousTop, Root: root, Candidates: roots}
	}
}
