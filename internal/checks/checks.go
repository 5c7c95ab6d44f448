// Package checks evaluates Rego rules over hierarchy fact tables.
package checks

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
)

//go:embed rules.rego
var builtinRules string

const query = "data.rtl.checks.violations"

// Severity levels, lowest first.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Violation is one finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Module   string `json:"module"`
	File     string `json:"file"`
	Message  string `json:"message"`
}

// Summary provides aggregate counts.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Result is the outcome of one evaluation.
type Result struct {
	RunID      string      `json:"run_id"`
	Top        string      `json:"top"`
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// HasErrors reports whether any violation has error severity.
func (r *Result) HasErrors() bool { return r.Summary.Errors > 0 }

// Engine evaluates the rule set. It is safe for concurrent use.
type Engine struct {
	query  rego.PreparedEvalQuery
	cfg    *config.Config
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cfg     *config.Config
	logger  *zap.Logger
	modules map[string]string
}

// WithConfig applies per-rule severity overrides from cfg.Checks.Rules.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) { o.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithModule adds a Rego module. Rules it contributes to
// data.rtl.checks.violations are evaluated with the built-in ones.
func WithModule(name, source string) Option {
	return func(o *engineOptions) { o.modules[name] = source }
}

// New compiles the built-in rules plus any extra modules.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := engineOptions{modules: map[string]string{"rules.rego": builtinRules}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	regoOpts := []func(*rego.Rego){rego.Query(query)}
	names := make([]string, 0, len(o.modules))
	for name := range o.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		regoOpts = append(regoOpts, rego.Module(name, o.modules[name]))
	}

	prepared, err := rego.New(regoOpts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	return &Engine{query: prepared, cfg: o.cfg, logger: o.logger}, nil
}

// Evaluate runs the rules against tables. Disabled rules are dropped and
// configured severities replace the rule defaults.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables, runID string) (*Result, error) {
	input, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{RunID: runID, Top: tables.Top, Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		raw, _ := rs[0].Expressions[0].Value.([]interface{})
		for _, item := range raw {
			vmap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			v := Violation{
				Rule:     getString(vmap, "rule"),
				Severity: getString(vmap, "severity"),
				Module:   getString(vmap, "module"),
				File:     getString(vmap, "file"),
				Message:  getString(vmap, "message"),
			}
			if !e.cfg.IsRuleEnabled(v.Rule) {
				continue
			}
			v.Severity = e.cfg.GetRuleSeverity(v.Rule, v.Severity)
			result.Violations = append(result.Violations, v)
		}
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Message < b.Message
	})
	result.Summary = summarize(result.Violations)

	e.logger.Debug("checks evaluated",
		zap.String("run_id", runID),
		zap.Int("violations", result.Summary.Total),
		zap.Int("errors", result.Summary.Errors),
	)
	return result, nil
}

func summarize(violations []Violation) Summary {
	s := Summary{Total: len(violations)}
	for _, v := range violations {
		switch v.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
