package weaver

import (
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wippyai/cilweave/metadata"
	"github.com/wippyai/cilweave/selector"
)

// Session weaves every member of a module that has applicable interceptors.
// Nothing is committed unless every member weaves successfully.
type Session struct {
	weaver *Weaver
	module *metadata.Module
}

// NewSession creates a session for m.
func NewSession(m *metadata.Module, opts Options) *Session {
	return &Session{weaver: New(m, opts), module: m}
}

// Plan returns the members the session would weave with their ordered
// interceptors.
func (s *Session) Plan() []selector.Plan {
	return selector.Module(s.module)
}

// Run weaves the planned members and commits the results. On failure the
// returned error aggregates every failing member in declaration order and
// no member is modified.
func (s *Session) Run() ([]*Result, error) {
	var (
		results []*Result
		merr    *multierror.Error
	)
	for _, plan := range s.Plan() {
		if plan.Member.Body == nil {
			Logger().Debug("skipping member without body", zap.String("member", plan.Member.FullName()))
			continue
		}
		res, err := s.weaver.Weave(plan.Member, plan.Interceptors)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		results = append(results, res)
	}
	if err := merr.ErrorOrNil(); err != nil {
		Logger().Warn("weave failed, nothing committed",
			zap.String("module", s.module.Name),
			zap.Int("failed", len(merr.Errors)))
		return nil, err
	}

	for _, res := range results {
		res.Commit()
	}
	Logger().Info("module woven",
		zap.String("module", s.module.Name),
		zap.Int("members", len(results)))
	return results, nil
}
