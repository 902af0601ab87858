// Package audit checks the mapping repository's one-to-one invariant:
// no anidb id and no tmdb id may appear in more than one confirmed pair.
// SqliteRepo.Store(replace=true) enforces this on every write, but the
// bulk anime-list importer stores with replace=false, so a direct
// integrity check is still worth running, not a no-op.
package audit

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/mapping"
)

// Violation names one id that appears in more than one confirmed pair.
type Violation struct {
	Field string `yaml:"field"` // "anidb" or "tmdb"
	Value string `yaml:"value"`
	Pairs []domain.AnimeMapping `yaml:"pairs"`
}

// Report is the result of one audit run.
type Report struct {
	Checked    int         `yaml:"checked"`
	Violations []Violation `yaml:"violations"`
}

// Service audits a mapping.Repo for primary-key violations.
type Service interface {
	AuditMappings(ctx context.Context) (Report, error)
}

type service struct {
	log  zerolog.Logger
	repo mapping.Repo
}

// NewService builds a Service over repo.
func NewService(log zerolog.Logger, repo mapping.Repo) Service {
	return &service{log: log.With().Str("module", "audit").Logger(), repo: repo}
}

// AuditMappings dumps the mapping repository and reports every anidb or
// tmdb id shared by more than one pair. It never deletes anything; a
// human reviews the report and decides.
func (s *service) AuditMappings(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	all, err := s.repo.Dump()
	if err != nil {
		return Report{}, err
	}

	report := Report{Checked: len(all)}
	report.Violations = append(report.Violations, findDupes("anidb", all, func(m domain.AnimeMapping) string { return m.Anidb })...)
	report.Violations = append(report.Violations, findDupes("tmdb", all, func(m domain.AnimeMapping) string { return m.Tmdb })...)

	sort.SliceStable(report.Violations, func(i, j int) bool {
		if report.Violations[i].Field != report.Violations[j].Field {
			return report.Violations[i].Field < report.Violations[j].Field
		}
		return report.Violations[i].Value < report.Violations[j].Value
	})

	if len(report.Violations) > 0 {
		s.log.Warn().Int("violation_count", len(report.Violations)).Msg("mapping repository has primary-key violations")
	}
	return report, nil
}

func findDupes(field string, all []domain.AnimeMapping, key func(domain.AnimeMapping) string) []Violation {
	byKey := map[string][]domain.AnimeMapping{}
	for _, m := range all {
		k := key(m)
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], m)
	}

	var out []Violation
	for k, pairs := range byKey {
		if len(pairs) > 1 {
			out = append(out, Violation{Field: field, Value: k, Pairs: pairs})
		}
	}
	return out
}
