// Package alternative suggests catalog medicines with names similar to a
// queried one, cheapest first among equally similar names.
package alternative

import (
	"regexp"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/service/resolver"
	"github.com/jwalitptl/medbot/pkg/fuzzy"
	"github.com/jwalitptl/medbot/pkg/metrics"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

type Config struct {
	// Candidates must score strictly above MinScore.
	MinScore int
	// Candidates scoring ExcludeScore or more are the queried medicine itself.
	ExcludeScore int
	Limit        int
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinScore:     60,
		ExcludeScore: 95,
		Limit:        5,
		CacheTTL:     10 * time.Minute,
	}
}

// Ranker is safe for concurrent use.
type Ranker struct {
	candidates []model.AlternativeCandidate
	processed  []string
	cfg        Config
	cache      *cache.Cache
	metrics    *metrics.Metrics
}

func NewRanker(candidates []model.AlternativeCandidate, cfg Config, m *metrics.Metrics) *Ranker {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.ExcludeScore <= 0 {
		cfg.ExcludeScore = def.ExcludeScore
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = def.MinScore
	}

	r := &Ranker{
		candidates: append([]model.AlternativeCandidate(nil), candidates...),
		processed:  make([]string, len(candidates)),
		cfg:        cfg,
		metrics:    m,
	}
	for i, c := range candidates {
		r.processed[i] = fuzzy.SortedTokens(c.Name)
	}
	if cfg.CacheTTL > 0 {
		r.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return r
}

// Rank returns up to Limit alternatives to base, most similar first and
// cheapest first within a score. The result is never shared with callers.
func (r *Ranker) Rank(base string) []model.RankedAlternative {
	key := textutil.NormalizeKey(base)
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			r.metrics.ObserveCacheLookup(true)
			return append([]model.RankedAlternative(nil), v.([]model.RankedAlternative)...)
		}
		r.metrics.ObserveCacheLookup(false)
	}

	ranked := r.rank(key)
	if r.cache != nil {
		r.cache.SetDefault(key, ranked)
	}
	return append([]model.RankedAlternative(nil), ranked...)
}

func (r *Ranker) rank(base string) []model.RankedAlternative {
	processed := fuzzy.SortedTokens(base)

	var matches []model.RankedAlternative
	for i, c := range r.candidates {
		score := fuzzy.SortedRatio(processed, r.processed[i])
		if score <= r.cfg.MinScore || score >= r.cfg.ExcludeScore {
			continue
		}
		matches = append(matches, model.RankedAlternative{AlternativeCandidate: c, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Price < matches[j].Price
	})

	if len(matches) > r.cfg.Limit {
		matches = matches[:r.cfg.Limit]
	}
	return matches
}

var (
	alternativeRe = regexp.MustCompile(`\balternatives?\b`)
	fillerRe      = regexp.MustCompile(`\b(to|for|of|a|an|any|some|suggest|show|find|list|what|is|are|there|the|me|give|please|medicines?|drugs?)\b`)
)

// BaseName pulls the queried medicine out of an alternatives request such as
// "suggest alternatives to dolo 650".
func BaseName(query string) string {
	s := alternativeRe.ReplaceAllString(textutil.NormalizeKey(query), " ")
	s = fillerRe.ReplaceAllString(s, " ")
	return resolver.Extract(s)
}
