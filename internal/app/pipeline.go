// Package app assembles the chat pipeline from configuration. Every entry
// point (HTTP API, CLI, Telegram bot) builds its service here.
package app

import (
	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/refdata"
	"github.com/jwalitptl/medbot/internal/service/alternative"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/service/disease"
	"github.com/jwalitptl/medbot/internal/service/intent"
	"github.com/jwalitptl/medbot/internal/service/resolver"
	"github.com/jwalitptl/medbot/internal/service/symptom"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

// Pipeline is the loaded chat service plus what was loaded for it.
type Pipeline struct {
	Service *chat.Service
	Store   *refdata.Store
	// Tree is nil when the disease model failed to load.
	Tree *disease.TreeClassifier
}

// Build loads the reference tables and models named in cfg. Missing or
// broken artifacts are logged and switch the affected feature off; Build
// itself does not fail.
func Build(cfg *config.Config, sink chat.PredictionSink, log *logger.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}

	store := refdata.Load(cfg.Data.ToRefdataConfig(), log)
	if names := store.UnavailableNames(); len(names) > 0 {
		log.Warn("reference tables unavailable", "tables", names)
	}

	deps := chat.Deps{
		Store:     store,
		Intents:   intent.NewClassifier(intentModel(cfg.Model, store.MedicineNames(), log), log),
		Resolver:  resolver.New(store.MedicineNames(), cfg.Matching.MedicineCutoff),
		Ranker:    alternative.NewRanker(store.Alternatives(), cfg.Alternatives.ToRankerConfig(), m),
		Extractor: extractor(cfg.OpenAI, log),
		Sink:      sink,
		Log:       log,
		Metrics:   m,
	}

	p := &Pipeline{Store: store}

	tree, err := disease.LoadTree(cfg.Model.DiseaseTree, cfg.Model.DiseaseLabels, cfg.Model.Columns)
	if err != nil {
		log.Error(err, "disease model unavailable, symptom checking disabled")
	} else {
		vocab, err := symptom.NewVocabulary(tree.Columns())
		if err != nil {
			log.Error(err, "symptom vocabulary unavailable, symptom checking disabled")
		} else {
			p.Tree = tree
			deps.Normalizer = symptom.NewNormalizer(vocab, cfg.Matching.SymptomCutoff, log, m)
			deps.Predictor = disease.NewPredictor(tree, store, log)
			deps.Predictor.CheckConsistency(tree.Labels())
		}
	}

	p.Service = chat.NewService(deps)
	log.Info("chat pipeline ready",
		"medicines", len(store.MedicineNames()),
		"alternatives", len(store.Alternatives()),
		"symptom_check", deps.Predictor != nil)
	return p
}

func intentModel(cfg config.ModelConfig, catalog []string, log *logger.Logger) intent.Model {
	if cfg.IntentModel == "" {
		return intent.NewKeywordModel(catalog...)
	}
	m, err := intent.LoadLinearModel(cfg.IntentModel)
	if err != nil {
		log.Error(err, "intent model unavailable, using keyword rules", "path", cfg.IntentModel)
		return intent.NewKeywordModel(catalog...)
	}
	return m
}

func extractor(cfg config.OpenAIConfig, log *logger.Logger) symptom.Extractor {
	phrases := symptom.NewPhraseExtractor()
	if !cfg.Enabled {
		return phrases
	}
	return symptom.Fallback{
		Extractors: []symptom.Extractor{
			symptom.NewOpenAIExtractor(cfg.ToExtractorConfig()),
			phrases,
		},
		OnError: func(err error) {
			log.Warn("LLM symptom extraction failed, using phrase rules", "error", err.Error())
		},
	}
}
