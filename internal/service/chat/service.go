// Package chat turns one user message into one reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/refdata"
	"github.com/jwalitptl/medbot/internal/service/alternative"
	"github.com/jwalitptl/medbot/internal/service/composer"
	"github.com/jwalitptl/medbot/internal/service/disease"
	"github.com/jwalitptl/medbot/internal/service/intent"
	"github.com/jwalitptl/medbot/internal/service/resolver"
	"github.com/jwalitptl/medbot/internal/service/symptom"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

// Outcome classifies how well a reply was served.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeDegraded replies were served with part of the reference data
	// missing or malformed.
	OutcomeDegraded Outcome = "degraded"
	OutcomeError    Outcome = "error"
)

type Reply struct {
	Text       string
	Intent     model.Intent
	Outcome    Outcome
	Prediction *model.PredictionRecord
}

// Deps are the pipeline stages. Nil symptom stages disable symptom checking;
// a nil Sink skips prediction logging.
type Deps struct {
	Store      *refdata.Store
	Intents    *intent.Classifier
	Resolver   *resolver.Resolver
	Ranker     *alternative.Ranker
	Extractor  symptom.Extractor
	Normalizer *symptom.Normalizer
	Predictor  *disease.Predictor
	Sink       PredictionSink
	Log        *logger.Logger
	Metrics    *metrics.Metrics
}

// Service is stateless between messages and safe for concurrent use.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Store == nil {
		deps.Store = refdata.New()
	}
	if deps.Intents == nil {
		deps.Intents = intent.NewClassifier(intent.NewKeywordModel(deps.Store.MedicineNames()...), deps.Log)
	}
	if deps.Extractor == nil {
		deps.Extractor = symptom.NewPhraseExtractor()
	}
	return &Service{deps: deps}
}

// GetResponse is Respond without the metadata.
func (s *Service) GetResponse(ctx context.Context, message, userID string) string {
	return s.Respond(ctx, message, userID).Text
}

// Respond always returns a non-empty reply. A panic in a handler is logged
// and answered with the help text.
func (s *Service) Respond(ctx context.Context, message, userID string) (reply Reply) {
	start := time.Now()
	in := model.IntentGeneral

	defer func() {
		if r := recover(); r != nil {
			s.deps.Log.Error(fmt.Errorf("%v", r), "chat handler panicked", "intent", string(in))
			reply = Reply{Text: composer.Help, Intent: in, Outcome: OutcomeError}
		}
		s.deps.Metrics.ObserveOutcome(string(reply.Intent), string(reply.Outcome), time.Since(start))
		s.deps.Log.Debug("chat reply", "intent", string(reply.Intent), "outcome", string(reply.Outcome),
			"duration_ms", time.Since(start).Milliseconds())
	}()

	text := strings.TrimSpace(message)
	in = s.deps.Intents.Classify(text)
	s.deps.Metrics.ObserveIntent(string(in))

	switch in {
	case model.IntentGreeting:
		reply = success(composer.Greeting)
	case model.IntentThanks:
		reply = success(composer.Thanks)
	case model.IntentFarewell:
		reply = success(composer.Farewell)
	case model.IntentImageRequest:
		reply = success(composer.ImageSoon)
	case model.IntentMedicineQuery:
		reply = s.medicineQuery(text)
	case model.IntentSymptomCheck:
		reply = s.symptomCheck(ctx, text, userID)
	default:
		reply = s.general(text)
	}
	reply.Intent = in
	return reply
}

func success(text string) Reply {
	return Reply{Text: text, Outcome: OutcomeSuccess}
}

func degraded(what string) Reply {
	return Reply{Text: composer.Unavailable(what), Outcome: OutcomeDegraded}
}

func (s *Service) medicineQuery(text string) Reply {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "alternative") {
		if s.deps.Ranker == nil || !s.deps.Store.Available(refdata.CapabilityAlternatives) {
			return degraded("alternative medicine")
		}
		base := alternative.BaseName(text)
		if base == "" {
			return success(composer.NoAlternatives)
		}
		return success(composer.Alternatives(s.deps.Ranker.Rank(base)))
	}

	if s.deps.Resolver == nil || !s.deps.Store.Available(refdata.CapabilityMedicines) {
		return degraded("medicine")
	}
	name, ok := s.deps.Resolver.Resolve(text)
	if !ok {
		return success(composer.UnknownMedicine)
	}
	rec, ok := s.deps.Store.Medicine(name)
	if !ok {
		s.deps.Log.Warn("resolved medicine missing from store", "medicine", name)
		return success(composer.UnknownMedicine)
	}

	if field := composer.DetectField(lower); field != composer.FieldNone {
		return success(composer.FieldAnswer(rec, field))
	}
	return success(composer.Summary(rec))
}

func (s *Service) symptomCheck(ctx context.Context, text, userID string) Reply {
	if s.deps.Normalizer == nil || s.deps.Predictor == nil {
		return degraded("symptom checking")
	}

	phrases, err := s.deps.Extractor.Extract(ctx, text)
	if err != nil {
		s.deps.Log.Warn("symptom extraction failed", "error", err.Error())
	}
	if len(phrases) == 0 {
		phrases = symptom.CommaSplit(text)
	}

	vec, _, err := s.deps.Normalizer.Normalize(phrases)
	if err != nil {
		if !errors.Is(err, symptom.ErrNoValidSymptoms) {
			s.deps.Log.Error(err, "symptom normalization failed")
		}
		s.deps.Metrics.ObservePrediction("no_symptoms")
		return success(composer.SymptomFailure)
	}

	name, ok := s.deps.Predictor.Predict(vec)
	if !ok {
		s.deps.Metrics.ObservePrediction("failed")
		return Reply{Text: composer.SymptomFailure, Outcome: OutcomeError}
	}
	s.deps.Metrics.ObservePrediction("predicted")

	lookups := []disease.Lookup{
		s.deps.Predictor.Description(name),
		s.deps.Predictor.Medications(name),
		s.deps.Predictor.Precautions(name),
		s.deps.Predictor.Diets(name),
		s.deps.Predictor.Workouts(name),
	}
	outcome := OutcomeSuccess
	for _, l := range lookups {
		if l.Status == disease.StatusUnavailable || l.Status == disease.StatusMalformed {
			outcome = OutcomeDegraded
		}
	}

	d := composer.Diagnosis{
		Disease:     name,
		Description: strings.Join(lookups[0].Items, " "),
		Medications: lookups[1].Items,
		Precautions: lookups[2].Items,
		Diets:       lookups[3].Items,
		Workouts:    lookups[4].Items,
	}

	rec := model.NewPredictionRecord(userID, phrases, name)
	if s.deps.Sink != nil {
		if err := s.deps.Sink.Record(ctx, *rec); err != nil {
			s.deps.Log.Debug("prediction not logged", "prediction_id", rec.ID.String(), "error", err.Error())
		}
	}

	return Reply{Text: d.String(), Outcome: outcome, Prediction: rec}
}

func (s *Service) general(text string) Reply {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "my name is") || strings.Contains(lower, "i am ") {
		return success(composer.NameDeflection)
	}
	return success(composer.Help)
}
