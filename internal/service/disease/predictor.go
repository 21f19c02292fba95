package disease

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/medbot/internal/refdata"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

// Status describes how a lookup was resolved.
type Status int

const (
	StatusFound Status = iota
	StatusMissing
	StatusMalformed
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusMissing:
		return "missing"
	case StatusMalformed:
		return "malformed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

const (
	NoDescription  = "No description available for this disease."
	NoMedication   = "No medication information available for this disease."
	NoPrecautions  = "No precautions found for this disease."
	NoWorkouts     = "No workout recommendations available for this disease."
	NoDiet         = "No diet recommendations available for this disease."
	medicationErrf = "❌ Error fetching medication: %v"
	dietErrf       = "Error fetching diets: %v"
)

// Lookup is the result of a side-table query. Items always holds something
// displayable: the data, or the fallback text when Status is not Found.
type Lookup struct {
	Items  []string
	Status Status
	Err    error
}

func found(items ...string) Lookup {
	return Lookup{Items: items, Status: StatusFound}
}

func fallback(status Status, text string) Lookup {
	return Lookup{Items: []string{text}, Status: status}
}

// Predictor combines the classifier with the disease tables.
type Predictor struct {
	classifier Classifier
	store      *refdata.Store
	log        *logger.Logger
}

func NewPredictor(c Classifier, store *refdata.Store, log *logger.Logger) *Predictor {
	if log == nil {
		log = logger.Nop()
	}
	return &Predictor{classifier: c, store: store, log: log}
}

// Predict returns false when the classifier fails.
func (p *Predictor) Predict(vec []float64) (string, bool) {
	if p.classifier == nil {
		return "", false
	}
	label, err := p.classifier.Predict(vec)
	if err != nil {
		p.log.Error(err, "disease prediction failed")
		return "", false
	}
	return label, true
}

func (p *Predictor) Description(disease string) Lookup {
	if !p.store.Available(refdata.CapabilityDescriptions) {
		return fallback(StatusUnavailable, NoDescription)
	}
	desc, ok := p.store.Diseases().Descriptions[textutil.NormalizeKey(disease)]
	if !ok || desc == "" {
		return fallback(StatusMissing, NoDescription)
	}
	return found(desc)
}

func (p *Predictor) Medications(disease string) Lookup {
	if !p.store.Available(refdata.CapabilityMedications) {
		return fallback(StatusUnavailable, NoMedication)
	}
	raw, ok := p.store.Diseases().Medications[textutil.NormalizeKey(disease)]
	if !ok {
		return fallback(StatusMissing, NoMedication)
	}
	return p.parsed(disease, "medications", raw, NoMedication, medicationErrf)
}

func (p *Predictor) Diets(disease string) Lookup {
	if !p.store.Available(refdata.CapabilityDiets) {
		return fallback(StatusUnavailable, NoDiet)
	}
	raw, ok := p.store.Diseases().Diets[textutil.NormalizeKey(disease)]
	if !ok {
		return fallback(StatusMissing, NoDiet)
	}
	return p.parsed(disease, "diets", raw, NoDiet, dietErrf)
}

func (p *Predictor) parsed(disease, table, raw, missing, errf string) Lookup {
	items, err := refdata.ParseList(raw)
	if err != nil {
		p.log.Warn("malformed list cell", "table", table, "disease", disease, "error", err.Error())
		return Lookup{Items: []string{fmt.Sprintf(errf, err)}, Status: StatusMalformed, Err: err}
	}
	if len(items) == 0 {
		return fallback(StatusMissing, missing)
	}
	return found(items...)
}

func (p *Predictor) Precautions(disease string) Lookup {
	if !p.store.Available(refdata.CapabilityPrecautions) {
		return fallback(StatusUnavailable, NoPrecautions)
	}
	items := p.store.Diseases().Precautions[textutil.NormalizeKey(disease)]
	if len(items) == 0 {
		return fallback(StatusMissing, NoPrecautions)
	}
	return found(items...)
}

func (p *Predictor) Workouts(disease string) Lookup {
	if !p.store.Available(refdata.CapabilityWorkouts) {
		return fallback(StatusUnavailable, NoWorkouts)
	}
	items := p.store.Diseases().Workouts[textutil.NormalizeKey(disease)]
	if len(items) == 0 {
		return fallback(StatusMissing, NoWorkouts)
	}
	return found(items...)
}

// CheckConsistency reports, per loaded side table, the labels that have no
// row. It only logs; a missing row degrades to the fallback text at lookup.
func (p *Predictor) CheckConsistency(labels []string) map[refdata.Capability][]string {
	tables := p.store.Diseases()
	has := map[refdata.Capability]func(string) bool{
		refdata.CapabilityDescriptions: func(k string) bool { _, ok := tables.Descriptions[k]; return ok },
		refdata.CapabilityMedications:  func(k string) bool { _, ok := tables.Medications[k]; return ok },
		refdata.CapabilityPrecautions:  func(k string) bool { _, ok := tables.Precautions[k]; return ok },
		refdata.CapabilityWorkouts:     func(k string) bool { _, ok := tables.Workouts[k]; return ok },
		refdata.CapabilityDiets:        func(k string) bool { _, ok := tables.Diets[k]; return ok },
	}

	missing := make(map[refdata.Capability][]string)
	for capability, contains := range has {
		if !p.store.Available(capability) {
			continue
		}
		for _, label := range labels {
			if !contains(textutil.NormalizeKey(label)) {
				missing[capability] = append(missing[capability], label)
			}
		}
	}

	caps := make([]string, 0, len(missing))
	for c := range missing {
		caps = append(caps, string(c))
	}
	sort.Strings(caps)
	for _, c := range caps {
		labels := missing[refdata.Capability(c)]
		p.log.Warn("disease labels missing from table", "table", c, "count", len(labels), "labels", labels)
	}
	return missing
}
