// Package refdata loads the read-only reference tables the chatbot answers
// from: medicines, the alternatives catalog and the per-disease lookups.
package refdata

import (
	"errors"
	"sort"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

// Capability names one reference table. A capability whose table failed to
// load is reported unavailable instead of failing startup.
type Capability string

const (
	CapabilityMedicines    Capability = "medicines"
	CapabilityAlternatives Capability = "alternatives"
	CapabilityDescriptions Capability = "descriptions"
	CapabilityMedications  Capability = "medications"
	CapabilityPrecautions  Capability = "precautions"
	CapabilityWorkouts     Capability = "workouts"
	CapabilityDiets        Capability = "diets"
)

// Capabilities lists every table in load order.
func Capabilities() []Capability {
	return []Capability{
		CapabilityMedicines,
		CapabilityAlternatives,
		CapabilityDescriptions,
		CapabilityMedications,
		CapabilityPrecautions,
		CapabilityWorkouts,
		CapabilityDiets,
	}
}

var (
	ErrNotConfigured = errors.New("no source configured")
	ErrNotLoaded     = errors.New("table not loaded")
)

// DiseaseTables are keyed by normalized disease name. Medications and diets
// hold the raw serialized list cell; it is parsed at lookup time so a single
// malformed row does not hide the rest of the table.
type DiseaseTables struct {
	Descriptions map[string]string
	Medications  map[string]string
	Precautions  map[string][]string
	Workouts     map[string][]string
	Diets        map[string]string
}

// Store is immutable after construction and safe for concurrent use.
type Store struct {
	medicines    []model.MedicineRecord
	medicineIdx  map[string]int
	alternatives []model.AlternativeCandidate
	diseases     DiseaseTables
	unavailable  map[Capability]error
}

// Option populates a Store built with New.
type Option func(*Store)

// WithMedicines loads medicine rows. Names are normalized and the first
// row for a name wins.
func WithMedicines(records ...model.MedicineRecord) Option {
	return func(s *Store) {
		for _, r := range records {
			s.addMedicine(r)
		}
		s.markLoaded(CapabilityMedicines)
	}
}

// WithAlternatives loads the alternatives catalog in the given order.
func WithAlternatives(candidates ...model.AlternativeCandidate) Option {
	return func(s *Store) {
		s.alternatives = append(s.alternatives, candidates...)
		s.markLoaded(CapabilityAlternatives)
	}
}

// WithDiseaseTables loads the disease lookups. Each non-nil map marks its
// capability available.
func WithDiseaseTables(t DiseaseTables) Option {
	return func(s *Store) {
		if t.Descriptions != nil {
			s.diseases.Descriptions = normalizeKeys(t.Descriptions)
			s.markLoaded(CapabilityDescriptions)
		}
		if t.Medications != nil {
			s.diseases.Medications = normalizeKeys(t.Medications)
			s.markLoaded(CapabilityMedications)
		}
		if t.Precautions != nil {
			s.diseases.Precautions = normalizeKeys(t.Precautions)
			s.markLoaded(CapabilityPrecautions)
		}
		if t.Workouts != nil {
			s.diseases.Workouts = normalizeKeys(t.Workouts)
			s.markLoaded(CapabilityWorkouts)
		}
		if t.Diets != nil {
			s.diseases.Diets = normalizeKeys(t.Diets)
			s.markLoaded(CapabilityDiets)
		}
	}
}

// New builds a Store from in-memory tables. Capabilities not supplied by an
// option are unavailable.
func New(opts ...Option) *Store {
	s := &Store{
		medicineIdx: make(map[string]int),
		unavailable: make(map[Capability]error),
	}
	for _, c := range Capabilities() {
		s.unavailable[c] = ErrNotLoaded
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) addMedicine(r model.MedicineRecord) {
	name := textutil.NormalizeKey(r.Name)
	if name == "" || name == "nan" {
		return
	}
	if _, dup := s.medicineIdx[name]; dup {
		return
	}
	r.Name = name
	s.medicineIdx[name] = len(s.medicines)
	s.medicines = append(s.medicines, r)
}

func (s *Store) markLoaded(c Capability) {
	delete(s.unavailable, c)
}

func (s *Store) markUnavailable(c Capability, err error) {
	s.unavailable[c] = err
}

// Available reports whether the table behind c loaded.
func (s *Store) Available(c Capability) bool {
	_, down := s.unavailable[c]
	return !down
}

// Unavailable returns the load error of every unavailable capability.
func (s *Store) Unavailable() map[Capability]error {
	out := make(map[Capability]error, len(s.unavailable))
	for c, err := range s.unavailable {
		out[c] = err
	}
	return out
}

// UnavailableNames lists the unavailable capabilities, sorted.
func (s *Store) UnavailableNames() []string {
	names := make([]string, 0, len(s.unavailable))
	for c := range s.unavailable {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// MedicineNames returns the normalized medicine names in table order.
func (s *Store) MedicineNames() []string {
	names := make([]string, len(s.medicines))
	for i, m := range s.medicines {
		names[i] = m.Name
	}
	return names
}

// Medicine looks up a row by its normalized name.
func (s *Store) Medicine(name string) (model.MedicineRecord, bool) {
	i, ok := s.medicineIdx[textutil.NormalizeKey(name)]
	if !ok {
		return model.MedicineRecord{}, false
	}
	return s.medicines[i], true
}

// Alternatives returns the catalog in file order. Callers must not modify
// the returned slice.
func (s *Store) Alternatives() []model.AlternativeCandidate {
	return s.alternatives
}

// Diseases returns the disease lookup tables.
func (s *Store) Diseases() DiseaseTables {
	return s.diseases
}

func normalizeKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		k = textutil.NormalizeKey(k)
		if _, dup := out[k]; dup {
			continue
		}
		out[k] = v
	}
	return out
}
