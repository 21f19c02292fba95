package refdata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

// Config holds the table paths. CSV and xlsx files are accepted.
type Config struct {
	Medicines    string
	Alternatives string
	Descriptions string
	Medications  string
	Precautions  string
	Workouts     string
	Diets        string
}

const (
	noDescription = "No description available"
	noReason      = "Unknown reason"
)

// Load reads every configured table. A table that is missing or malformed
// is logged and marked unavailable; the rest of the store still loads.
func Load(cfg Config, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}

	s := New()
	loaders := []struct {
		capability Capability
		path       string
		load       func(*table) error
	}{
		{CapabilityMedicines, cfg.Medicines, s.loadMedicines},
		{CapabilityAlternatives, cfg.Alternatives, s.loadAlternatives},
		{CapabilityDescriptions, cfg.Descriptions, s.loadDescriptions},
		{CapabilityMedications, cfg.Medications, s.loadMedications},
		{CapabilityPrecautions, cfg.Precautions, s.loadPrecautions},
		{CapabilityWorkouts, cfg.Workouts, s.loadWorkouts},
		{CapabilityDiets, cfg.Diets, s.loadDiets},
	}

	for _, l := range loaders {
		if l.path == "" {
			s.markUnavailable(l.capability, ErrNotConfigured)
			log.Warn("reference table not configured", "table", string(l.capability))
			continue
		}

		t, err := readTable(l.path)
		if err == nil {
			err = l.load(t)
		}
		if err != nil {
			s.markUnavailable(l.capability, err)
			log.Error(err, "failed to load reference table", "table", string(l.capability), "path", l.path)
			continue
		}

		s.markLoaded(l.capability)
		log.Info("loaded reference table", "table", string(l.capability), "rows", len(t.rows))
	}
	return s
}

func (s *Store) loadMedicines(t *table) error {
	if err := t.require(model.ColumnName); err != nil {
		return err
	}
	for _, row := range t.rows {
		rec := model.MedicineRecord{
			Name:   t.get(row, model.ColumnName),
			Fields: make(map[string]string, len(t.header)),
		}
		for i, h := range t.header {
			if h == "" || h == model.ColumnName {
				continue
			}
			if v := cell(row, i); v != "" {
				rec.Fields[h] = v
			}
		}
		s.addMedicine(rec)
	}
	return nil
}

func (s *Store) loadAlternatives(t *table) error {
	if err := t.require("drug_name"); err != nil {
		return err
	}
	for _, row := range t.rows {
		name := t.get(row, "drug_name")
		if name == "" {
			continue
		}
		desc := t.get(row, "description")
		if desc == "" {
			desc = noDescription
		}
		reason := t.get(row, "reason")
		if reason == "" {
			reason = noReason
		}
		s.alternatives = append(s.alternatives, model.AlternativeCandidate{
			Name:        name,
			Price:       ParsePrice(t.get(row, "price")),
			Description: desc,
			Reason:      reason,
		})
	}
	return nil
}

func (s *Store) loadDescriptions(t *table) error {
	if err := t.require("disease", "description"); err != nil {
		return err
	}
	s.diseases.Descriptions = make(map[string]string)
	for _, row := range t.rows {
		putFirst(s.diseases.Descriptions, t.get(row, "disease"), t.get(row, "description"))
	}
	return nil
}

func (s *Store) loadMedications(t *table) error {
	if err := t.require("disease", "medication"); err != nil {
		return err
	}
	s.diseases.Medications = make(map[string]string)
	for _, row := range t.rows {
		putFirst(s.diseases.Medications, t.get(row, "disease"), t.get(row, "medication"))
	}
	return nil
}

func (s *Store) loadPrecautions(t *table) error {
	if err := t.require("disease"); err != nil {
		return err
	}
	cols := t.columnsWithPrefix("precaution")
	if len(cols) == 0 {
		return fmt.Errorf("missing precaution columns")
	}

	s.diseases.Precautions = make(map[string][]string)
	for _, row := range t.rows {
		var items []string
		for _, i := range cols {
			if v := cell(row, i); v != "" {
				items = append(items, v)
			}
		}
		putFirst(s.diseases.Precautions, t.get(row, "disease"), items)
	}
	return nil
}

func (s *Store) loadWorkouts(t *table) error {
	if err := t.require("disease", "workout"); err != nil {
		return err
	}
	s.diseases.Workouts = make(map[string][]string)
	for _, row := range t.rows {
		key := textutil.NormalizeKey(t.get(row, "disease"))
		if key == "" {
			continue
		}
		items := s.diseases.Workouts[key]
		if v := t.get(row, "workout"); v != "" {
			items = append(items, v)
		}
		s.diseases.Workouts[key] = items
	}
	return nil
}

func (s *Store) loadDiets(t *table) error {
	if err := t.require("disease"); err != nil {
		return err
	}
	// The diet column is conventionally the second one whatever its header.
	col, ok := t.cols["diet"]
	if !ok {
		col = 1
	}
	s.diseases.Diets = make(map[string]string)
	for _, row := range t.rows {
		putFirst(s.diseases.Diets, t.get(row, "disease"), cell(row, col))
	}
	return nil
}

func putFirst[V any](m map[string]V, disease string, v V) {
	key := textutil.NormalizeKey(disease)
	if key == "" {
		return
	}
	if _, dup := m[key]; !dup {
		m[key] = v
	}
}

var priceNoise = regexp.MustCompile(`(?i)rs\.?|₹|inr|,`)

// ParsePrice reads catalog prices such as "Rs. 1,250" or "₹30". Anything
// unparseable is +Inf so unpriced entries sort last.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(priceNoise.ReplaceAllString(s, ""))
	if s == "" {
		return math.Inf(1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}
