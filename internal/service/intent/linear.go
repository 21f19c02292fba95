package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// LinearModel is a TF-IDF vectorizer followed by a logistic regression,
// exported from scikit-learn as JSON.
type LinearModel struct {
	Classes     []string       `json:"classes"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Coef        [][]float64    `json:"coef"`
	Intercept   []float64      `json:"intercept"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
}

// LoadLinearModel reads and validates a model file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent model: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode intent model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid intent model: %w", err)
	}
	return &m, nil
}

func (m *LinearModel) Validate() error {
	if len(m.Classes) < 2 {
		return errors.New("need at least two classes")
	}
	if m.NgramRange == [2]int{} {
		m.NgramRange = [2]int{1, 1}
	}
	if m.NgramRange[0] < 1 || m.NgramRange[1] < m.NgramRange[0] {
		return fmt.Errorf("bad ngram_range %v", m.NgramRange)
	}
	switch m.Norm {
	case "", "l2", "l1", "none":
	default:
		return fmt.Errorf("unsupported norm %q", m.Norm)
	}

	n := len(m.IDF)
	for term, idx := range m.Vocabulary {
		if idx < 0 || idx >= n {
			return fmt.Errorf("term %q has index %d outside idf length %d", term, idx, n)
		}
	}

	rows := len(m.Classes)
	if rows == 2 {
		rows = 1
	}
	if len(m.Coef) != rows || len(m.Intercept) != rows {
		return fmt.Errorf("expected %d coefficient rows, got %d coef and %d intercept", rows, len(m.Coef), len(m.Intercept))
	}
	for i, row := range m.Coef {
		if len(row) != n {
			return fmt.Errorf("coef row %d has %d weights, want %d", i, len(row), n)
		}
	}
	return nil
}

func (m *LinearModel) Predict(text string) (string, error) {
	x := m.transform(text)

	if len(m.Coef) == 1 {
		if m.score(0, x) > 0 {
			return m.Classes[1], nil
		}
		return m.Classes[0], nil
	}

	best, bestScore := 0, math.Inf(-1)
	for i := range m.Coef {
		if s := m.score(i, x); s > bestScore {
			best, bestScore = i, s
		}
	}
	return m.Classes[best], nil
}

func (m *LinearModel) score(row int, x map[int]float64) float64 {
	s := m.Intercept[row]
	for idx, v := range x {
		s += m.Coef[row][idx] * v
	}
	return s
}

// transform returns the sparse TF-IDF vector of text.
func (m *LinearModel) transform(text string) map[int]float64 {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)

	x := make(map[int]float64)
	for n := m.NgramRange[0]; n <= m.NgramRange[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if idx, ok := m.Vocabulary[strings.Join(tokens[i:i+n], " ")]; ok {
				x[idx]++
			}
		}
	}

	for idx, tf := range x {
		if m.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		x[idx] = tf * m.IDF[idx]
	}

	var norm float64
	switch m.Norm {
	case "", "l2":
		for _, v := range x {
			norm += v * v
		}
		norm = math.Sqrt(norm)
	case "l1":
		for _, v := range x {
			norm += math.Abs(v)
		}
	}
	if norm > 0 {
		for idx := range x {
			x[idx] /= norm
		}
	}
	return x
}
