package disease

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/internal/refdata"
)

var (
	testColumns = []string{"itching", "skin_rash", "high_fever"}
	testLabels  = []string{"Fungal infection", "Malaria", "Allergy"}
)

func testArtifact() treeArtifact {
	var art treeArtifact
	art.SchemaVersion = SchemaVersion
	art.FeatureFingerprint = Fingerprint(testColumns)
	art.NFeatures = len(testColumns)
	art.NClasses = len(testLabels)
	art.Tree.ChildrenLeft = []int{1, 3, -1, -1, -1}
	art.Tree.ChildrenRight = []int{2, 4, -1, -1, -1}
	art.Tree.Feature = []int{0, 2, -2, -2, -2}
	art.Tree.Threshold = []float64{0.5, 0.5, -2, -2, -2}
	art.Tree.Value = [][]float64{{5, 4, 4}, {0, 4, 4}, {5, 0, 0}, {0, 0, 3}, {0, 4, 1}}
	return art
}

func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadTreeAndPredict(t *testing.T) {
	dir := t.TempDir()
	tree, err := LoadTree(
		writeJSON(t, dir, "model.json", testArtifact()),
		writeJSON(t, dir, "labels.json", testLabels),
		writeJSON(t, dir, "columns.json", testColumns),
	)
	require.NoError(t, err)
	assert.Equal(t, testColumns, tree.Columns())
	assert.Equal(t, testLabels, tree.Labels())

	tests := []struct {
		features []float64
		want     string
	}{
		{[]float64{1, 0, 0}, "Fungal infection"},
		{[]float64{1, 1, 1}, "Fungal infection"},
		{[]float64{0, 1, 0}, "Allergy"},
		{[]float64{0, 0, 1}, "Malaria"},
	}
	for _, tt := range tests {
		got, err := tree.Predict(tt.features)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err = tree.Predict([]float64{1})
	assert.Error(t, err)
}

func TestLoadTreeRejectsMismatches(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*treeArtifact)
		labels  []string
		columns []string
	}{
		"schema version":     {mutate: func(a *treeArtifact) { a.SchemaVersion = 2 }},
		"fingerprint":        {mutate: func(a *treeArtifact) { a.FeatureFingerprint = "deadbeef" }},
		"reordered columns":  {columns: []string{"skin_rash", "itching", "high_fever"}},
		"too few labels":     {labels: []string{"Malaria"}},
		"feature index":      {mutate: func(a *treeArtifact) { a.Tree.Feature[1] = 7 }},
		"child out of range": {mutate: func(a *treeArtifact) { a.Tree.ChildrenRight[0] = 9 }},
		"child loops back":   {mutate: func(a *treeArtifact) { a.Tree.ChildrenLeft[1] = 0 }},
		"value width":        {mutate: func(a *treeArtifact) { a.Tree.Value[2] = []float64{1, 2} }},
		"ragged arrays":      {mutate: func(a *treeArtifact) { a.Tree.Threshold = a.Tree.Threshold[:2] }},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			art := testArtifact()
			if tt.mutate != nil {
				tt.mutate(&art)
			}
			labels, columns := testLabels, testColumns
			if tt.labels != nil {
				labels = tt.labels
			}
			if tt.columns != nil {
				columns = tt.columns
			}

			_, err := newTree(art, labels, columns)
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}
}

func TestLoadTreeMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTree(filepath.Join(dir, "nope.json"), "", "")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadTree(bad, bad, bad)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]string{"a", "b"}), Fingerprint([]string{"a", "b"}))
	assert.NotEqual(t, Fingerprint([]string{"a", "b"}), Fingerprint([]string{"b", "a"}))
	assert.Len(t, Fingerprint(nil), 64)
}

type failingClassifier struct{}

func (failingClassifier) Predict([]float64) (string, error) {
	return "", errors.New("boom")
}

func newTestStore() *refdata.Store {
	return refdata.New(refdata.WithDiseaseTables(refdata.DiseaseTables{
		Descriptions: map[string]string{"Fungal infection": "A skin infection."},
		Medications: map[string]string{
			"fungal infection": "['Antifungal Cream', ' Fluconazole ', '']",
			"malaria":          "['Chloroquine'",
			"allergy":          "[]",
		},
		Precautions: map[string][]string{"fungal infection": {"bath twice", "keep dry"}, "malaria": {}},
		Workouts:    map[string][]string{"fungal infection": {"Stay hydrated"}},
	}))
}

func TestPredictorLookups(t *testing.T) {
	p := NewPredictor(nil, newTestStore(), nil)

	l := p.Description(" FUNGAL   infection ")
	assert.Equal(t, StatusFound, l.Status)
	assert.Equal(t, []string{"A skin infection."}, l.Items)

	l = p.Description("malaria")
	assert.Equal(t, StatusMissing, l.Status)
	assert.Equal(t, []string{NoDescription}, l.Items)

	l = p.Medications("Fungal infection")
	assert.Equal(t, StatusFound, l.Status)
	assert.Equal(t, []string{"Antifungal Cream", "Fluconazole"}, l.Items)

	l = p.Medications("Malaria")
	assert.Equal(t, StatusMalformed, l.Status)
	require.Len(t, l.Items, 1)
	assert.True(t, strings.HasPrefix(l.Items[0], "❌ Error fetching medication: "))
	assert.ErrorIs(t, l.Err, refdata.ErrMalformedList)

	l = p.Medications("Allergy")
	assert.Equal(t, StatusMissing, l.Status)
	assert.Equal(t, []string{NoMedication}, l.Items)

	l = p.Precautions("Malaria")
	assert.Equal(t, StatusMissing, l.Status)
	assert.Equal(t, []string{NoPrecautions}, l.Items)

	assert.Equal(t, []string{"Stay hydrated"}, p.Workouts("fungal infection").Items)
	assert.Equal(t, []string{NoWorkouts}, p.Workouts("malaria").Items)

	l = p.Diets("Fungal infection")
	assert.Equal(t, StatusUnavailable, l.Status)
	assert.Equal(t, []string{NoDiet}, l.Items)
}

func TestPredictorMalformedDiet(t *testing.T) {
	store := refdata.New(refdata.WithDiseaseTables(refdata.DiseaseTables{
		Diets: map[string]string{"malaria": "not a list"},
	}))
	l := NewPredictor(nil, store, nil).Diets("Malaria")

	assert.Equal(t, StatusMalformed, l.Status)
	assert.True(t, strings.HasPrefix(l.Items[0], "Error fetching diets: "))
}

func TestPredictorPredict(t *testing.T) {
	_, ok := NewPredictor(nil, newTestStore(), nil).Predict([]float64{1})
	assert.False(t, ok)

	_, ok = NewPredictor(failingClassifier{}, newTestStore(), nil).Predict([]float64{1})
	assert.False(t, ok)

	tree, err := newTree(testArtifact(), testLabels, testColumns)
	require.NoError(t, err)
	got, ok := NewPredictor(tree, newTestStore(), nil).Predict([]float64{1, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, "Fungal infection", got)
}

func TestCheckConsistency(t *testing.T) {
	p := NewPredictor(nil, newTestStore(), nil)

	missing := p.CheckConsistency(testLabels)

	assert.Equal(t, []string{"Malaria", "Allergy"}, missing[refdata.CapabilityDescriptions])
	assert.Equal(t, []string{"Allergy"}, missing[refdata.CapabilityPrecautions])
	assert.Empty(t, missing[refdata.CapabilityMedications])
	assert.NotContains(t, missing, refdata.CapabilityDiets)
}
