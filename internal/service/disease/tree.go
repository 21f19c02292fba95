// Package disease predicts a disease from a symptom vector and looks up the
// guidance attached to it.
package disease

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SchemaVersion is the tree artifact layout this package reads.
const SchemaVersion = 1

var ErrInvalidModel = errors.New("invalid disease model")

// Classifier maps a feature vector to a disease label.
type Classifier interface {
	Predict(features []float64) (string, error)
}

type treeArtifact struct {
	SchemaVersion      int    `json:"schema_version"`
	FeatureFingerprint string `json:"feature_fingerprint"`
	NFeatures          int    `json:"n_features"`
	NClasses           int    `json:"n_classes"`
	Tree               struct {
		ChildrenLeft  []int       `json:"children_left"`
		ChildrenRight []int       `json:"children_right"`
		Feature       []int       `json:"feature"`
		Threshold     []float64   `json:"threshold"`
		Value         [][]float64 `json:"value"`
	} `json:"tree"`
}

// TreeClassifier evaluates a decision tree exported from scikit-learn.
type TreeClassifier struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	value     [][]float64
	labels    []string
	columns   []string
}

// Fingerprint identifies a feature column list: the hex SHA-256 of the
// names joined with newlines.
func Fingerprint(columns []string) string {
	sum := sha256.Sum256([]byte(strings.Join(columns, "\n")))
	return hex.EncodeToString(sum[:])
}

// LoadTree reads the model, label and column artifacts and checks that they
// belong together.
func LoadTree(modelPath, labelsPath, columnsPath string) (*TreeClassifier, error) {
	var (
		art     treeArtifact
		labels  []string
		columns []string
	)
	if err := readJSON(modelPath, &art); err != nil {
		return nil, err
	}
	if err := readJSON(labelsPath, &labels); err != nil {
		return nil, err
	}
	if err := readJSON(columnsPath, &columns); err != nil {
		return nil, err
	}
	return newTree(art, labels, columns)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidModel, path, err)
	}
	return nil
}

// newTree validates an artifact against its labels and columns.
func newTree(art treeArtifact, labels, columns []string) (*TreeClassifier, error) {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...))
	}

	if art.SchemaVersion != SchemaVersion {
		return nil, invalid("unsupported schema version %d", art.SchemaVersion)
	}
	if len(columns) == 0 || len(columns) != art.NFeatures {
		return nil, invalid("model expects %d features, column list has %d", art.NFeatures, len(columns))
	}
	if fp := Fingerprint(columns); fp != art.FeatureFingerprint {
		return nil, invalid("feature fingerprint mismatch: model %s, columns %s", art.FeatureFingerprint, fp)
	}
	if len(labels) == 0 || len(labels) != art.NClasses {
		return nil, invalid("model has %d classes, label list has %d", art.NClasses, len(labels))
	}

	t := art.Tree
	n := len(t.ChildrenLeft)
	if n == 0 {
		return nil, invalid("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return nil, invalid("tree arrays differ in length")
	}

	for i := 0; i < n; i++ {
		if len(t.Value[i]) != art.NClasses {
			return nil, invalid("node %d has %d class values, want %d", i, len(t.Value[i]), art.NClasses)
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == -1 && r == -1 {
			continue
		}
		// Children always follow their parent, so walks terminate.
		if l <= i || l >= n || r <= i || r >= n {
			return nil, invalid("node %d has children %d/%d outside the tree", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= art.NFeatures {
			return nil, invalid("node %d splits on feature %d of %d", i, f, art.NFeatures)
		}
	}

	return &TreeClassifier{
		left:      t.ChildrenLeft,
		right:     t.ChildrenRight,
		feature:   t.Feature,
		threshold: t.Threshold,
		value:     t.Value,
		labels:    labels,
		columns:   columns,
	}, nil
}

// Columns returns the feature columns in model order.
func (t *TreeClassifier) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Labels returns every label the tree can emit.
func (t *TreeClassifier) Labels() []string {
	return append([]string(nil), t.labels...)
}

func (t *TreeClassifier) Predict(features []float64) (string, error) {
	if len(features) != len(t.columns) {
		return "", fmt.Errorf("expected %d features, got %d", len(t.columns), len(features))
	}

	node := 0
	for t.left[node] != -1 {
		if features[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}

	best := 0
	for i, v := range t.value[node] {
		if v > t.value[node][best] {
			best = i
		}
	}
	return t.labels[best], nil
}
