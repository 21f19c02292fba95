// Package intent classifies a chat message into one of the handled intents.
package intent

import (
	"strings"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/logger"
)

// Model predicts an intent label for normalized text.
type Model interface {
	Predict(text string) (string, error)
}

type Classifier struct {
	model Model
	log   *logger.Logger
}

// NewClassifier wraps m. A nil model classifies everything as general.
func NewClassifier(m Model, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{model: m, log: log}
}

// Classify never fails: model errors and unknown labels become general.
func (c *Classifier) Classify(text string) model.Intent {
	if c.model == nil {
		return model.IntentGeneral
	}

	label, err := c.model.Predict(strings.ToLower(strings.TrimSpace(text)))
	if err != nil {
		c.log.Error(err, "intent prediction failed")
		return model.IntentGeneral
	}

	intent, ok := model.ParseIntent(label)
	if !ok {
		c.log.Warn("intent model returned unknown label", "label", label)
	}
	return intent
}
