package threat

import (
	"fmt"
	"os"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"vigil-worker-go/internal/models"
)

// Vocabulary groups labels by severity
type Vocabulary struct {
	High    []string `yaml:"high" json:"high_labels"`
	Notable []string `yaml:"notable" json:"notable_labels"`
}

// Classifier maps a frame's label set to a threat level. Vocabularies can be
// replaced at runtime.
type Classifier struct {
	mu      sync.RWMutex
	high    map[string]struct{}
	notable map[string]struct{}
}

func NewClassifier(vocab Vocabulary) *Classifier {
	c := &Classifier{}
	c.Reconfigure(vocab)
	return c
}

// Classify returns High when any label is in the high vocabulary and Low otherwise
func (c *Classifier) Classify(labels []string) models.ThreatLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, l := range labels {
		if _, ok := c.high[models.NormalizeLabel(l)]; ok {
			return models.ThreatLevelHigh
		}
	}
	// notable labels are tracked but do not raise the level
	return models.ThreatLevelLow
}

// IsHigh reports whether a single label is high severity
func (c *Classifier) IsHigh(label string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.high[models.NormalizeLabel(label)]
	return ok
}

// IsNotable reports whether a label is in the notable vocabulary
func (c *Classifier) IsNotable(label string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.notable[models.NormalizeLabel(label)]
	return ok
}

// Reconfigure replaces both vocabularies
func (c *Classifier) Reconfigure(vocab Vocabulary) {
	high, notable := toSet(vocab.High), toSet(vocab.Notable)

	c.mu.Lock()
	c.high, c.notable = high, notable
	c.mu.Unlock()
}

// Vocabulary returns the current vocabularies in sorted order
func (c *Classifier) Vocabulary() Vocabulary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Vocabulary{
		High:    models.SortedUniqueLabels(lo.Keys(c.high)),
		Notable: models.SortedUniqueLabels(lo.Keys(c.notable)),
	}
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l = models.NormalizeLabel(l); l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}

// LoadVocabulary reads a YAML file with "high" and "notable" lists
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read threat vocabulary: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return Vocabulary{}, fmt.Errorf("parse threat vocabulary %s: %w", path, err)
	}
	if len(vocab.High) == 0 {
		return Vocabulary{}, fmt.Errorf("threat vocabulary %s has no high labels", path)
	}
	return vocab, nil
}
