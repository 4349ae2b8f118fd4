// Package monster provides monster template definitions, level rescaling,
// and the in-memory catalog the battle engine reads stat blocks from.
package monster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Muggle-mew/Urba/internal/game/combat"
)

// Attributes holds the five combat ability scores for a monster template.
type Attributes struct {
	Strength     int `yaml:"strength"`
	Agility      int `yaml:"agility"`
	Intuition    int `yaml:"intuition"`
	Will         int `yaml:"will"`
	Constitution int `yaml:"constitution"`
}

// Template defines a reusable monster stat block loaded from YAML.
type Template struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	ZoneID      string     `yaml:"zone"`
	Level       int        `yaml:"level"`
	MaxHP       int        `yaml:"max_hp"`
	Attributes  Attributes `yaml:"attributes"`
	ExpReward   int        `yaml:"exp_reward"`
	MoneyReward int        `yaml:"money_reward"`
	Image       string     `yaml:"image"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// MaxHP >= 1, all attributes are >= 0, and rewards are >= 0; returns an
// error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("monster template %q: level must be >= 1", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("monster template %q: max_hp must be >= 1", t.ID)
	}
	for name, v := range map[string]int{
		"strength":     t.Attributes.Strength,
		"agility":      t.Attributes.Agility,
		"intuition":    t.Attributes.Intuition,
		"will":         t.Attributes.Will,
		"constitution": t.Attributes.Constitution,
	} {
		if v < 0 {
			return fmt.Errorf("monster template %q: %s must be >= 0, got %d", t.ID, name, v)
		}
	}
	if t.ExpReward < 0 || t.MoneyReward < 0 {
		return fmt.Errorf("monster template %q: rewards must be >= 0", t.ID)
	}
	return nil
}

// AtLevel returns a copy of the template rescaled to the target level: every
// numeric attribute and reward is multiplied by targetLevel/baseLevel and
// floored. Pure derivation; the receiver is never mutated.
//
// Precondition: targetLevel must be >= 1.
// Postcondition: the returned template has Level == targetLevel; the
// receiver is unchanged. Returns the receiver itself when targetLevel
// equals the base level.
func (t *Template) AtLevel(targetLevel int) *Template {
	if targetLevel == t.Level {
		return t
	}
	base := t.Level
	if base < 1 {
		base = 1
	}
	mult := float64(targetLevel) / float64(base)

	scaled := *t
	scaled.Level = targetLevel
	scaled.MaxHP = int(float64(t.MaxHP) * mult)
	scaled.Attributes = Attributes{
		Strength:     int(float64(t.Attributes.Strength) * mult),
		Agility:      int(float64(t.Attributes.Agility) * mult),
		Intuition:    int(float64(t.Attributes.Intuition) * mult),
		Will:         int(float64(t.Attributes.Will) * mult),
		Constitution: int(float64(t.Attributes.Constitution) * mult),
	}
	scaled.ExpReward = int(float64(t.ExpReward) * mult)
	scaled.MoneyReward = int(float64(t.MoneyReward) * mult)
	return &scaled
}

// Fighter builds an NPC combat fighter from this template.
//
// The instance id is the stable participant identity for the battle's
// lifetime; it is synthesized by the caller and never indexed for reconnect.
//
// Precondition: instanceID must be non-empty.
// Postcondition: the fighter starts at full HP with Kind == KindNPC.
func (t *Template) Fighter(instanceID string) *combat.Fighter {
	return &combat.Fighter{
		ID:     instanceID,
		ConnID: instanceID,
		Kind:   combat.KindNPC,
		Name:   t.Name,
		Level:  t.Level,
		HP:     t.MaxHP,
		MaxHP:  t.MaxHP,
		Attributes: combat.Attributes{
			Strength:     t.Attributes.Strength,
			Agility:      t.Attributes.Agility,
			Intuition:    t.Attributes.Intuition,
			Will:         t.Attributes.Will,
			Constitution: t.Attributes.Constitution,
		},
		TemplateID:  t.ID,
		ExpReward:   t.ExpReward,
		MoneyReward: t.MoneyReward,
	}
}

// LoadTemplateFromBytes parses a single monster template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
