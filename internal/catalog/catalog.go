// Package catalog holds the restoration model cards and the quality presets
// that map a tier to a detector/restorer/refiner triple.
package catalog

import (
	"fmt"
	"strings"

	"vistora/internal/domain"
)

// Role is the pipeline slot a model fills.
type Role string

const (
	RoleDetector Role = "detector"
	RoleRestorer Role = "restorer"
	RoleRefiner  Role = "refiner"
)

// Card describes one model.
type Card struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Role      Role   `json:"role" yaml:"role" toml:"role"`
	Family    string `json:"family" yaml:"family" toml:"family"`
	Objective string `json:"objective" yaml:"objective" toml:"objective"`
	Maturity  string `json:"maturity" yaml:"maturity" toml:"maturity"`
	Notes     string `json:"notes,omitempty" yaml:"notes" toml:"notes"`
}

// Preset maps a quality tier to its model triple. Refiner may be empty.
type Preset struct {
	Tier     domain.QualityTier `json:"tier" yaml:"tier" toml:"tier"`
	Detector string             `json:"detector_model" yaml:"detector_model" toml:"detector_model"`
	Restorer string             `json:"restorer_model" yaml:"restorer_model" toml:"restorer_model"`
	Refiner  string             `json:"refiner_model,omitempty" yaml:"refiner_model" toml:"refiner_model"`
	Notes    string             `json:"notes,omitempty" yaml:"notes" toml:"notes"`
}

// Triple is a resolved model selection.
type Triple struct {
	Detector string `json:"detector_model"`
	Restorer string `json:"restorer_model"`
	Refiner  string `json:"refiner_model,omitempty"`
}

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	cards   []Card
	byID    map[string]Card
	presets []Preset
	byTier  map[domain.QualityTier]Preset
}

// New validates that every preset references known cards in the right role.
func New(cards []Card, presets []Preset) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]Card, len(cards)),
		byTier: make(map[domain.QualityTier]Preset, len(presets)),
	}
	for _, card := range cards {
		card.ID = strings.TrimSpace(card.ID)
		if card.ID == "" {
			return nil, fmt.Errorf("model card without id")
		}
		switch card.Role {
		case RoleDetector, RoleRestorer, RoleRefiner:
		default:
			return nil, fmt.Errorf("model %q: unknown role %q", card.ID, card.Role)
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", card.ID)
		}
		c.byID[card.ID] = card
		c.cards = append(c.cards, card)
	}
	for _, p := range presets {
		if _, dup := c.byTier[p.Tier]; dup {
			return nil, fmt.Errorf("duplicate preset for tier %q", p.Tier)
		}
		if err := c.checkRole(p.Detector, RoleDetector); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Tier, err)
		}
		if err := c.checkRole(p.Restorer, RoleRestorer); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Tier, err)
		}
		if p.Refiner != "" {
			if err := c.checkRole(p.Refiner, RoleRefiner); err != nil {
				return nil, fmt.Errorf("preset %s: %w", p.Tier, err)
			}
		}
		c.byTier[p.Tier] = p
		c.presets = append(c.presets, p)
	}
	if len(c.presets) == 0 {
		return nil, fmt.Errorf("catalog has no presets")
	}
	return c, nil
}

func (c *Catalog) checkRole(id string, role Role) error {
	card, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownModel, id)
	}
	if card.Role != role {
		return fmt.Errorf("%w: %q is a %s, not a %s", domain.ErrUnknownModel, id, card.Role, role)
	}
	return nil
}

// Resolve returns the preset triple for tier.
func (c *Catalog) Resolve(tier domain.QualityTier) (Triple, error) {
	p, ok := c.byTier[tier]
	if !ok {
		return Triple{}, fmt.Errorf("%w: %q", domain.ErrUnknownTier, tier)
	}
	return Triple{Detector: p.Detector, Restorer: p.Restorer, Refiner: p.Refiner}, nil
}

// ResolveWithOverrides applies explicit model ids field by field on top of the
// tier preset. Empty detector/restorer mean "use the preset". A nil refiner uses
// the preset; a pointer to "" disables refinement.
func (c *Catalog) ResolveWithOverrides(tier domain.QualityTier, detector, restorer string, refiner *string) (Triple, error) {
	t, err := c.Resolve(tier)
	if err != nil {
		return Triple{}, err
	}
	if d := strings.TrimSpace(detector); d != "" {
		if err := c.checkRole(d, RoleDetector); err != nil {
			return Triple{}, err
		}
		t.Detector = d
	}
	if r := strings.TrimSpace(restorer); r != "" {
		if err := c.checkRole(r, RoleRestorer); err != nil {
			return Triple{}, err
		}
		t.Restorer = r
	}
	if refiner != nil {
		ref := strings.TrimSpace(*refiner)
		if ref != "" {
			if err := c.checkRole(ref, RoleRefiner); err != nil {
				return Triple{}, err
			}
		}
		t.Refiner = ref
	}
	return t, nil
}

// Card looks up a model card by id.
func (c *Catalog) Card(id string) (Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

func (c *Catalog) Cards() []Card {
	return append([]Card(nil), c.cards...)
}

func (c *Catalog) Presets() []Preset {
	return append([]Preset(nil), c.presets...)
}

// Tiers lists tiers in preset order.
func (c *Catalog) Tiers() []domain.QualityTier {
	out := make([]domain.QualityTier, 0, len(c.presets))
	for _, p := range c.presets {
		out = append(out, p.Tier)
	}
	return out
}

// HasTier reports whether a preset exists for tier.
func (c *Catalog) HasTier(tier domain.QualityTier) bool {
	_, ok := c.byTier[tier]
	return ok
}
