package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Quantity is either a packaged catalog tier ("5kg") or a custom weight in
// grams produced by the blend calculator. Exactly one side is set.
type Quantity struct {
	tier  string
	grams float64
}

// TierQuantity returns a quantity for a packaged tier label.
func TierQuantity(label string) Quantity {
	return Quantity{tier: label}
}

// CustomGrams returns a quantity for an exact weight.
func CustomGrams(grams float64) Quantity {
	return Quantity{grams: grams}
}

// Tier returns the tier label when q is a tier quantity.
func (q Quantity) Tier() (string, bool) {
	return q.tier, q.tier != ""
}

// Grams returns the custom weight when q is a custom quantity.
func (q Quantity) Grams() (float64, bool) {
	return q.grams, q.tier == "" && q.grams > 0
}

// Label renders the quantity for receipts: the tier label, or "<n>g".
func (q Quantity) Label() string {
	if q.tier != "" {
		return q.tier
	}
	return strconv.FormatFloat(q.grams, 'f', -1, 64) + "g"
}

func (q Quantity) String() string {
	return q.Label()
}

type quantityJSON struct {
	Tier  string  `json:"tier,omitempty"`
	Grams float64 `json:"grams,omitempty"`
}

// MarshalJSON encodes {"tier":"5kg"} or {"grams":750}.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.tier != "" {
		return json.Marshal(quantityJSON{Tier: q.tier})
	}
	return json.Marshal(quantityJSON{Grams: q.grams})
}

// UnmarshalJSON accepts the object form written by MarshalJSON.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var raw quantityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode quantity: %w", err)
	}
	switch {
	case raw.Tier != "" && raw.Grams != 0:
		return errors.New("quantity must set either tier or grams, not both")
	case raw.Tier != "":
		*q = TierQuantity(raw.Tier)
	case raw.Grams > 0:
		*q = CustomGrams(raw.Grams)
	default:
		return errors.New("quantity must set tier or a positive grams value")
	}
	return nil
}
