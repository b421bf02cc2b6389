package plan

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
)

var (
	slugRe       = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
	featureKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_.-]*$`)
)

// Plan is a sellable tier. It owns its pricing options and feature
// entitlements. Soft-deleted plans stay resolvable by ID so historical
// subscriptions keep their original terms.
type Plan struct {
	ID          uuid.UUID
	Slug        string
	Name        flexvalue.Value
	Description flexvalue.Value
	Active      bool
	SortOrder   int
	Pricings    []Pricing
	Features    []Feature
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Pricing is one purchasable duration/price combination for a plan.
// DurationDays of zero means lifetime access.
type Pricing struct {
	ID           uuid.UUID
	PlanID       uuid.UUID
	Label        string
	DurationDays int
	Price        Money
	BestOffer    bool
	Prices       []Price
}

// Price is a currency-specific amount for one pricing option.
type Price struct {
	Currency string // ISO 4217 currency code
	Amount   int64
}

// Feature is a named entitlement attached to a plan. Key is the join
// key against usage rows and must never change once subscriptions
// reference it.
type Feature struct {
	Key         string
	Name        flexvalue.Value
	Description flexvalue.Value
	Value       flexvalue.Value
	ResetPeriod ResetPeriod
}

// Metered reports whether the feature carries a numeric limit that can
// be consumed against. Null and non-numeric values are unbounded flags.
func (f Feature) Metered() bool {
	switch f.Value.Kind() {
	case flexvalue.KindInteger, flexvalue.KindFloat:
		return true
	}
	return false
}

// Limit returns the numeric cap for a metered feature. The second
// return is false when the feature has no numeric limit (null means
// unlimited, booleans and other shapes are flags). Float limits are
// truncated toward zero.
func (f Feature) Limit() (int64, bool) {
	switch f.Value.Kind() {
	case flexvalue.KindInteger:
		v, _ := f.Value.Int()
		return v, true
	case flexvalue.KindFloat:
		v, _ := f.Value.Float()
		return int64(v), true
	}
	return 0, false
}

// IsDeleted reports whether the plan was soft-deleted.
func (p Plan) IsDeleted() bool { return p.DeletedAt != nil }

// Sellable reports whether new subscriptions may reference the plan.
func (p Plan) Sellable() bool { return p.Active && !p.IsDeleted() }

// Feature returns the feature with the given key.
func (p Plan) Feature(key string) (Feature, bool) {
	for _, f := range p.Features {
		if f.Key == key {
			return f, true
		}
	}
	return Feature{}, false
}

// HasFeature reports whether the plan defines the feature key.
func (p Plan) HasFeature(key string) bool {
	_, ok := p.Feature(key)
	return ok
}

// FeatureSet returns the plan's features keyed by feature key.
func (p Plan) FeatureSet() map[string]Feature {
	out := make(map[string]Feature, len(p.Features))
	for _, f := range p.Features {
		out[f.Key] = f
	}
	return out
}

// Pricing returns the pricing option with the given id.
func (p Plan) Pricing(id uuid.UUID) (Pricing, bool) {
	for _, pr := range p.Pricings {
		if pr.ID == id {
			return pr, true
		}
	}
	return Pricing{}, false
}

// DefaultPricing picks the plan's representative pricing option
// deterministically: the lowest base amount wins, ties prefer the
// shortest paid duration (lifetime sorts last), then the label. Used
// for trial subscriptions and plan-change classification.
func (p Plan) DefaultPricing() (Pricing, bool) {
	if len(p.Pricings) == 0 {
		return Pricing{}, false
	}
	best := p.Pricings[0]
	for _, pr := range p.Pricings[1:] {
		if pricingLess(pr, best) {
			best = pr
		}
	}
	return best, true
}

func pricingLess(a, b Pricing) bool {
	if a.Price.Amount != b.Price.Amount {
		return a.Price.Amount < b.Price.Amount
	}
	ad, bd := durationRank(a), durationRank(b)
	if ad != bd {
		return ad < bd
	}
	return a.Label < b.Label
}

func durationRank(p Pricing) int {
	if p.Lifetime() {
		return math.MaxInt
	}
	return p.DurationDays
}

// Lifetime reports whether the pricing never expires.
func (pr Pricing) Lifetime() bool { return pr.DurationDays <= 0 }

// ExpiryFrom returns the end of a period purchased at t, or nil for
// lifetime pricing.
func (pr Pricing) ExpiryFrom(t time.Time) *time.Time {
	if pr.Lifetime() {
		return nil
	}
	end := t.AddDate(0, 0, pr.DurationDays)
	return &end
}

// PriceFor returns the amount for the requested currency, falling back
// to the base price when no currency-specific row exists.
func (pr Pricing) PriceFor(currency string) Money {
	currency = strings.ToUpper(currency)
	for _, p := range pr.Prices {
		if strings.ToUpper(p.Currency) == currency {
			return Money{Amount: p.Amount, Currency: currency}
		}
	}
	return pr.Price
}

// ClassifyChange compares the default prices of two plans: a higher
// target price is an upgrade, a lower one a downgrade, anything else
// lateral. Amounts compare within the catalog's base currency.
func ClassifyChange(from, to Plan) ChangeType {
	fromPricing, fromOK := from.DefaultPricing()
	toPricing, toOK := to.DefaultPricing()
	if !fromOK || !toOK {
		return ChangeLateral
	}
	switch {
	case toPricing.Price.Amount > fromPricing.Price.Amount:
		return ChangeUpgrade
	case toPricing.Price.Amount < fromPricing.Price.Amount:
		return ChangeDowngrade
	}
	return ChangeLateral
}

// Validate checks the plan's internal consistency before it enters a
// catalog: slug and feature key formats, pricing durations, amounts,
// and duplicate children.
func (p Plan) Validate() error {
	if !slugRe.MatchString(p.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, p.Slug)
	}
	if len(p.Pricings) == 0 {
		return fmt.Errorf("%w: %q", ErrNoPricings, p.Slug)
	}

	seenPricing := make(map[uuid.UUID]struct{}, len(p.Pricings))
	for _, pr := range p.Pricings {
		if pr.DurationDays < 0 {
			return fmt.Errorf("%w: pricing %q has negative duration", ErrInvalidDuration, pr.Label)
		}
		if pr.Price.Amount < 0 {
			return fmt.Errorf("%w: pricing %q has negative amount", ErrInvalidPrice, pr.Label)
		}
		if pr.ID != uuid.Nil {
			if _, dup := seenPricing[pr.ID]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicatePricing, pr.ID)
			}
			seenPricing[pr.ID] = struct{}{}
		}
		seenCurrency := make(map[string]struct{}, len(pr.Prices))
		for _, price := range pr.Prices {
			cur := strings.ToUpper(price.Currency)
			if len(cur) != 3 {
				return fmt.Errorf("%w: currency %q", ErrInvalidPrice, price.Currency)
			}
			if price.Amount < 0 {
				return fmt.Errorf("%w: %s amount is negative", ErrInvalidPrice, cur)
			}
			if _, dup := seenCurrency[cur]; dup {
				return fmt.Errorf("%w: %s on pricing %q", ErrDuplicateCurrency, cur, pr.Label)
			}
			seenCurrency[cur] = struct{}{}
		}
	}

	seenKey := make(map[string]struct{}, len(p.Features))
	for _, f := range p.Features {
		if !featureKeyRe.MatchString(f.Key) {
			return fmt.Errorf("%w: %q", ErrInvalidFeatureKey, f.Key)
		}
		if _, dup := seenKey[f.Key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateFeatureKey, f.Key)
		}
		seenKey[f.Key] = struct{}{}
		if f.ResetPeriod != "" && !f.ResetPeriod.Valid() {
			return fmt.Errorf("%w: %q on feature %q", ErrInvalidResetPeriod, f.ResetPeriod, f.Key)
		}
	}

	return nil
}

// Clone returns a deep copy so catalog sources can hand out plans
// without sharing mutable slices.
func (p Plan) Clone() Plan {
	out := p
	out.Pricings = make([]Pricing, len(p.Pricings))
	for i, pr := range p.Pricings {
		cp := pr
		cp.Prices = slices.Clone(pr.Prices)
		out.Pricings[i] = cp
	}
	out.Features = slices.Clone(p.Features)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		out.DeletedAt = &t
	}
	return out
}
