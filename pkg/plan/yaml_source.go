package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
)

// catalogNamespace seeds deterministic IDs for catalog entries that do
// not declare one, so repeated loads of the same file agree on IDs.
var catalogNamespace = uuid.MustParse("8b1f3b46-2c74-5d1a-9c67-11d4a36c0a5e")

// yamlSource implements Source over YAML catalog files.
type yamlSource struct {
	paths []string
}

// NewYAMLSource returns a Source that reads and validates the given
// catalog files on every Load, so edited files are picked up without a
// restart.
func NewYAMLSource(paths ...string) Source {
	if len(paths) == 0 {
		panic("plan: yaml source requires at least one catalog file")
	}
	return &yamlSource{paths: paths}
}

func (s *yamlSource) Load(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalog, err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalog, err)
		}
		parsed, err := ParseCatalog(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		plans = append(plans, parsed...)
	}
	if err := ValidateCatalog(plans); err != nil {
		return nil, err
	}
	return plans, nil
}

type yamlCatalog struct {
	Plans []yamlPlan `yaml:"plans"`
}

type yamlPlan struct {
	ID          string        `yaml:"id"`
	Slug        string        `yaml:"slug"`
	Name        any           `yaml:"name"`
	Description any           `yaml:"description"`
	Active      *bool         `yaml:"active"`
	SortOrder   int           `yaml:"sort_order"`
	Pricings    []yamlPricing `yaml:"pricings"`
	Features    []yamlFeature `yaml:"features"`
}

type yamlPricing struct {
	ID           string      `yaml:"id"`
	Label        string      `yaml:"label"`
	DurationDays int         `yaml:"duration_days"`
	Price        yamlMoney   `yaml:"price"`
	BestOffer    bool        `yaml:"best_offer"`
	Prices       []yamlMoney `yaml:"prices"`
}

type yamlMoney struct {
	Currency string `yaml:"currency"`
	Amount   int64  `yaml:"amount"`
}

type yamlFeature struct {
	Key         string `yaml:"key"`
	Name        any    `yaml:"name"`
	Description any    `yaml:"description"`
	Value       any    `yaml:"value"`
	ResetPeriod string `yaml:"reset_period"`
}

// ParseCatalog decodes one YAML catalog document into plans. Entries
// without an explicit id get a deterministic one derived from the slug
// (and pricing label), so reloading the same file yields the same IDs.
func ParseCatalog(raw []byte) ([]Plan, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToParseCatalog, err)
	}

	now := time.Now().UTC()
	plans := make([]Plan, 0, len(doc.Plans))
	for _, yp := range doc.Plans {
		p, err := yp.toPlan(now)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (yp yamlPlan) toPlan(now time.Time) (Plan, error) {
	id, err := catalogID(yp.ID, "plan/"+yp.Slug)
	if err != nil {
		return Plan{}, err
	}

	name, err := encodeCatalogValue(yp.Name, "name", yp.Slug)
	if err != nil {
		return Plan{}, err
	}
	desc, err := encodeCatalogValue(yp.Description, "description", yp.Slug)
	if err != nil {
		return Plan{}, err
	}

	active := true
	if yp.Active != nil {
		active = *yp.Active
	}

	p := Plan{
		ID:          id,
		Slug:        yp.Slug,
		Name:        name,
		Description: desc,
		Active:      active,
		SortOrder:   yp.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, ypr := range yp.Pricings {
		prID, err := catalogID(ypr.ID, "pricing/"+yp.Slug+"/"+ypr.Label)
		if err != nil {
			return Plan{}, err
		}
		pricing := Pricing{
			ID:           prID,
			PlanID:       id,
			Label:        ypr.Label,
			DurationDays: ypr.DurationDays,
			Price:        Money{Currency: ypr.Price.Currency, Amount: ypr.Price.Amount},
			BestOffer:    ypr.BestOffer,
		}
		for _, price := range ypr.Prices {
			pricing.Prices = append(pricing.Prices, Price{Currency: price.Currency, Amount: price.Amount})
		}
		p.Pricings = append(p.Pricings, pricing)
	}

	for _, yf := range yp.Features {
		name, err := encodeCatalogValue(yf.Name, "feature name", yp.Slug+"/"+yf.Key)
		if err != nil {
			return Plan{}, err
		}
		desc, err := encodeCatalogValue(yf.Description, "feature description", yp.Slug+"/"+yf.Key)
		if err != nil {
			return Plan{}, err
		}
		value, err := encodeCatalogValue(yf.Value, "feature value", yp.Slug+"/"+yf.Key)
		if err != nil {
			return Plan{}, err
		}
		reset := ResetPeriod(yf.ResetPeriod)
		if reset == "" {
			reset = ResetNever
		}
		p.Features = append(p.Features, Feature{
			Key:         yf.Key,
			Name:        name,
			Description: desc,
			Value:       value,
			ResetPeriod: reset,
		})
	}

	return p, nil
}

func catalogID(explicit, seed string) (uuid.UUID, error) {
	if explicit != "" {
		id, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, errors.Join(ErrFailedToParseCatalog, err)
		}
		return id, nil
	}
	return uuid.NewSHA1(catalogNamespace, []byte(seed)), nil
}

func encodeCatalogValue(raw any, field, entry string) (flexvalue.Value, error) {
	v, err := flexvalue.Encode(raw)
	if err != nil {
		return flexvalue.Value{}, fmt.Errorf("%w: %s of %s: %w", ErrFailedToParseCatalog, field, entry, err)
	}
	return v, nil
}
