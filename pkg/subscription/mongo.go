package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

const (
	plansCollection         = "plans"
	subscriptionsCollection = "subscriptions"
	usagesCollection        = "subscription_usages"
)

// MongoStore is the mongo-backed Store. Plans are stored as single
// documents with embedded pricings and features. Localizable and
// flexible values are stored as their wire JSON so the document shape
// stays queryable without a custom codec.
type MongoStore struct {
	db     *mongo.Database
	client *mongo.Client
}

// NewMongoStore creates a store over the given database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("subscription: mongo database is required")
	}
	return &MongoStore{db: db, client: db.Client()}
}

// EnsureIndexes creates the indexes the store queries rely on. Call it
// once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(plansCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "deleted_at", Value: bson.D{{Key: "$exists", Value: false}}}}),
		},
	})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	_, err = s.db.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subscriber_type", Value: 1}, {Key: "subscriber_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
	})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	_, err = s.db.Collection(usagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subscription_id", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "last_used_at", Value: 1}}},
	})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// InTx runs fn inside a multi-document transaction, which requires the
// server to run as a replica set. Nested calls join the outer session.
func (s *MongoStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, s)
	})
	return err
}

type subscriptionDoc struct {
	ID             string     `bson:"_id"`
	SubscriberType string     `bson:"subscriber_type"`
	SubscriberID   string     `bson:"subscriber_id"`
	PlanID         string     `bson:"plan_id"`
	PricingID      string     `bson:"pricing_id"`
	Status         string     `bson:"status"`
	StartsAt       time.Time  `bson:"starts_at"`
	EndsAt         *time.Time `bson:"ends_at,omitempty"`
	TrialEndsAt    *time.Time `bson:"trial_ends_at,omitempty"`
	GraceEndsAt    *time.Time `bson:"grace_ends_at,omitempty"`
	AutoRenewal    bool       `bson:"auto_renewal"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func toSubscriptionDoc(sub *Subscription) subscriptionDoc {
	return subscriptionDoc{
		ID:             sub.ID.String(),
		SubscriberType: sub.Subscriber.Type,
		SubscriberID:   sub.Subscriber.ID.String(),
		PlanID:         sub.PlanID.String(),
		PricingID:      sub.PricingID.String(),
		Status:         string(sub.Status),
		StartsAt:       sub.StartsAt,
		EndsAt:         sub.EndsAt,
		TrialEndsAt:    sub.TrialEndsAt,
		GraceEndsAt:    sub.GraceEndsAt,
		AutoRenewal:    sub.AutoRenewal,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}

func (d subscriptionDoc) toEntity() (*Subscription, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	subscriberID, err := uuid.Parse(d.SubscriberID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	planID, err := uuid.Parse(d.PlanID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	pricingID, err := uuid.Parse(d.PricingID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &Subscription{
		ID:          id,
		Subscriber:  Ref{Type: d.SubscriberType, ID: subscriberID},
		PlanID:      planID,
		PricingID:   pricingID,
		Status:      lifecycle.Status(d.Status),
		StartsAt:    d.StartsAt.UTC(),
		EndsAt:      utcTime(d.EndsAt),
		TrialEndsAt: utcTime(d.TrialEndsAt),
		GraceEndsAt: utcTime(d.GraceEndsAt),
		AutoRenewal: d.AutoRenewal,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func (s *MongoStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	_, err := s.db.Collection(subscriptionsCollection).InsertOne(ctx, toSubscriptionDoc(sub))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *MongoStore) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	res, err := s.db.Collection(subscriptionsCollection).
		ReplaceOne(ctx, bson.M{"_id": sub.ID.String()}, toSubscriptionDoc(sub))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *MongoStore) SubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	var doc subscriptionDoc
	err := s.db.Collection(subscriptionsCollection).
		FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return doc.toEntity()
}

func (s *MongoStore) ActiveBySubscriber(ctx context.Context, ref Ref) (*Subscription, error) {
	var doc subscriptionDoc
	err := s.db.Collection(subscriptionsCollection).
		FindOne(ctx, bson.M{
			"subscriber_type": ref.Type,
			"subscriber_id":   ref.ID.String(),
			"status":          bson.M{"$in": statusStrings(lifecycle.ActiveFamily())},
		}, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return doc.toEntity()
}

func (s *MongoStore) ListBySubscriber(ctx context.Context, ref Ref) ([]*Subscription, error) {
	return s.findSubscriptions(ctx, bson.M{
		"subscriber_type": ref.Type,
		"subscriber_id":   ref.ID.String(),
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
}

func (s *MongoStore) ListByStatus(ctx context.Context, statuses ...lifecycle.Status) ([]*Subscription, error) {
	filter := bson.M{}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(statuses)}
	}
	return s.findSubscriptions(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
}

func (s *MongoStore) ExpiringWithin(ctx context.Context, at time.Time, days int) ([]*Subscription, error) {
	return s.findSubscriptions(ctx, bson.M{
		"status":  bson.M{"$in": statusStrings(lifecycle.ActiveFamily())},
		"ends_at": bson.M{"$gte": at, "$lte": at.Add(time.Duration(days) * 24 * time.Hour)},
	}, options.Find().SetSort(bson.D{{Key: "ends_at", Value: 1}}))
}

func (s *MongoStore) DueForExpiry(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	// The expiry deadline is grace_ends_at when set, ends_at otherwise,
	// so the match runs over a computed field.
	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.M{"deadline": bson.M{"$ifNull": bson.A{"$grace_ends_at", "$ends_at"}}}}},
		{{Key: "$match", Value: bson.M{
			"status":   bson.M{"$in": statusStrings(lifecycle.ActiveFamily())},
			"ends_at":  bson.M{"$ne": nil},
			"deadline": bson.M{"$lt": at},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "deadline", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := s.db.Collection(subscriptionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return decodeSubscriptions(ctx, cursor)
}

func (s *MongoStore) DueForAutoRenewal(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ends_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	return s.findSubscriptions(ctx, bson.M{
		"status":       string(lifecycle.StatusActive),
		"auto_renewal": true,
		"ends_at":      bson.M{"$ne": nil, "$lte": at},
	}, opts)
}

func (s *MongoStore) UsageDueForReset(ctx context.Context, period plan.ResetPeriod, at time.Time, limit int) ([]UsageDue, error) {
	periodStart, ok := period.PeriodStart(at)
	if !ok {
		return nil, nil
	}

	cursor, err := s.db.Collection(usagesCollection).Find(ctx, bson.M{
		"last_used_at": bson.M{"$ne": nil, "$lt": periodStart},
	}, options.Find().SetSort(bson.D{{Key: "last_used_at", Value: 1}, {Key: "key", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	var usageDocs []usageDoc
	if err := cursor.All(ctx, &usageDocs); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	// The feature's reset period lives on the plan, so the join runs
	// here with memoized lookups instead of a multi-stage aggregation.
	var (
		out   []UsageDue
		subs  = make(map[string]*Subscription)
		plans = make(map[uuid.UUID]*plan.Plan)
	)
	for _, ud := range usageDocs {
		sub, ok := subs[ud.SubscriptionID]
		if !ok {
			id, err := uuid.Parse(ud.SubscriptionID)
			if err != nil {
				return nil, errors.Join(ErrStoreFailure, err)
			}
			sub, err = s.SubscriptionByID(ctx, id)
			if errors.Is(err, ErrSubscriptionNotFound) {
				subs[ud.SubscriptionID] = nil
				continue
			}
			if err != nil {
				return nil, err
			}
			subs[ud.SubscriptionID] = sub
		}
		if sub == nil || !sub.Status.InActiveFamily() {
			continue
		}

		p, ok := plans[sub.PlanID]
		if !ok {
			loaded, err := s.PlanByID(ctx, sub.PlanID)
			if errors.Is(err, ErrPlanNotFound) {
				plans[sub.PlanID] = nil
				continue
			}
			if err != nil {
				return nil, err
			}
			p = &loaded
			plans[sub.PlanID] = p
		}
		if p == nil {
			continue
		}
		feature, ok := p.Feature(ud.Key)
		if !ok || feature.ResetPeriod != period {
			continue
		}

		usage, err := ud.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, UsageDue{Subscription: sub, Usage: usage})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MongoStore) HasTrialed(ctx context.Context, ref Ref, planID uuid.UUID) (bool, error) {
	count, err := s.db.Collection(subscriptionsCollection).CountDocuments(ctx, bson.M{
		"subscriber_type": ref.Type,
		"subscriber_id":   ref.ID.String(),
		"plan_id":         planID.String(),
		"trial_ends_at":   bson.M{"$ne": nil},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return count > 0, nil
}

type usageDoc struct {
	SubscriptionID string     `bson:"subscription_id"`
	Key            string     `bson:"key"`
	Used           int64      `bson:"used"`
	LastUsedAt     *time.Time `bson:"last_used_at,omitempty"`
}

func (d usageDoc) toEntity() (metering.Usage, error) {
	id, err := uuid.Parse(d.SubscriptionID)
	if err != nil {
		return metering.Usage{}, errors.Join(ErrStoreFailure, err)
	}
	return metering.Usage{
		SubscriptionID: id,
		Key:            d.Key,
		Used:           d.Used,
		LastUsedAt:     utcTime(d.LastUsedAt),
	}, nil
}

func (s *MongoStore) GetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (metering.Usage, error) {
	var doc usageDoc
	err := s.db.Collection(usagesCollection).
		FindOne(ctx, bson.M{"subscription_id": subscriptionID.String(), "key": key}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return metering.Usage{}, metering.ErrUsageNotFound
	}
	if err != nil {
		return metering.Usage{}, errors.Join(ErrStoreFailure, err)
	}
	return doc.toEntity()
}

func (s *MongoStore) SaveUsage(ctx context.Context, usage metering.Usage) error {
	_, err := s.db.Collection(usagesCollection).ReplaceOne(ctx,
		bson.M{"subscription_id": usage.SubscriptionID.String(), "key": usage.Key},
		usageDoc{
			SubscriptionID: usage.SubscriptionID.String(),
			Key:            usage.Key,
			Used:           usage.Used,
			LastUsedAt:     usage.LastUsedAt,
		},
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *MongoStore) ListUsage(ctx context.Context, subscriptionID uuid.UUID) ([]metering.Usage, error) {
	cursor, err := s.db.Collection(usagesCollection).Find(ctx,
		bson.M{"subscription_id": subscriptionID.String()},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	var docs []usageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	out := make([]metering.Usage, 0, len(docs))
	for _, d := range docs {
		usage, err := d.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, usage)
	}
	return out, nil
}

func (s *MongoStore) ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error {
	_, err := s.db.Collection(usagesCollection).UpdateMany(ctx,
		bson.M{"subscription_id": subscriptionID.String()},
		bson.M{"$set": bson.M{"used": 0}, "$unset": bson.M{"last_used_at": ""}})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

type planDoc struct {
	ID          string       `bson:"_id"`
	Slug        string       `bson:"slug"`
	Name        string       `bson:"name"`
	Description string       `bson:"description"`
	Active      bool         `bson:"active"`
	SortOrder   int          `bson:"sort_order"`
	Pricings    []pricingDoc `bson:"pricings"`
	Features    []featureDoc `bson:"features"`
	CreatedAt   time.Time    `bson:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at"`
	DeletedAt   *time.Time   `bson:"deleted_at,omitempty"`
}

type pricingDoc struct {
	ID           string     `bson:"_id"`
	Label        string     `bson:"label"`
	DurationDays int        `bson:"duration_days"`
	Amount       int64      `bson:"amount"`
	Currency     string     `bson:"currency"`
	BestOffer    bool       `bson:"best_offer"`
	Prices       []priceDoc `bson:"prices,omitempty"`
}

type priceDoc struct {
	Currency string `bson:"currency"`
	Amount   int64  `bson:"amount"`
}

type featureDoc struct {
	Key         string `bson:"key"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
	Value       string `bson:"value"`
	ResetPeriod string `bson:"reset_period"`
}

func toPlanDoc(p plan.Plan) (planDoc, error) {
	name, err := wireJSON(p.Name)
	if err != nil {
		return planDoc{}, err
	}
	description, err := wireJSON(p.Description)
	if err != nil {
		return planDoc{}, err
	}

	doc := planDoc{
		ID:          p.ID.String(),
		Slug:        p.Slug,
		Name:        name,
		Description: description,
		Active:      p.Active,
		SortOrder:   p.SortOrder,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		DeletedAt:   p.DeletedAt,
	}
	for _, pr := range p.Pricings {
		prices := make([]priceDoc, 0, len(pr.Prices))
		for _, price := range pr.Prices {
			prices = append(prices, priceDoc{Currency: price.Currency, Amount: price.Amount})
		}
		doc.Pricings = append(doc.Pricings, pricingDoc{
			ID:           pr.ID.String(),
			Label:        pr.Label,
			DurationDays: pr.DurationDays,
			Amount:       pr.Price.Amount,
			Currency:     pr.Price.Currency,
			BestOffer:    pr.BestOffer,
			Prices:       prices,
		})
	}
	for _, f := range p.Features {
		fname, err := wireJSON(f.Name)
		if err != nil {
			return planDoc{}, err
		}
		fdesc, err := wireJSON(f.Description)
		if err != nil {
			return planDoc{}, err
		}
		fvalue, err := wireJSON(f.Value)
		if err != nil {
			return planDoc{}, err
		}
		doc.Features = append(doc.Features, featureDoc{
			Key:         f.Key,
			Name:        fname,
			Description: fdesc,
			Value:       fvalue,
			ResetPeriod: string(f.ResetPeriod),
		})
	}
	return doc, nil
}

func (d planDoc) toEntity() (plan.Plan, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return plan.Plan{}, errors.Join(ErrStoreFailure, err)
	}
	name, err := flexvalue.Decode([]byte(d.Name))
	if err != nil {
		return plan.Plan{}, errors.Join(ErrStoreFailure, err)
	}
	description, err := flexvalue.Decode([]byte(d.Description))
	if err != nil {
		return plan.Plan{}, errors.Join(ErrStoreFailure, err)
	}

	p := plan.Plan{
		ID:          id,
		Slug:        d.Slug,
		Name:        name,
		Description: description,
		Active:      d.Active,
		SortOrder:   d.SortOrder,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		DeletedAt:   utcTime(d.DeletedAt),
	}
	for _, pr := range d.Pricings {
		pricingID, err := uuid.Parse(pr.ID)
		if err != nil {
			return plan.Plan{}, errors.Join(ErrStoreFailure, err)
		}
		prices := make([]plan.Price, 0, len(pr.Prices))
		for _, price := range pr.Prices {
			prices = append(prices, plan.Price{Currency: price.Currency, Amount: price.Amount})
		}
		p.Pricings = append(p.Pricings, plan.Pricing{
			ID:           pricingID,
			PlanID:       id,
			Label:        pr.Label,
			DurationDays: pr.DurationDays,
			Price:        plan.Money{Amount: pr.Amount, Currency: pr.Currency},
			BestOffer:    pr.BestOffer,
			Prices:       prices,
		})
	}
	for _, f := range d.Features {
		fname, err := flexvalue.Decode([]byte(f.Name))
		if err != nil {
			return plan.Plan{}, errors.Join(ErrStoreFailure, err)
		}
		fdesc, err := flexvalue.Decode([]byte(f.Description))
		if err != nil {
			return plan.Plan{}, errors.Join(ErrStoreFailure, err)
		}
		fvalue, err := flexvalue.Decode([]byte(f.Value))
		if err != nil {
			return plan.Plan{}, errors.Join(ErrStoreFailure, err)
		}
		p.Features = append(p.Features, plan.Feature{
			Key:         f.Key,
			Name:        fname,
			Description: fdesc,
			Value:       fvalue,
			ResetPeriod: plan.ResetPeriod(f.ResetPeriod),
		})
	}
	return p, nil
}

func (s *MongoStore) SavePlan(ctx context.Context, p plan.Plan) error {
	doc, err := toPlanDoc(p)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	_, err = s.db.Collection(plansCollection).
		ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *MongoStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res, err := s.db.Collection(plansCollection).UpdateOne(ctx,
		bson.M{"_id": id.String()},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"deleted_at": bson.M{"$ifNull": bson.A{"$deleted_at", now}},
				"updated_at": now,
			}}},
		})
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (s *MongoStore) PlanByID(ctx context.Context, id uuid.UUID) (plan.Plan, error) {
	var doc planDoc
	err := s.db.Collection(plansCollection).
		FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return plan.Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return plan.Plan{}, errors.Join(ErrStoreFailure, err)
	}
	return doc.toEntity()
}

func (s *MongoStore) PlanBySlug(ctx context.Context, slug string) (plan.Plan, error) {
	var doc planDoc
	err := s.db.Collection(plansCollection).
		FindOne(ctx, bson.M{"slug": slug, "deleted_at": nil}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return plan.Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return plan.Plan{}, errors.Join(ErrStoreFailure, err)
	}
	return doc.toEntity()
}

func (s *MongoStore) ListPlans(ctx context.Context, includeInactive bool) ([]plan.Plan, error) {
	filter := bson.M{"deleted_at": nil}
	if !includeInactive {
		filter["active"] = true
	}

	cursor, err := s.db.Collection(plansCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "slug", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	var docs []planDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	out := make([]plan.Plan, 0, len(docs))
	for _, d := range docs {
		p, err := d.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *MongoStore) findSubscriptions(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]*Subscription, error) {
	cursor, err := s.db.Collection(subscriptionsCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return decodeSubscriptions(ctx, cursor)
}

func decodeSubscriptions(ctx context.Context, cursor *mongo.Cursor) ([]*Subscription, error) {
	var docs []subscriptionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	out := make([]*Subscription, 0, len(docs))
	for _, d := range docs {
		sub, err := d.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func wireJSON(v flexvalue.Value) (string, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
