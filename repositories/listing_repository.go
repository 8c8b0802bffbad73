package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aslaburda/aslp_backend/models"
)

func (s *MongoStore) CreateListing(ctx context.Context, l *models.BusinessListing) error {
	id, err := s.nextID(ctx, collListings)
	if err != nil {
		return err
	}
	l.ID = id
	return s.insert(ctx, collListings, l)
}

func (s *MongoStore) UpdateListing(ctx context.Context, l *models.BusinessListing) error {
	return s.replace(ctx, collListings, l.ID, l)
}

func (s *MongoStore) DeleteListing(ctx context.Context, id int64) error {
	if err := s.deleteByID(ctx, collListings, id); err != nil {
		return err
	}
	if _, err := s.coll(collProducts).DeleteMany(ctx, bson.M{"listing_id": id}); err != nil {
		return err
	}
	_, err := s.coll(collEvents).DeleteMany(ctx, bson.M{"listing_id": id})
	return err
}

func (s *MongoStore) GetListing(ctx context.Context, id int64) (*models.BusinessListing, error) {
	var l models.BusinessListing
	if err := s.findOne(ctx, collListings, bson.M{"_id": id}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MongoStore) ListListings(ctx context.Context, filter ListingFilter) ([]models.BusinessListing, error) {
	query := bson.M{}
	if filter.UserID != 0 {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Search != "" {
		query["listing_name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}
	listings := []models.BusinessListing{}
	if err := s.findAll(ctx, collListings, query, newestFirst, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *MongoStore) SetListingStatus(ctx context.Context, id int64, status string) error {
	return s.updateByID(ctx, collListings, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
}

func (s *MongoStore) CountListings(ctx context.Context) (int64, error) {
	return s.count(ctx, collListings, bson.M{})
}

// Products

func (s *MongoStore) CreateProduct(ctx context.Context, p *models.Product) error {
	id, err := s.nextID(ctx, collProducts)
	if err != nil {
		return err
	}
	p.ID = id
	return s.insert(ctx, collProducts, p)
}

func (s *MongoStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.replace(ctx, collProducts, p.ID, p)
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collProducts, id)
}

func (s *MongoStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := s.findOne(ctx, collProducts, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListProducts(ctx context.Context, listingID int64) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.findAll(ctx, collProducts, bson.M{"listing_id": listingID}, byCreation, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Events

func (s *MongoStore) CreateEvent(ctx context.Context, e *models.Event) error {
	id, err := s.nextID(ctx, collEvents)
	if err != nil {
		return err
	}
	e.ID = id
	return s.insert(ctx, collEvents, e)
}

func (s *MongoStore) UpdateEvent(ctx context.Context, e *models.Event) error {
	return s.replace(ctx, collEvents, e.ID, e)
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collEvents, id)
}

func (s *MongoStore) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var e models.Event
	if err := s.findOne(ctx, collEvents, bson.M{"_id": id}, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *MongoStore) ListEvents(ctx context.Context, listingID int64) ([]models.Event, error) {
	events := []models.Event{}
	sort := bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}
	if err := s.findAll(ctx, collEvents, bson.M{"listing_id": listingID}, sort, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Custom fields

func (s *MongoStore) CreateCustomField(ctx context.Context, f *models.CustomField) error {
	id, err := s.nextID(ctx, collCustomFields)
	if err != nil {
		return err
	}
	f.ID = id
	return s.insert(ctx, collCustomFields, f)
}

func (s *MongoStore) UpdateCustomField(ctx context.Context, f *models.CustomField) error {
	return s.replace(ctx, collCustomFields, f.ID, f)
}

func (s *MongoStore) DeleteCustomField(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collCustomFields, id)
}

func (s *MongoStore) GetCustomField(ctx context.Context, id int64) (*models.CustomField, error) {
	var f models.CustomField
	if err := s.findOne(ctx, collCustomFields, bson.M{"_id": id}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *MongoStore) GetCustomFieldBySlug(ctx context.Context, appliesTo, slug string) (*models.CustomField, error) {
	var f models.CustomField
	if err := s.findOne(ctx, collCustomFields, bson.M{"applies_to": appliesTo, "field_slug": slug}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *MongoStore) ListCustomFields(ctx context.Context, appliesTo string) ([]models.CustomField, error) {
	filter := bson.M{}
	if appliesTo != "" {
		filter["applies_to"] = appliesTo
	}
	fields := []models.CustomField{}
	if err := s.findAll(ctx, collCustomFields, filter, byCreation, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Listing plans

func (s *MongoStore) CreatePlan(ctx context.Context, p *models.ListingPlan) error {
	id, err := s.nextID(ctx, collListingPlans)
	if err != nil {
		return err
	}
	p.ID = id
	return s.insert(ctx, collListingPlans, p)
}

func (s *MongoStore) UpdatePlan(ctx context.Context, p *models.ListingPlan) error {
	return s.replace(ctx, collListingPlans, p.ID, p)
}

func (s *MongoStore) DeletePlan(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, collListingPlans, id)
}

func (s *MongoStore) GetPlan(ctx context.Context, id int64) (*models.ListingPlan, error) {
	var p models.ListingPlan
	if err := s.findOne(ctx, collListingPlans, bson.M{"_id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListPlans(ctx context.Context) ([]models.ListingPlan, error) {
	plans := []models.ListingPlan{}
	if err := s.findAll(ctx, collListingPlans, bson.M{}, byCreation, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}
