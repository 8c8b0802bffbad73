package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aslaburda/aslp_backend/models"
)

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	id, err := s.nextID(ctx, collUsers)
	if err != nil {
		return err
	}
	user.ID = id
	user.Email = strings.ToLower(user.Email)
	return s.insert(ctx, collUsers, user)
}

func (s *MongoStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, collUsers, bson.M{"email": strings.ToLower(email)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) GrantCapabilities(ctx context.Context, id int64, role string, caps []string) error {
	add := bson.M{"capabilities": bson.M{"$each": caps}}
	if role != "" {
		add["roles"] = role
	}
	return s.updateByID(ctx, collUsers, id, bson.M{
		"$addToSet": add,
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *MongoStore) RevokeCapabilities(ctx context.Context, id int64, role string, caps []string) error {
	pull := bson.M{"capabilities": bson.M{"$in": caps}}
	if role != "" {
		pull["roles"] = role
	}
	return s.updateByID(ctx, collUsers, id, bson.M{
		"$pull": pull,
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (s *MongoStore) SetFCMToken(ctx context.Context, id int64, token string) error {
	return s.updateByID(ctx, collUsers, id, bson.M{"$set": bson.M{"fcm_token": token}})
}
