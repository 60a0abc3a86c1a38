package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrovagas/platform/internal/core/domain"
)

const rolesCollection = "user_roles"

// RoleRepository stores role assignments. user_id is indexed but not unique:
// signup inserts without checking for an existing row.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

type mongoRoleAssignment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Role      string             `bson:"role"`
	CreatedAt int64              `bson:"created_at"`
}

// FindByIdentity returns up to limit assignments ordered by primary key.
func (r *RoleRepository) FindByIdentity(ctx context.Context, identityID string, limit int) ([]domain.RoleAssignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, bson.M{"user_id": identityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find role assignments: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRoleAssignment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode role assignments: %w", err)
	}

	out := make([]domain.RoleAssignment, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.RoleAssignment{
			ID:         d.ID.Hex(),
			IdentityID: d.UserID,
			Role:       domain.Role(d.Role),
			CreatedAt:  unixToTime(d.CreatedAt),
		})
	}
	return out, nil
}

func (r *RoleRepository) Assign(ctx context.Context, identityID string, role domain.Role) error {
	doc := mongoRoleAssignment{
		UserID:    identityID,
		Role:      string(role),
		CreatedAt: time.Now().UTC().Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert role assignment: %w", err)
	}
	return nil
}
