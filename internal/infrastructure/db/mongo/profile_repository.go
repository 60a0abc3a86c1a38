package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agrovagas/platform/internal/core/domain"
)

var profileCollections = map[domain.Role]string{
	domain.RoleProfessional: "professional_profiles",
	domain.RoleEmployer:     "employer_profiles",
}

// ProfileRepository provisions the per-role profile documents.
type ProfileRepository struct {
	db *mongo.Database
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateEmpty inserts a profile holding only the owner and timestamps; the
// user fills in the rest from the profile page.
func (r *ProfileRepository) CreateEmpty(ctx context.Context, identityID string, role domain.Role) error {
	name, ok := profileCollections[role]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	now := time.Now().UTC().Unix()
	doc := bson.M{
		"user_id":    identityID,
		"created_at": now,
		"updated_at": now,
	}
	if _, err := r.db.Collection(name).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", name, err)
	}
	return nil
}
