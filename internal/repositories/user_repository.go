package repositories

import (
	"context"

	"github.com/brightclass/assessment-service/internal/models"
)

// UserRepository reads identities from the Casdoor directory. The
// service never writes users; account management lives elsewhere.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}
