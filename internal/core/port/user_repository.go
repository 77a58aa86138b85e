package port

import (
	"context"

	"github.com/community-soap/user-service/internal/core/domain"
)

// UserRepository is the narrow contract over account records. The backing
// storage is an external collaborator; missing rows surface as
// repository.ErrNotFound.
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user domain.User) error
}
