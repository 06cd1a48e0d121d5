package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/pkg/docstore"
)

const UsersCollection = "users"

type userRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByDNI(ctx context.Context, dni string) (*model.User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, dni)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", dni, err)
	}
	return decodeUser(dni, doc)
}

func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	doc, err := encodeRecord(u, nil)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.store.Put(ctx, UsersCollection, u.DNI, doc); err != nil {
		return fmt.Errorf("store user %s: %w", u.DNI, err)
	}
	return nil
}

// List returns every account ordered by dni. Undecodable documents are
// skipped.
func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	snaps, err := r.store.Find(ctx, UsersCollection, docstore.Query{OrderBy: "dni"})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*model.User, 0, len(snaps))
	for _, snap := range snaps {
		u, err := decodeUser(snap.ID, snap.Data)
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeUser(dni string, doc docstore.Document) (*model.User, error) {
	var u model.User
	if _, err := decodeRecord(map[string]interface{}(doc), &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", dni, err)
	}
	if u.DNI == "" {
		u.DNI = dni
	}
	return &u, nil
}
