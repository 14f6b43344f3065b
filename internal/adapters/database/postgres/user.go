package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

type UserStorage struct {
	db *gorm.DB
}

func NewUserStorage(db *gorm.DB) *UserStorage {
	return &UserStorage{
		db: db,
	}
}

// Create is a function that creates a new user in the database.
func (s *UserStorage) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	err := s.db.WithContext(ctx).Create(user).Error
	return user, err
}

// Get is a function that gets a user from the database by id.
func (s *UserStorage) Get(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	return &user, err
}

// ResolveID maps a user reference to a user id.
// A positive number is taken as the id itself, anything else is looked up by nick.
func (s *UserStorage) ResolveID(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, errorz.UserNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	var user entity.User
	err := s.db.WithContext(ctx).Select("id").Where("nick = ?", ref).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errorz.UserNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
