package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"

	"github.com/gamehub/identity/internal/errs"
)

// UserStore is the persistence surface of the record service.
type UserStore interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id string, req updateRequest) (*User, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*UserStats, error)
}

// GormStore implements UserStore over MySQL.
type GormStore struct{ db *gorm.DB }

var _ UserStore = (*GormStore)(nil)

// NewGormStore builds the store and migrates the users table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) List(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Order("created_at DESC, id").Find(&users).Error
	return users, err
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// checkUnique arbitrates username/email uniqueness. Empty emails are exempt.
func (s *GormStore) checkUnique(ctx context.Context, username, email, excludeID string) error {
	var n int64
	if username != "" {
		err := s.db.WithContext(ctx).Model(&User{}).
			Where("username = ? AND id <> ?", username, excludeID).Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrDuplicateUsername
		}
	}
	if email != "" {
		err := s.db.WithContext(ctx).Model(&User{}).
			Where("email = ? AND id <> ?", email, excludeID).Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrDuplicateEmail
		}
	}
	return nil
}

func (s *GormStore) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = "user_" + uuid.Must(uuid.NewV4()).String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Role = roleFor(u.UserType)

	if err := s.checkUnique(ctx, u.Username, u.Email, u.ID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *GormStore) Update(ctx context.Context, id string, req updateRequest) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Password != nil {
		u.Password = *req.Password
	}
	if req.UserType != nil {
		u.UserType = *req.UserType
		u.Role = roleFor(*req.UserType)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.LastLoginAt != nil {
		u.LastLoginAt = req.LastLoginAt
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.checkUnique(ctx, u.Username, u.Email, u.ID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Stats(ctx context.Context) (*UserStats, error) {
	var st UserStats
	count := func(cond string, args ...any) (int, error) {
		var n int64
		q := s.db.WithContext(ctx).Model(&User{})
		if cond != "" {
			q = q.Where(cond, args...)
		}
		err := q.Count(&n).Error
		return int(n), err
	}
	var err error
	if st.Total, err = count(""); err != nil {
		return nil, err
	}
	if st.Active, err = count("is_active = ?", true); err != nil {
		return nil, err
	}
	if st.Admins, err = count("user_type = ?", "admin"); err != nil {
		return nil, err
	}
	if st.SuperAdmins, err = count("user_type = ?", "superAdmin"); err != nil {
		return nil, err
	}
	if st.Regulars, err = count("user_type = ?", "regular"); err != nil {
		return nil, err
	}
	if st.Guests, err = count("is_guest = ?", true); err != nil {
		return nil, err
	}
	return &st, nil
}
