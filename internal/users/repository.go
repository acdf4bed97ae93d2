package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrGroupNotFound = errors.New("group not found")

	// ErrInvalidPassword is the authentication failure: credentials were
	// well formed but did not match.
	ErrInvalidPassword = errors.New("invalid password")
)

type Repository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(user *User) error
	Delete(id string) error
}

type userRow struct {
	ID        string         `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;not null"`
	Groups    pq.StringArray `gorm:"type:text[]"`
	Joined    time.Time
	Confirmed *time.Time
	LastLogin *time.Time
	PrevLogin *time.Time
	Salt      string `gorm:"not null"`
	Hash      string `gorm:"not null"`
}

func (userRow) TableName() string {
	return "users"
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(user *User) error {
	user.prepare()
	if err := user.Validate(); err != nil {
		return err
	}
	if user.id == "" {
		user.setID(uuid.NewString())
	}
	if err := r.db.Create(rowFromUser(user)).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(id string) (*User, error) {
	var row userRow
	if err := r.db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return userFromRow(&row), nil
}

func (r *repository) GetByEmail(email string) (*User, error) {
	var row userRow
	if err := r.db.Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return userFromRow(&row), nil
}

func (r *repository) Update(user *User) error {
	user.prepare()
	if err := user.Validate(); err != nil {
		return err
	}
	res := r.db.Model(&userRow{}).Where("id = ?", user.id).
		Updates(rowFromUser(user))
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrUserExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&userRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func rowFromUser(u *User) *userRow {
	return &userRow{
		ID:        u.id,
		Email:     u.email,
		Groups:    pq.StringArray(u.GroupStrings()),
		Joined:    u.joined,
		Confirmed: u.confirmed,
		LastLogin: u.lastLogin,
		PrevLogin: u.prevLogin,
		Salt:      u.salt,
		Hash:      u.hash,
	}
}

func userFromRow(row *userRow) *User {
	groups := make([]Group, len(row.Groups))
	for i, g := range row.Groups {
		groups[i] = Group(g)
	}
	return &User{
		id:        row.ID,
		email:     row.Email,
		groups:    groups,
		joined:    row.Joined,
		confirmed: row.Confirmed,
		lastLogin: row.LastLogin,
		prevLogin: row.PrevLogin,
		salt:      row.Salt,
		hash:      row.Hash,
	}
}
