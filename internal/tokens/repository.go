package tokens

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExists is the confirmation-token uniqueness conflict. It is
	// consumed by the replace-on-conflict flow and never surfaces past it.
	ErrTokenExists = errors.New("token already exists")
)

// SessionRepository persists session tokens. Lookups treat a token whose
// TTL has lapsed as absent regardless of whether the row has been purged.
type SessionRepository interface {
	Save(token *AuthToken) error
	GetByKey(key string) (*AuthToken, error)
	Delete(key string) error
	DeleteByUser(userID string) error
	DeleteExpired() (int64, error)
}

// ConfirmationRepository persists confirmation tokens. At most one token
// per user is accepted; Save returns ErrTokenExists otherwise.
type ConfirmationRepository interface {
	Save(token *ConfirmToken) error
	GetByKey(key string) (*ConfirmToken, error)
	Delete(key string) error
	DeleteByUser(userID string) error
	DeleteExpired() (int64, error)
}

type authTokenRow struct {
	Key        string         `gorm:"primaryKey;type:char(56)"`
	UserID     string         `gorm:"index;not null"`
	UserGroups pq.StringArray `gorm:"type:text[]"`
	Issued     time.Time      `gorm:"not null"`
	Touched    time.Time      `gorm:"index;not null"`
}

func (authTokenRow) TableName() string {
	return "auth_tokens"
}

type confirmTokenRow struct {
	Key    string    `gorm:"primaryKey;type:char(56)"`
	UserID string    `gorm:"uniqueIndex;not null"`
	Issued time.Time `gorm:"index;not null"`
}

func (confirmTokenRow) TableName() string {
	return "confirm_tokens"
}

type sessionRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewSessionRepository(db *gorm.DB, ttl time.Duration) SessionRepository {
	return &sessionRepository{db: db, ttl: ttl}
}

func (r *sessionRepository) Save(token *AuthToken) error {
	if token.Pending() {
		token.prepare()
		return r.db.Create(&authTokenRow{
			Key:        token.key,
			UserID:     token.user.ID,
			UserGroups: pq.StringArray(token.user.Groups),
			Issued:     token.issued,
			Touched:    token.touched,
		}).Error
	}
	// An issued token only ever changes its touched stamp.
	res := r.db.Model(&authTokenRow{}).Where("key = ?", token.key).
		Update("touched", token.touched)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *sessionRepository) GetByKey(key string) (*AuthToken, error) {
	var row authTokenRow
	err := r.db.Where("key = ? AND touched > ?", key, time.Now().UTC().Add(-r.ttl)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	snapshot := UserSnapshot{ID: row.UserID, Groups: row.UserGroups}
	return restoreAuthToken(row.Key, snapshot, row.Issued, row.Touched), nil
}

func (r *sessionRepository) Delete(key string) error {
	res := r.db.Where("key = ?", key).Delete(&authTokenRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authTokenRow{}).Error
}

func (r *sessionRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("touched <= ?", time.Now().UTC().Add(-r.ttl)).
		Delete(&authTokenRow{})
	return res.RowsAffected, res.Error
}

type confirmationRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewConfirmationRepository(db *gorm.DB, ttl time.Duration) ConfirmationRepository {
	return &confirmationRepository{db: db, ttl: ttl}
}

func (r *confirmationRepository) Save(token *ConfirmToken) error {
	if !token.Pending() {
		return nil
	}
	token.prepare()
	err := r.db.Create(&confirmTokenRow{
		Key:    token.key,
		UserID: token.userID,
		Issued: token.issued,
	}).Error
	if err != nil {
		if isUniqueViolation(err) {
			// Reset so a retry after the conflict issues a fresh key.
			token.key = ""
			token.issued = time.Time{}
			return ErrTokenExists
		}
		return err
	}
	return nil
}

func (r *confirmationRepository) GetByKey(key string) (*ConfirmToken, error) {
	var row confirmTokenRow
	err := r.db.Where("key = ? AND issued > ?", key, time.Now().UTC().Add(-r.ttl)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return restoreConfirmToken(row.Key, row.UserID, row.Issued), nil
}

func (r *confirmationRepository) Delete(key string) error {
	res := r.db.Where("key = ?", key).Delete(&confirmTokenRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *confirmationRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&confirmTokenRow{}).Error
}

func (r *confirmationRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("issued <= ?", time.Now().UTC().Add(-r.ttl)).
		Delete(&confirmTokenRow{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
