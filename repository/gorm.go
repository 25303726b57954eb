package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"faculty-ranker-api/models"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlDuplicateEntry = 1062

// GormStore implements Store on MySQL through gorm.
type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

type GormOption func(*GormStore)

// WithLogger reports lock release failures.
func WithLogger(logger *zap.Logger) GormOption {
	return func(s *GormStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for the timestamps the store writes itself.
func WithClock(now func() time.Time) GormOption {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewGormStore(db *gorm.DB, lockTimeout time.Duration, opts ...GormOption) *GormStore {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	s := &GormStore{db: db, lockTimeout: lockTimeout, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates or updates every table the store uses.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Faculty{},
		&models.FacultyLog{},
		&models.PendingSignup{},
	)
}

func (s *GormStore) Tx(ctx context.Context, fn func(tx Tx) error, locks ...string) error {
	if len(locks) == 0 {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormTx{db: tx, now: s.now})
		})
	}

	// GET_LOCK is bound to the session, so the locks and the transaction must
	// share one pinned connection. The lock statements ignore cancellation: a
	// release skipped by a cancelled request would leave the lock on a pooled
	// connection.
	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		lockConn := conn.WithContext(context.WithoutCancel(ctx))
		held := make([]string, 0, len(locks))
		defer func() {
			for i := len(held) - 1; i >= 0; i-- {
				if err := releaseLock(lockConn, held[i]); err != nil {
					s.logger.Error("named lock release failed", zap.String("lock", held[i]), zap.Error(err))
				}
			}
		}()

		for _, name := range locks {
			lockName := namedLock(name)
			var ok int
			if err := lockConn.Raw("SELECT GET_LOCK(?, ?)", lockName, lockWaitSeconds(s.lockTimeout)).Scan(&ok).Error; err != nil {
				return err
			}
			if ok != 1 {
				return fmt.Errorf("%w: %s", ErrLockTimeout, name)
			}
			held = append(held, lockName)
		}

		return conn.Transaction(func(tx *gorm.DB) error {
			return fn(&gormTx{db: tx, now: s.now})
		})
	})
}

func releaseLock(conn *gorm.DB, lockName string) error {
	var released int
	if err := conn.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
		return err
	}
	if released != 1 {
		return fmt.Errorf("release lock %q returned %d", lockName, released)
	}
	return nil
}

// lockWaitSeconds rounds up because GET_LOCK takes whole seconds and 0 means no wait.
func lockWaitSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// namedLock keeps lock names under MySQL's 64 character limit.
func namedLock(name string) string {
	sum := sha1.Sum([]byte(name))
	return "fr:" + hex.EncodeToString(sum[:])
}

type gormTx struct {
	db  *gorm.DB
	now func() time.Time
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrDuplicateKey
	}
	return err
}

func (t *gormTx) FacultyByID(id string, forUpdate bool) (*models.Faculty, error) {
	q := t.db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var f models.Faculty
	if err := q.Where("faculty_id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (t *gormTx) FacultyByName(name string) (*models.Faculty, error) {
	var f models.Faculty
	if err := t.db.Where("name_key = ?", models.NameKey(name)).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (t *gormTx) ListFaculties(q FacultyQuery) ([]models.Faculty, int64, error) {
	query := t.db.Model(&models.Faculty{})
	if q.Verified != nil {
		query = query.Where("verification = ?", *q.Verified)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		if q.NameOnly {
			query = query.Where("name_key LIKE ?", like)
		} else {
			query = query.Where("(name_key LIKE ? OR LOWER(department) LIKE ?)", like, like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Faculty
	query = query.Order("name ASC").Order("faculty_id ASC")
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (t *gormTx) CreateFaculty(f *models.Faculty) error {
	return translate(t.db.Create(f).Error)
}

func (t *gormTx) UpdateRatings(f *models.Faculty) error {
	res := t.db.Model(&models.Faculty{}).
		Where("faculty_id = ?", f.FacultyID).
		Updates(map[string]interface{}{
			"teaching_average":   f.Teaching.Average,
			"teaching_count":     f.Teaching.Count,
			"correction_average": f.Correction.Average,
			"correction_count":   f.Correction.Count,
			"attendance_average": f.Attendance.Average,
			"attendance_count":   f.Attendance.Count,
			"updated_at":         f.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) SetVerification(id string, verified bool) error {
	// RowsAffected is 0 when the flag already has the value, so existence is
	// checked separately.
	if _, err := t.FacultyByID(id, true); err != nil {
		return err
	}
	return t.db.Model(&models.Faculty{}).
		Where("faculty_id = ?", id).
		Updates(map[string]interface{}{
			"verification": verified,
			"updated_at":   t.now(),
		}).Error
}

func (t *gormTx) DeleteFaculty(id string) error {
	res := t.db.Where("faculty_id = ?", id).Delete(&models.Faculty{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) CountFaculties(verified bool) (int64, error) {
	var n int64
	err := t.db.Model(&models.Faculty{}).Where("verification = ?", verified).Count(&n).Error
	return n, err
}

func (t *gormTx) CountImageRefs(publicID string) (int64, error) {
	var n int64
	err := t.db.Model(&models.Faculty{}).Where("image_public_id = ?", publicID).Count(&n).Error
	return n, err
}

func (t *gormTx) CountLogs(filter LogFilter) (int64, error) {
	query := t.db.Model(&models.FacultyLog{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.FacultyName != "" {
		query = query.Where("faculty_name = ?", filter.FacultyName)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		query = query.Where("logged_at >= ?", filter.Since)
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

func (t *gormTx) LatestAddLog(facultyName string) (*models.FacultyLog, error) {
	var entry models.FacultyLog
	err := t.db.Where("faculty_name = ? AND action = ?", facultyName, models.FacultyActionAdd).
		Order("logged_at DESC").
		Order("log_id DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.LogID == 0 {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (t *gormTx) AppendLog(entry *models.FacultyLog) error {
	return translate(t.db.Create(entry).Error)
}

func (t *gormTx) LogsByUser(userID string) ([]models.FacultyLog, error) {
	var logs []models.FacultyLog
	err := t.db.Where("user_id = ?", userID).
		Order("logged_at DESC").
		Order("log_id DESC").
		Find(&logs).Error
	return logs, err
}

func (t *gormTx) UserByID(id string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("user_id = ? AND delete_at IS NULL", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) UserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("email = ? AND delete_at IS NULL", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) UserByEmailOrPhone(email, phno string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("(email = ? OR phno = ?) AND delete_at IS NULL", email, phno).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) CreateUser(u *models.User) error {
	return translate(t.db.Create(u).Error)
}

func (t *gormTx) UpdateUser(u *models.User) error {
	return translate(t.db.Save(u).Error)
}

func (t *gormTx) ListUsers() ([]models.User, error) {
	var users []models.User
	err := t.db.Where("delete_at IS NULL").Order("create_at ASC").Find(&users).Error
	return users, err
}

func (t *gormTx) PendingSignup(email string) (*models.PendingSignup, error) {
	var p models.PendingSignup
	if err := t.db.Where("email = ?", email).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) SavePendingSignup(p *models.PendingSignup) error {
	return t.db.Save(p).Error
}

func (t *gormTx) DeletePendingSignup(email string) error {
	return t.db.Where("email = ?", email).Delete(&models.PendingSignup{}).Error
}

func (t *gormTx) PurgeExpiredSignups(now time.Time) (int64, error) {
	res := t.db.Where("expires_at <= ?", now).Delete(&models.PendingSignup{})
	return res.RowsAffected, res.Error
}
