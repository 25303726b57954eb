package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"faculty-ranker-api/models"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for development and tests. Every
// transaction runs under one mutex and is rolled back from a snapshot when fn
// returns an error, so named locks are implied.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

type memoryState struct {
	faculties map[string]models.Faculty
	logs      []models.FacultyLog
	nextLogID uint
	users     map[string]models.User
	signups   map[string]models.PendingSignup
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			faculties: map[string]models.Faculty{},
			users:     map[string]models.User{},
			signups:   map[string]models.PendingSignup{},
		},
		now: time.Now,
	}
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(tx Tx) error, _ ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memoryTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (st memoryState) clone() memoryState {
	c := memoryState{
		faculties: make(map[string]models.Faculty, len(st.faculties)),
		logs:      make([]models.FacultyLog, len(st.logs)),
		nextLogID: st.nextLogID,
		users:     make(map[string]models.User, len(st.users)),
		signups:   make(map[string]models.PendingSignup, len(st.signups)),
	}
	for k, v := range st.faculties {
		c.faculties[k] = v
	}
	copy(c.logs, st.logs)
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.signups {
		c.signups[k] = v
	}
	return c
}

type memoryTx struct {
	s *MemoryStore
}

func (t *memoryTx) FacultyByID(id string, _ bool) (*models.Faculty, error) {
	f, ok := t.s.state.faculties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (t *memoryTx) FacultyByName(name string) (*models.Faculty, error) {
	key := models.NameKey(name)
	var found *models.Faculty
	for _, f := range t.s.state.faculties {
		if f.NameKey != key {
			continue
		}
		f := f
		if found == nil || f.FacultyID < found.FacultyID {
			found = &f
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (t *memoryTx) ListFaculties(q FacultyQuery) ([]models.Faculty, int64, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]models.Faculty, 0)
	for _, f := range t.s.state.faculties {
		if q.Verified != nil && f.Verification != *q.Verified {
			continue
		}
		if search != "" {
			match := strings.Contains(f.NameKey, search)
			if !match && !q.NameOnly {
				match = strings.Contains(strings.ToLower(f.Department), search)
			}
			if !match {
				continue
			}
		}
		rows = append(rows, f)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].FacultyID < rows[j].FacultyID
	})

	total := int64(len(rows))
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return []models.Faculty{}, total, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, total, nil
}

func (t *memoryTx) CreateFaculty(f *models.Faculty) error {
	if f.FacultyID == "" {
		f.FacultyID = uuid.NewString()
	}
	if _, exists := t.s.state.faculties[f.FacultyID]; exists {
		return ErrDuplicateKey
	}
	f.NameKey = models.NameKey(f.Name)
	now := t.s.now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = now
	}
	t.s.state.faculties[f.FacultyID] = *f
	return nil
}

func (t *memoryTx) UpdateRatings(f *models.Faculty) error {
	cur, ok := t.s.state.faculties[f.FacultyID]
	if !ok {
		return ErrNotFound
	}
	cur.Teaching = f.Teaching
	cur.Correction = f.Correction
	cur.Attendance = f.Attendance
	cur.UpdatedAt = f.UpdatedAt
	t.s.state.faculties[f.FacultyID] = cur
	return nil
}

func (t *memoryTx) SetVerification(id string, verified bool) error {
	cur, ok := t.s.state.faculties[id]
	if !ok {
		return ErrNotFound
	}
	cur.Verification = verified
	cur.UpdatedAt = t.s.now()
	t.s.state.faculties[id] = cur
	return nil
}

func (t *memoryTx) DeleteFaculty(id string) error {
	if _, ok := t.s.state.faculties[id]; !ok {
		return ErrNotFound
	}
	delete(t.s.state.faculties, id)
	return nil
}

func (t *memoryTx) CountFaculties(verified bool) (int64, error) {
	var n int64
	for _, f := range t.s.state.faculties {
		if f.Verification == verified {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) CountImageRefs(publicID string) (int64, error) {
	var n int64
	for _, f := range t.s.state.faculties {
		if f.ImagePublicID == publicID {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) CountLogs(filter LogFilter) (int64, error) {
	var n int64
	for _, entry := range t.s.state.logs {
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.FacultyName != "" && entry.FacultyName != filter.FacultyName {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && entry.LoggedAt.Before(filter.Since) {
			continue
		}
		n++
	}
	return n, nil
}

func (t *memoryTx) LatestAddLog(facultyName string) (*models.FacultyLog, error) {
	var latest *models.FacultyLog
	for i := range t.s.state.logs {
		entry := t.s.state.logs[i]
		if entry.FacultyName != facultyName || entry.Action != models.FacultyActionAdd {
			continue
		}
		if latest == nil ||
			entry.LoggedAt.After(latest.LoggedAt) ||
			(entry.LoggedAt.Equal(latest.LoggedAt) && entry.LogID > latest.LogID) {
			latest = &entry
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (t *memoryTx) AppendLog(entry *models.FacultyLog) error {
	if entry.RateKey != nil {
		for _, existing := range t.s.state.logs {
			if existing.RateKey != nil && *existing.RateKey == *entry.RateKey {
				return ErrDuplicateKey
			}
		}
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = t.s.now()
	}
	t.s.state.nextLogID++
	entry.LogID = t.s.state.nextLogID
	t.s.state.logs = append(t.s.state.logs, *entry)
	return nil
}

func (t *memoryTx) LogsByUser(userID string) ([]models.FacultyLog, error) {
	logs := make([]models.FacultyLog, 0)
	for _, entry := range t.s.state.logs {
		if entry.UserID == userID {
			logs = append(logs, entry)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].LoggedAt.Equal(logs[j].LoggedAt) {
			return logs[i].LoggedAt.After(logs[j].LoggedAt)
		}
		return logs[i].LogID > logs[j].LogID
	})
	return logs, nil
}

func (t *memoryTx) UserByID(id string) (*models.User, error) {
	u, ok := t.s.state.users[id]
	if !ok || u.DeleteAt != nil {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memoryTx) UserByEmail(email string) (*models.User, error) {
	for _, u := range t.s.state.users {
		if u.Email == email && u.DeleteAt == nil {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) UserByEmailOrPhone(email, phno string) (*models.User, error) {
	for _, u := range t.s.state.users {
		if u.DeleteAt != nil {
			continue
		}
		if u.Email == email || (phno != "" && u.Phno == phno) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) CreateUser(u *models.User) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	for _, existing := range t.s.state.users {
		if existing.UserID == u.UserID || existing.Email == u.Email {
			return ErrDuplicateKey
		}
	}
	now := t.s.now()
	if u.CreateAt.IsZero() {
		u.CreateAt = now
	}
	u.UpdateAt = now
	t.s.state.users[u.UserID] = *u
	return nil
}

func (t *memoryTx) UpdateUser(u *models.User) error {
	if _, ok := t.s.state.users[u.UserID]; !ok {
		return ErrNotFound
	}
	u.UpdateAt = t.s.now()
	t.s.state.users[u.UserID] = *u
	return nil
}

func (t *memoryTx) ListUsers() ([]models.User, error) {
	users := make([]models.User, 0, len(t.s.state.users))
	for _, u := range t.s.state.users {
		if u.DeleteAt == nil {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreateAt.Equal(users[j].CreateAt) {
			return users[i].CreateAt.Before(users[j].CreateAt)
		}
		return users[i].UserID < users[j].UserID
	})
	return users, nil
}

func (t *memoryTx) PendingSignup(email string) (*models.PendingSignup, error) {
	p, ok := t.s.state.signups[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memoryTx) SavePendingSignup(p *models.PendingSignup) error {
	t.s.state.signups[p.Email] = *p
	return nil
}

func (t *memoryTx) DeletePendingSignup(email string) error {
	delete(t.s.state.signups, email)
	return nil
}

func (t *memoryTx) PurgeExpiredSignups(now time.Time) (int64, error) {
	var n int64
	for email, p := range t.s.state.signups {
		if !p.Live(now) {
			delete(t.s.state.signups, email)
			n++
		}
	}
	return n, nil
}
