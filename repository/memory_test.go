package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"faculty-ranker-api/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFaculty(t *testing.T, s *MemoryStore, faculties ...models.Faculty) {
	t.Helper()
	err := s.Tx(context.Background(), func(tx Tx) error {
		for i := range faculties {
			if err := tx.CreateFaculty(&faculties[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.Tx(context.Background(), func(tx Tx) error {
		if err := tx.CreateFaculty(&models.Faculty{FacultyID: "f1", Name: "Dr. Smith"}); err != nil {
			return err
		}
		if err := tx.AppendLog(&models.FacultyLog{UserID: "u1", FacultyName: "Dr. Smith", Action: models.FacultyActionAdd}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Tx(context.Background(), func(tx Tx) error {
		_, err := tx.FacultyByID("f1", false)
		assert.ErrorIs(t, err, ErrNotFound)
		n, err := tx.CountLogs(LogFilter{UserID: "u1"})
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Tx(ctx, func(Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreListFaculties(t *testing.T) {
	s := NewMemoryStore()
	seedFaculty(t, s,
		models.Faculty{FacultyID: "f1", Name: "Dr. Smith", Department: "Physics", Verification: true},
		models.Faculty{FacultyID: "f2", Name: "Dr. Adams", Department: "Chemistry", Verification: true},
		models.Faculty{FacultyID: "f3", Name: "Dr. Brown", Department: "Physics"},
	)

	verified := true
	cases := []struct {
		name    string
		query   FacultyQuery
		wantIDs []string
		total   int64
	}{
		{name: "verified only", query: FacultyQuery{Verified: &verified}, wantIDs: []string{"f2", "f1"}, total: 2},
		{name: "department search", query: FacultyQuery{Search: "PHYS"}, wantIDs: []string{"f3", "f1"}, total: 2},
		{name: "name only ignores department", query: FacultyQuery{Search: "phys", NameOnly: true}, wantIDs: []string{}, total: 0},
		{name: "paged", query: FacultyQuery{Offset: 1, Limit: 1}, wantIDs: []string{"f3"}, total: 3},
		{name: "offset past end", query: FacultyQuery{Offset: 10}, wantIDs: []string{}, total: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Tx(context.Background(), func(tx Tx) error {
				rows, total, err := tx.ListFaculties(tc.query)
				require.NoError(t, err)
				ids := make([]string, 0, len(rows))
				for _, f := range rows {
					ids = append(ids, f.FacultyID)
				}
				assert.Equal(t, tc.total, total)
				if diff := cmp.Diff(tc.wantIDs, ids); diff != "" {
					t.Errorf("ids mismatch (-want +got):\n%s", diff)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestMemoryStoreFacultyByNameIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	seedFaculty(t, s, models.Faculty{FacultyID: "f1", Name: "Dr. Smith", Department: "Physics"})

	err := s.Tx(context.Background(), func(tx Tx) error {
		f, err := tx.FacultyByName("  dr. SMITH ")
		require.NoError(t, err)
		want := models.Faculty{FacultyID: "f1", Name: "Dr. Smith", NameKey: "dr. smith", Department: "Physics"}
		if diff := cmp.Diff(want, *f, cmpopts.IgnoreFields(models.Faculty{}, "CreatedAt", "UpdatedAt")); diff != "" {
			t.Errorf("faculty mismatch (-want +got):\n%s", diff)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreCountImageRefs(t *testing.T) {
	s := NewMemoryStore()
	seedFaculty(t, s, models.Faculty{FacultyID: "f1", Name: "Dr. Smith", ImagePublicID: "faculty-images/smith"})
	seedFaculty(t, s, models.Faculty{FacultyID: "f2", Name: "Dr. Smith II", ImagePublicID: "faculty-images/smith"})
	seedFaculty(t, s, models.Faculty{FacultyID: "f3", Name: "Dr. Jones"})

	err := s.Tx(context.Background(), func(tx Tx) error {
		n, err := tx.CountImageRefs("faculty-images/smith")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, tx.DeleteFaculty("f1"))
		n, err = tx.CountImageRefs("faculty-images/smith")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = tx.CountImageRefs("faculty-images/other")
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreRateKeyIsUnique(t *testing.T) {
	s := NewMemoryStore()
	first := models.RateKey("u1", "Dr. Smith")
	second := models.RateKey("u1", "dr. smith")

	err := s.Tx(context.Background(), func(tx Tx) error {
		require.NoError(t, tx.AppendLog(&models.FacultyLog{UserID: "u1", FacultyName: "Dr. Smith", Action: models.FacultyActionRate, RateKey: &first}))
		return tx.AppendLog(&models.FacultyLog{UserID: "u1", FacultyName: "dr. smith", Action: models.FacultyActionRate, RateKey: &second})
	})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryStoreLatestAddLog(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	err := s.Tx(context.Background(), func(tx Tx) error {
		for _, entry := range []models.FacultyLog{
			{UserID: "u1", FacultyName: "Dr. Smith", Action: models.FacultyActionAdd, LoggedAt: base},
			{UserID: "u2", FacultyName: "Dr. Smith", Action: models.FacultyActionAdd, LoggedAt: base.Add(time.Hour)},
			{UserID: "u3", FacultyName: "Dr. Smith", Action: models.FacultyActionRate, LoggedAt: base.Add(2 * time.Hour)},
		} {
			entry := entry
			if err := tx.AppendLog(&entry); err != nil {
				return err
			}
		}

		latest, err := tx.LatestAddLog("Dr. Smith")
		require.NoError(t, err)
		assert.Equal(t, "u2", latest.UserID)

		_, err = tx.LatestAddLog("Dr. Nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		logs, err := tx.LogsByUser("u1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, uint(1), logs[0].LogID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreCountLogsSince(t *testing.T) {
	s := NewMemoryStore()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	err := s.Tx(context.Background(), func(tx Tx) error {
		for _, at := range []time.Time{day.Add(-time.Minute), day, day.Add(5 * time.Hour)} {
			if err := tx.AppendLog(&models.FacultyLog{UserID: "u1", FacultyName: "X", Action: models.FacultyActionAdd, LoggedAt: at}); err != nil {
				return err
			}
		}
		n, err := tx.CountLogs(LogFilter{UserID: "u1", Action: models.FacultyActionAdd, Since: day})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreUsersAndSignups(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	err := s.Tx(context.Background(), func(tx Tx) error {
		require.NoError(t, tx.CreateUser(&models.User{UserID: "u1", Email: "a@kku.ac.th", Phno: "0812345678"}))
		assert.ErrorIs(t, tx.CreateUser(&models.User{Email: "a@kku.ac.th"}), ErrDuplicateKey)

		u, err := tx.UserByEmailOrPhone("other@kku.ac.th", "0812345678")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.UserID)

		_, err = tx.UserByEmailOrPhone("other@kku.ac.th", "")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, tx.SavePendingSignup(&models.PendingSignup{Email: "old@kku.ac.th", ExpiresAt: now.Add(-time.Minute)}))
		require.NoError(t, tx.SavePendingSignup(&models.PendingSignup{Email: "new@kku.ac.th", ExpiresAt: now.Add(time.Minute)}))
		n, err := tx.PurgeExpiredSignups(now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = tx.PendingSignup("old@kku.ac.th")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tx.PendingSignup("new@kku.ac.th")
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}
