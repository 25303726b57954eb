package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"faculty-ranker-api/models"

	mysqlerr "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGormStoreTxHoldsLocksAroundTransaction(t *testing.T) {
	lock := namedLock("faculty:user:u1")
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK\(\?, \?\)`),
			args:    []driver.Value{lock, int64(5)},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{kind: kindBegin},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT count\\(\\*\\) FROM `faculty_logs` WHERE user_id = \\? AND action = \\?"),
			args:    []driver.Value{"u1", models.FacultyActionAdd},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(2)}},
		},
		{kind: kindCommit},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK\(\?\)`),
			args:    []driver.Value{lock},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	})

	store := NewGormStore(db, 5*time.Second)
	var count int64
	err := store.Tx(context.Background(), func(tx Tx) error {
		n, err := tx.CountLogs(LogFilter{UserID: "u1", Action: models.FacultyActionAdd})
		count = n
		return err
	}, "faculty:user:u1")
	if err != nil {
		t.Fatalf("Tx returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreTxRollsBackAndReleasesOnError(t *testing.T) {
	lock := namedLock("faculty:name:dr. smith")
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{kind: kindBegin},
		{kind: kindRollback},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			args:    []driver.Value{lock},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	})

	boom := errors.New("boom")
	err := NewGormStore(db, 0).Tx(context.Background(), func(Tx) error {
		return boom
	}, "faculty:name:dr. smith")
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreTxLockTimeout(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	})

	called := false
	err := NewGormStore(db, time.Second).Tx(context.Background(), func(Tx) error {
		called = true
		return nil
	}, "faculty:user:u1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if called {
		t.Fatal("fn must not run without the lock")
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormStoreTxReleasesLocksAfterCancel(t *testing.T) {
	lock := namedLock("faculty:user:u1")
	release := &queryStep{
		kind:     kindQuery,
		pattern:  regexp.MustCompile(`SELECT RELEASE_LOCK\(\?\)`),
		args:     []driver.Value{lock},
		columns:  []string{"status"},
		rows:     [][]driver.Value{{int64(1)}},
		anyOrder: true,
	}
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{kind: kindBegin},
		// database/sql may roll back from its own goroutine once the context
		// is cancelled, so the rollback and the release can arrive in either order.
		{kind: kindRollback, anyOrder: true},
		release,
	})

	core, logs := observer.New(zap.ErrorLevel)
	store := NewGormStore(db, time.Second, WithLogger(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := store.Tx(ctx, func(Tx) error {
		cancel()
		return ctx.Err()
	}, "faculty:user:u1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
	if release.ctxErr != nil {
		t.Fatalf("RELEASE_LOCK ran on a cancelled context: %v", release.ctxErr)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected error logs: %v", logs.All())
	}
}

func TestGormStoreTxLogsFailedRelease(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{kind: kindBegin},
		{kind: kindCommit},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	})

	core, logs := observer.New(zap.ErrorLevel)
	err := NewGormStore(db, time.Second, WithLogger(zap.New(core))).Tx(context.Background(), func(Tx) error {
		return nil
	}, "faculty:name:dr. smith")
	if err != nil {
		t.Fatalf("a committed transaction must not fail on release: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("named lock release failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one release failure log, got %d", len(entries))
	}
}

func TestGormStoreTxRoundsLockWaitUp(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{namedLock("faculty:user:u1"), int64(1)},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	})

	err := NewGormStore(db, 300*time.Millisecond).Tx(context.Background(), func(Tx) error {
		return nil
	}, "faculty:user:u1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestLockWaitSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{time.Nanosecond, 1},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{5 * time.Second, 5},
	}
	for _, tc := range cases {
		if got := lockWaitSeconds(tc.in); got != tc.want {
			t.Errorf("lockWaitSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGormStoreSetVerificationUsesClock(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	db, state := newScriptedGormDB(t, []*queryStep{
		{kind: kindBegin},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("(?s)^SELECT \\* FROM `faculties` WHERE faculty_id = \\?.*FOR UPDATE$"),
			columns: []string{"faculty_id", "name", "verification"},
			rows:    [][]driver.Value{{"f1", "Dr. Smith", false}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("^UPDATE `faculties` SET `updated_at`=\\?,`verification`=\\? WHERE faculty_id = \\?"),
			args:    []driver.Value{stamp, true, "f1"},
			result:  scriptedResult{rowsAffected: 1},
		},
		{kind: kindCommit},
	})

	store := NewGormStore(db, time.Second, WithClock(func() time.Time { return stamp }))
	err := store.Tx(context.Background(), func(tx Tx) error {
		return tx.SetVerification("f1", true)
	})
	if err != nil {
		t.Fatalf("SetVerification returned error: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormTxFacultyByIDForUpdate(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("(?s)^SELECT \\* FROM `faculties` WHERE faculty_id = \\?.*FOR UPDATE$"),
			columns: []string{"faculty_id", "name", "teaching_average", "teaching_count", "verification"},
			rows:    [][]driver.Value{{"f1", "Dr. Smith", 4.5, int64(2), true}},
		},
	})

	f, err := (&gormTx{db: db}).FacultyByID("f1", true)
	if err != nil {
		t.Fatalf("FacultyByID returned error: %v", err)
	}
	if f.Name != "Dr. Smith" || f.Teaching.Average != 4.5 || f.Teaching.Count != 2 || !f.Verification {
		t.Fatalf("unexpected faculty: %+v", f)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormTxLatestAddLogNotFound(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `faculty_logs` WHERE faculty_name = \\? AND action = \\? ORDER BY logged_at DESC,\\s*log_id DESC LIMIT"),
			columns: []string{"log_id", "user_id", "faculty_name", "action"},
		},
	})

	_, err := (&gormTx{db: db}).LatestAddLog("Dr. Smith")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormTxAppendLogDuplicateRateKey(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("^INSERT INTO `faculty_logs`"),
			err:     &mysqlerr.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry for key 'rate_key'"},
		},
	})

	key := models.RateKey("u1", "Dr. Smith")
	err := (&gormTx{db: db}).AppendLog(&models.FacultyLog{
		UserID:      "u1",
		FacultyName: "Dr. Smith",
		Action:      models.FacultyActionRate,
		RateKey:     &key,
		LoggedAt:    time.Now(),
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormTxUpdateRatingsMissingRow(t *testing.T) {
	db, state := newScriptedGormDB(t, []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("^UPDATE `faculties` SET"),
			result:  scriptedResult{rowsAffected: 0},
		},
	})

	err := (&gormTx{db: db}).UpdateRatings(&models.Faculty{FacultyID: "missing", UpdatedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestNamedLockLength(t *testing.T) {
	name := namedLock("faculty:name:" + string(make([]byte, 300)))
	if len(name) > 64 {
		t.Fatalf("lock name too long: %d", len(name))
	}
	if namedLock("a") == namedLock("b") {
		t.Fatal("distinct names must map to distinct locks")
	}
}

func TestEscapeLike(t *testing.T) {
	got := escapeLike(`50%_off\`)
	want := `50\%\_off\\`
	if got != want {
		t.Fatalf("escapeLike = %q, want %q", got, want)
	}
}
