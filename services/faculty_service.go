package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"faculty-ranker-api/models"
	"faculty-ranker-api/repository"
)

const (
	DefaultDailyAddLimit = 3
	DefaultPageLimit     = 20
	MaxPageLimit         = 100
	SearchResultLimit    = 10
)

type FacultyService struct {
	store      repository.Store
	images     *ImageService
	now        func() time.Time
	dailyLimit int
}

type FacultyOption func(*FacultyService)

// WithClock replaces time.Now, which decides the quota day boundary.
func WithClock(now func() time.Time) FacultyOption {
	return func(s *FacultyService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithImages lets submissions attach images uploaded through images.
func WithImages(images *ImageService) FacultyOption {
	return func(s *FacultyService) {
		s.images = images
	}
}

func WithDailyAddLimit(limit int) FacultyOption {
	return func(s *FacultyService) {
		if limit > 0 {
			s.dailyLimit = limit
		}
	}
}

func NewFacultyService(store repository.Store, opts ...FacultyOption) *FacultyService {
	s := &FacultyService{
		store:      store,
		now:        time.Now,
		dailyLimit: DefaultDailyAddLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitFacultyInput is a proposed faculty record. ImageTicket, when set,
// must come from an upload by UserID and overrides ImageURL.
type SubmitFacultyInput struct {
	UserID      string
	Name        string
	Department  string
	Bio         string
	ImageURL    string
	ImageTicket string
	Ratings     Ratings
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func userLock(userID string) string { return "faculty:user:" + userID }

func nameLock(name string) string { return "faculty:name:" + models.NameKey(name) }

// SubmitFaculty creates an unverified faculty record and its add log entry in
// one transaction. The per-user lock serializes the quota count and the
// per-name lock serializes the duplicate check.
func (s *FacultyService) SubmitFaculty(ctx context.Context, in SubmitFacultyInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", ErrInvalidName
	}
	if err := in.Ratings.Validate(); err != nil {
		return "", err
	}

	imageURL, imagePublicID := strings.TrimSpace(in.ImageURL), ""
	if in.ImageTicket != "" {
		img, err := s.images.Claim(in.UserID, in.ImageTicket)
		if err != nil {
			return "", err
		}
		imageURL, imagePublicID = img.URL, img.PublicID
	}

	var facultyID string
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		now := s.now()

		added, err := tx.CountLogs(repository.LogFilter{
			UserID: in.UserID,
			Action: models.FacultyActionAdd,
			Since:  startOfDay(now),
		})
		if err != nil {
			return err
		}
		if added >= int64(s.dailyLimit) {
			return ErrQuotaExceeded
		}

		if _, err := tx.FacultyByName(name); err == nil {
			return ErrDuplicateName
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		faculty := &models.Faculty{
			Name:          name,
			Department:    strings.TrimSpace(in.Department),
			Bio:           strings.TrimSpace(in.Bio),
			ImageURL:      imageURL,
			ImagePublicID: imagePublicID,
			Teaching:      models.RatingDimension{Average: in.Ratings.Teaching, Count: 1},
			Correction:    models.RatingDimension{Average: in.Ratings.Correction, Count: 1},
			Attendance:    models.RatingDimension{Average: in.Ratings.Attendance, Count: 1},
			Verification:  false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateFaculty(faculty); err != nil {
			return err
		}

		if err := tx.AppendLog(&models.FacultyLog{
			UserID:      in.UserID,
			FacultyName: name,
			Action:      models.FacultyActionAdd,
			LoggedAt:    now,
		}); err != nil {
			return err
		}

		facultyID = faculty.FacultyID
		return nil
	}, userLock(in.UserID), nameLock(name))
	if err != nil {
		return "", storageErr("submit faculty", err)
	}
	return facultyID, nil
}

// RateFaculty folds one user's ratings into the faculty's running averages and
// returns the new averages rounded for display.
func (s *FacultyService) RateFaculty(ctx context.Context, userID, facultyID string, r Ratings) (Ratings, error) {
	if err := r.Validate(); err != nil {
		return Ratings{}, err
	}

	var result Ratings
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		faculty, err := tx.FacultyByID(facultyID, true)
		if err != nil {
			return notFound(err, ErrNotFound)
		}

		rated, err := tx.CountLogs(repository.LogFilter{
			UserID:      userID,
			FacultyName: faculty.Name,
			Action:      models.FacultyActionRate,
		})
		if err != nil {
			return err
		}
		if rated > 0 {
			return ErrAlreadyRated
		}

		now := s.now()
		applyRatings(faculty, r)
		faculty.UpdatedAt = now
		if err := tx.UpdateRatings(faculty); err != nil {
			return notFound(err, ErrNotFound)
		}

		rateKey := models.RateKey(userID, faculty.Name)
		err = tx.AppendLog(&models.FacultyLog{
			UserID:      userID,
			FacultyName: faculty.Name,
			Action:      models.FacultyActionRate,
			RateKey:     &rateKey,
			LoggedAt:    now,
		})
		if errors.Is(err, repository.ErrDuplicateKey) {
			return ErrAlreadyRated
		}
		if err != nil {
			return err
		}

		result = rounded(faculty)
		return nil
	})
	if err != nil {
		return Ratings{}, storageErr("rate faculty", err)
	}
	return result, nil
}

// HasRated reports whether userID already has a rate entry for the faculty's name.
func (s *FacultyService) HasRated(ctx context.Context, userID, facultyID string) (bool, error) {
	var rated bool
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		faculty, err := tx.FacultyByID(facultyID, false)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		n, err := tx.CountLogs(repository.LogFilter{
			UserID:      userID,
			FacultyName: faculty.Name,
			Action:      models.FacultyActionRate,
		})
		if err != nil {
			return err
		}
		rated = n > 0
		return nil
	})
	if err != nil {
		return false, storageErr("has rated", err)
	}
	return rated, nil
}

type FacultyPage struct {
	CurrentPage  int              `json:"currentPage"`
	TotalPages   int              `json:"totalPages"`
	TotalFaculty int64            `json:"totalFaculty"`
	Faculty      []models.Faculty `json:"faculty"`
}

// List returns a page of verified faculty, optionally filtered by a
// case-insensitive substring over name or department.
func (s *FacultyService) List(ctx context.Context, page, limit int, search string) (*FacultyPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	verified := true
	out := &FacultyPage{CurrentPage: page, Faculty: []models.Faculty{}}
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		rows, total, err := tx.ListFaculties(repository.FacultyQuery{
			Verified: &verified,
			Search:   search,
			Offset:   (page - 1) * limit,
			Limit:    limit,
		})
		if err != nil {
			return err
		}
		out.Faculty = rows
		out.TotalFaculty = total
		out.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
		return nil
	})
	if err != nil {
		return nil, storageErr("list faculty", err)
	}
	return out, nil
}

type FacultySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Search is the typeahead lookup over verified faculty names.
func (s *FacultyService) Search(ctx context.Context, q string) ([]FacultySummary, error) {
	out := []FacultySummary{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}

	verified := true
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		rows, _, err := tx.ListFaculties(repository.FacultyQuery{
			Verified: &verified,
			Search:   q,
			NameOnly: true,
			Limit:    SearchResultLimit,
		})
		if err != nil {
			return err
		}
		for _, f := range rows {
			out = append(out, FacultySummary{ID: f.FacultyID, Name: f.Name, ImageURL: f.ImageURL})
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("search faculty", err)
	}
	return out, nil
}

func (s *FacultyService) Get(ctx context.Context, id string) (*models.Faculty, error) {
	var faculty *models.Faculty
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		f, err := tx.FacultyByID(id, false)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		faculty = f
		return nil
	})
	if err != nil {
		return nil, storageErr("get faculty", err)
	}
	return faculty, nil
}

// GetByName matches the name case-insensitively and exactly.
func (s *FacultyService) GetByName(ctx context.Context, name string) (*models.Faculty, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNotFound
	}
	var faculty *models.Faculty
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		f, err := tx.FacultyByName(name)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		faculty = f
		return nil
	})
	if err != nil {
		return nil, storageErr("get faculty by name", err)
	}
	return faculty, nil
}
