package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"faculty-ranker-api/models"
	"faculty-ranker-api/repository"

	"go.uber.org/zap"
)

const DefaultNotifyTimeout = 10 * time.Second

// ImageDestroyer removes a stored faculty image.
type ImageDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

type ModerationService struct {
	store         repository.Store
	notifier      RejectionNotifier
	images        ImageDestroyer
	logger        *zap.Logger
	notifyTimeout time.Duration
}

func NewModerationService(store repository.Store, notifier RejectionNotifier, images ImageDestroyer, logger *zap.Logger, notifyTimeout time.Duration) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}
	return &ModerationService{
		store:         store,
		notifier:      notifier,
		images:        images,
		logger:        logger,
		notifyTimeout: notifyTimeout,
	}
}

// Submitter identifies the user who proposed a faculty record.
type Submitter struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type PendingFaculty struct {
	models.Faculty
	AddedBy *Submitter `json:"addedBy"`
}

// Approve marks the record verified. Approving a verified record is a no-op.
func (s *ModerationService) Approve(ctx context.Context, id string) (*models.Faculty, error) {
	var faculty *models.Faculty
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		if err := tx.SetVerification(id, true); err != nil {
			return notFound(err, ErrNotFound)
		}
		f, err := tx.FacultyByID(id, false)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		faculty = f
		return nil
	})
	if err != nil {
		return nil, storageErr("approve faculty", err)
	}
	return faculty, nil
}

// Reject deletes the record, then best-effort removes its image and notifies
// the submitter. Neither follow-up can fail the rejection.
func (s *ModerationService) Reject(ctx context.Context, id string) error {
	var (
		faculty     *models.Faculty
		submitter   *Submitter
		imageShared bool
	)
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		f, err := tx.FacultyByID(id, true)
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		faculty = f

		submitter, err = resolveSubmitter(tx, f.Name)
		if err != nil {
			s.logger.Warn("submitter lookup failed",
				zap.String("faculty_id", id),
				zap.String("faculty_name", f.Name),
				zap.Error(err))
			submitter = nil
		}

		if err := tx.DeleteFaculty(id); err != nil {
			return notFound(err, ErrNotFound)
		}

		if f.ImagePublicID != "" {
			refs, err := tx.CountImageRefs(f.ImagePublicID)
			if err != nil {
				return err
			}
			imageShared = refs > 0
		}
		return nil
	})
	if err != nil {
		return storageErr("reject faculty", err)
	}

	// The row lock is released by now. Follow-ups ignore request cancellation
	// and are each bounded by notifyTimeout instead.
	bg := detachedContext(ctx)

	if imageShared {
		s.logger.Info("image kept, still used by another faculty",
			zap.String("faculty_id", id),
			zap.String("public_id", faculty.ImagePublicID))
	} else if faculty.ImagePublicID != "" && s.images != nil {
		imgCtx, cancel := context.WithTimeout(bg, s.notifyTimeout)
		if err := s.images.Destroy(imgCtx, faculty.ImagePublicID); err != nil {
			s.logger.Warn("image destroy failed",
				zap.String("faculty_id", id),
				zap.String("public_id", faculty.ImagePublicID),
				zap.Error(err))
		}
		cancel()
	}

	if submitter == nil {
		s.logger.Info("faculty rejected without resolvable submitter", zap.String("faculty_name", faculty.Name))
		return nil
	}
	if s.notifier == nil || submitter.Email == "" {
		return nil
	}

	notifyCtx, cancel := context.WithTimeout(bg, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyRejection(notifyCtx, submitter.Email, faculty.Name); err != nil {
		s.logger.Error("rejection notification failed",
			zap.String("faculty_name", faculty.Name),
			zap.String("recipient", submitter.Email),
			zap.Error(err))
		return nil
	}
	s.logger.Info("rejection notification sent",
		zap.String("faculty_name", faculty.Name),
		zap.String("recipient", submitter.Email))
	return nil
}

// ListUnverified returns every pending record, oldest first, with its
// submitter or nil when none can be resolved.
func (s *ModerationService) ListUnverified(ctx context.Context) ([]PendingFaculty, error) {
	out := []PendingFaculty{}
	verified := false
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		rows, _, err := tx.ListFaculties(repository.FacultyQuery{Verified: &verified})
		if err != nil {
			return err
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		})

		for _, f := range rows {
			submitter, err := resolveSubmitter(tx, f.Name)
			if err != nil {
				return err
			}
			out = append(out, PendingFaculty{Faculty: f, AddedBy: submitter})
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list unverified", err)
	}
	return out, nil
}

// resolveSubmitter follows the latest add log for name to its user. A missing
// log or user yields nil without error.
func resolveSubmitter(tx repository.Tx, name string) (*Submitter, error) {
	entry, err := tx.LatestAddLog(name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := tx.UserByID(entry.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Submitter{ID: user.UserID, Username: user.Username, Email: user.Email}, nil
}
