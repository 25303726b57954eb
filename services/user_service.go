package services

import (
	"context"

	"faculty-ranker-api/models"
	"faculty-ranker-api/repository"
)

type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// ActiveUser returns the user behind a token, rejecting deleted and banned accounts.
func (s *UserService) ActiveUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, ErrBanned
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByID(id)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		rows, err := tx.ListUsers()
		users = rows
		return err
	})
	if err != nil {
		return nil, storageErr("list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// SetBanned sets the ban flag and returns the updated user.
func (s *UserService) SetBanned(ctx context.Context, id string, banned bool) (*models.User, error) {
	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByID(id)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		u.Banned = banned
		if err := tx.UpdateUser(u); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, storageErr("set banned", err)
	}
	return user, nil
}

type Dashboard struct {
	User *models.User        `json:"user"`
	Logs []models.FacultyLog `json:"logs"`
}

// Dashboard returns the user's profile and activity, newest first.
func (s *UserService) Dashboard(ctx context.Context, id string) (*Dashboard, error) {
	out := &Dashboard{}
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByID(id)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		logs, err := tx.LogsByUser(id)
		if err != nil {
			return err
		}
		out.User = u
		out.Logs = logs
		return nil
	})
	if err != nil {
		return nil, storageErr("dashboard", err)
	}
	if out.Logs == nil {
		out.Logs = []models.FacultyLog{}
	}
	return out, nil
}
