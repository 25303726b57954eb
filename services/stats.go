package services

import (
	"context"
	"time"

	"faculty-ranker-api/repository"
)

type Stats struct {
	VerifiedFaculty int64  `json:"verifiedFaculty"`
	PendingFaculty  int64  `json:"pendingFaculty"`
	Users           int    `json:"users"`
	BannedUsers     int    `json:"bannedUsers"`
	Uptime          string `json:"uptime"`
}

type StatsService struct {
	store   repository.Store
	started time.Time
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store, started: time.Now()}
}

func (s *StatsService) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{Uptime: time.Since(s.started).Round(time.Second).String()}
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		var err error
		if out.VerifiedFaculty, err = tx.CountFaculties(true); err != nil {
			return err
		}
		if out.PendingFaculty, err = tx.CountFaculties(false); err != nil {
			return err
		}
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		out.Users = len(users)
		for _, u := range users {
			if u.Banned {
				out.BannedUsers++
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("stats", err)
	}
	return out, nil
}
