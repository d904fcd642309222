// Package memstore is an in-process store.Store.
//
// Every operation holds the store mutex; WithinTx holds it for the whole
// callback and restores a snapshot when the callback fails, so transactions
// are serializable.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

type data struct {
	projects  map[uuid.UUID]*models.Project
	proposals map[uuid.UUID]*models.Proposal
	users     map[uuid.UUID]models.UserSummary
}

func (d *data) clone() *data {
	out := &data{
		projects:  make(map[uuid.UUID]*models.Project, len(d.projects)),
		proposals: make(map[uuid.UUID]*models.Proposal, len(d.proposals)),
		users:     make(map[uuid.UUID]models.UserSummary, len(d.users)),
	}
	for id, p := range d.projects {
		out.projects[id] = p.Clone()
	}
	for id, p := range d.proposals {
		out.proposals[id] = p.Clone()
	}
	for id, u := range d.users {
		out.users[id] = u
	}
	return out
}

type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: &data{
		projects:  map[uuid.UUID]*models.Project{},
		proposals: map[uuid.UUID]*models.Proposal{},
		users:     map[uuid.UUID]models.UserSummary{},
	}}
}

// AddUser registers a user summary for owner/assignee lookups.
func (s *Store) AddUser(u models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) Projects() store.ProjectRepo   { return projectRepo{view{root: s}} }
func (s *Store) Proposals() store.ProposalRepo { return proposalRepo{view{root: s}} }
func (s *Store) Users() store.UserDirectory    { return userDirectory{view{root: s}} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(txStore{view{root: s, tx: true}}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// view runs operations against the root data, locking unless it is already
// inside WithinTx.
type view struct {
	root *Store
	tx   bool
}

func (v view) run(ctx context.Context, fn func(d *data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.tx {
		v.root.mu.Lock()
		defer v.root.mu.Unlock()
	}
	return fn(v.root.data)
}

type txStore struct{ v view }

func (t txStore) Projects() store.ProjectRepo   { return projectRepo{t.v} }
func (t txStore) Proposals() store.ProposalRepo { return proposalRepo{t.v} }
func (t txStore) Users() store.UserDirectory    { return userDirectory{t.v} }

func (t txStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

type userDirectory struct{ v view }

func (r userDirectory) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	out := make(map[uuid.UUID]models.UserSummary, len(ids))
	err := r.v.run(ctx, func(d *data) error {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				out[id] = u
			}
		}
		return nil
	})
	return out, err
}
