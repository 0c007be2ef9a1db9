package pos

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
	"gorm.io/gorm"
)

func (s *Service) AddUser(ctx context.Context, input models.NewUser) (*models.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	who := actorFromContext(ctx)

	hash, err := utils.HashPin(input.Pin)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:                 utils.NewRecordId(),
		Name:               input.Name,
		Role:               input.Role,
		PinHash:            hash,
		Active:             utils.NewTrue(),
		Version:            1,
		LastModifiedBy:     who.id,
		LastModifiedByName: who.name,
	}
	if err := commitRecord(s, models.SyncOpAddUser, user.ID, &user); err != nil {
		return nil, err
	}

	s.audit(ctx, "ADD_USER", fmt.Sprintf("added %s %q", user.Role, user.Name))
	s.setUser(user)
	return &user, nil
}

// UpdateUser is last-write-wins: user records are edited from the admin
// screen of a single till, so the optimistic check products get would only
// ever trip against the sync pull, where remote is authoritative anyway.
func (s *Service) UpdateUser(ctx context.Context, input models.UpdateUserInput) (*models.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	who := actorFromContext(ctx)

	stored, err := models.GetUser(s.db, input.ID)
	if err != nil {
		return nil, err
	}

	updated := *stored
	updated.Name = input.Name
	updated.Role = input.Role
	if input.Active != nil {
		updated.Active = input.Active
	}
	if input.Pin != "" {
		hash, err := utils.HashPin(input.Pin)
		if err != nil {
			return nil, err
		}
		updated.PinHash = hash
	}
	updated.Version = stored.Version + 1
	updated.LastModifiedBy = who.id
	updated.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpUpdateUser, updated.ID, &updated); err != nil {
		return nil, err
	}

	s.audit(ctx, "UPDATE_USER", fmt.Sprintf("updated %s %q", updated.Role, updated.Name))
	s.setUser(updated)
	return &updated, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	who := actorFromContext(ctx)
	if who.id == id {
		return utils.NewValidationError("id", "cannot delete the signed-in user")
	}

	stored, err := models.GetUser(s.db, id)
	if err != nil {
		return err
	}
	if stored.Role == models.UserRoleAdmin && s.adminCount() <= 1 {
		return utils.NewValidationError("id", "cannot delete the last admin")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := models.DeleteByID[models.User](tx, id); err != nil {
			return err
		}
		return models.EnqueueSync(tx, models.SyncOpDeleteUser, id, stored)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, "DELETE_USER", fmt.Sprintf("deleted %s %q", stored.Role, stored.Name))

	s.mu.Lock()
	delete(s.users, id)
	s.mu.Unlock()
	s.publish(Event{Kind: "user", Record: *stored})
	return nil
}

func (s *Service) adminCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == models.UserRoleAdmin {
			n++
		}
	}
	return n
}

func (s *Service) setUser(u models.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	s.publish(Event{Kind: "user", Record: u})
}
