package pos

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/utils"
)

func (s *Service) UpdateBusinessSettings(ctx context.Context, input models.UpdateBusinessSettingsInput) (*models.BusinessSettings, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	who := actorFromContext(ctx)

	stored, err := models.GetBusinessSettings(s.db)
	if err != nil {
		return nil, err
	}

	updated := *stored
	updated.StoreName = input.StoreName
	updated.Address = input.Address
	updated.Phone = input.Phone
	updated.Currency = input.Currency
	updated.ReceiptFooter = input.ReceiptFooter
	updated.WhatsAppNumber = input.WhatsAppNumber
	updated.Version = stored.Version + 1
	updated.LastModifiedBy = who.id
	updated.LastModifiedByName = who.name

	if err := commitRecord(s, models.SyncOpUpdateSettings, updated.ID, &updated); err != nil {
		return nil, err
	}

	s.audit(ctx, "UPDATE_SETTINGS", fmt.Sprintf("updated store settings for %q", updated.StoreName))

	s.mu.Lock()
	s.settings = updated
	s.mu.Unlock()
	s.publish(Event{Kind: "settings", Record: updated})
	return &updated, nil
}
