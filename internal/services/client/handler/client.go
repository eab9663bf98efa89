package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/models"
	"invoicing-system/internal/logger"
	"invoicing-system/internal/services/pagination"
)

type ClientInput struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type ListClientsQuery struct {
	pagination.Params
	Search string `form:"search"`
}

type ClientHandler struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{
		db:  db,
		log: logger.WithComponent("client"),
	}
}

// FindOwned loads a client that belongs to userID.
func FindOwned(ctx context.Context, db *gorm.DB, userID, clientID int64) (*models.Client, error) {
	var client models.Client
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", clientID, userID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("client.FindOwned", "client")
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (h *ClientHandler) Create(ctx context.Context, userID int64, in ClientInput) (*models.Client, error) {
	const op = "client.Create"

	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.Validation(op, "name is required")
	}

	client := models.Client{UserID: userID}
	applyClient(&client, in)

	if err := h.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}

	h.log.Info().Int64("user_id", userID).Int64("client_id", client.ID).Msg("client created")
	return &client, nil
}

func (h *ClientHandler) Get(ctx context.Context, userID, id int64) (*models.Client, error) {
	client, err := FindOwned(ctx, h.db, userID, id)
	if err != nil {
		return nil, apperror.Persistence("client.Get", err)
	}
	return client, nil
}

func (h *ClientHandler) List(ctx context.Context, userID int64, q ListClientsQuery) ([]models.Client, pagination.Meta, error) {
	const op = "client.List"

	query := h.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID)
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(company_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}

	var clients []models.Client
	if err := query.Scopes(q.Params.Scope).Order("name ASC").Find(&clients).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}

	return clients, q.Params.Meta(total), nil
}

func (h *ClientHandler) Update(ctx context.Context, userID, id int64, in ClientInput) (*models.Client, error) {
	const op = "client.Update"

	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.Validation(op, "name is required")
	}

	client, err := FindOwned(ctx, h.db, userID, id)
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	applyClient(client, in)
	if err := h.db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}
	return client, nil
}

// Delete removes a client that no quotation or invoice references.
func (h *ClientHandler) Delete(ctx context.Context, userID, id int64) error {
	const op = "client.Delete"

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := FindOwned(ctx, tx, userID, id); err != nil {
			return err
		}

		var quotations, invoices int64
		if err := tx.Model(&models.Quotation{}).Where("client_id = ?", id).Count(&quotations).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if quotations+invoices > 0 {
			return apperror.Validation(op, "client still has %d quotation(s) and %d invoice(s)", quotations, invoices)
		}

		return tx.Delete(&models.Client{}, id).Error
	})
	if err != nil {
		return apperror.Persistence(op, err)
	}

	h.log.Info().Int64("user_id", userID).Int64("client_id", id).Msg("client deleted")
	return nil
}

func applyClient(c *models.Client, in ClientInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.CompanyName = strings.TrimSpace(in.CompanyName)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
}
