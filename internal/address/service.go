package address

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddressDTO is the transport shape of a saved address.
type AddressDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Address1  string    `json:"address1"`
	Address2  *string   `json:"address2,omitempty"`
	City      string    `json:"city"`
	Province  string    `json:"province"`
	Country   string    `json:"country"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertAddressRequest creates or edits a saved address.
type UpsertAddressRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=100"`
	Address1  string  `json:"address1" validate:"required,min=3,max=200"`
	Address2  *string `json:"address2,omitempty" validate:"omitempty,max=200"`
	City      string  `json:"city" validate:"required,min=2,max=100"`
	Province  string  `json:"province" validate:"required,min=2,max=100"`
	Zip       string  `json:"zip" validate:"required,min=2,max=20"`
	Phone     string  `json:"phone" validate:"required,min=8,max=20"`
	IsDefault bool    `json:"is_default"`
}

// Service exposes saved address management for a customer.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req UpsertAddressRequest) (AddressDTO, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, req UpsertAddressRequest) (AddressDTO, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) (AddressDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds the saved address service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address repo is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// List returns the user's saved addresses, default first.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	dtos := make([]AddressDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toDTO(record))
	}
	return dtos, nil
}

// Create saves a new address. Marking it default demotes the previous
// default in the same transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req UpsertAddressRequest) (AddressDTO, error) {
	if userID == uuid.Nil {
		return AddressDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	record := models.Address{
		UserID:    userID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Address1:  strings.TrimSpace(req.Address1),
		Address2:  req.Address2,
		City:      strings.TrimSpace(req.City),
		Province:  strings.TrimSpace(req.Province),
		Country:   "KW",
		Zip:       strings.TrimSpace(req.Zip),
		Phone:     strings.TrimSpace(req.Phone),
		IsDefault: req.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if record.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := repo.Create(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toDTO(record), nil
}

// Update edits a saved address in place.
func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, req UpsertAddressRequest) (AddressDTO, error) {
	record, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}

	record.FirstName = strings.TrimSpace(req.FirstName)
	record.LastName = strings.TrimSpace(req.LastName)
	record.Address1 = strings.TrimSpace(req.Address1)
	record.Address2 = req.Address2
	record.City = strings.TrimSpace(req.City)
	record.Province = strings.TrimSpace(req.Province)
	record.Zip = strings.TrimSpace(req.Zip)
	record.Phone = strings.TrimSpace(req.Phone)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.IsDefault && !record.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
			record.IsDefault = true
		}
		if err := repo.Update(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toDTO(*record), nil
}

// Delete removes a saved address.
func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and address id are required")
	}
	deleted, err := s.repo.Delete(ctx, addressID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// SetDefault promotes one address and demotes the rest atomically.
func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) (AddressDTO, error) {
	record, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
		promoted, err := repo.SetDefault(ctx, addressID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
		}
		if !promoted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}

	record.IsDefault = true
	return toDTO(*record), nil
}

func (s *service) findOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and address id are required")
	}
	record, err := s.repo.FindByIDForUser(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return record, nil
}

func toDTO(record models.Address) AddressDTO {
	return AddressDTO{
		ID:        record.ID,
		FirstName: record.FirstName,
		LastName:  record.LastName,
		Address1:  record.Address1,
		Address2:  record.Address2,
		City:      record.City,
		Province:  record.Province,
		Country:   record.Country,
		Zip:       record.Zip,
		Phone:     record.Phone,
		IsDefault: record.IsDefault,
		CreatedAt: record.CreatedAt,
	}
}
