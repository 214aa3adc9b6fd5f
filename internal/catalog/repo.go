package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gelatokw/scoops-backend/pkg/db/models"
)

// Repository reads the gelato reference data: flavors, containers, toppings.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListFlavors returns flavors, optionally filtered to active ones.
func (r *Repository) ListFlavors(ctx context.Context, activeOnly bool) ([]models.Flavor, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Flavor
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindFlavorByID loads one flavor by UUID.
func (r *Repository) FindFlavorByID(ctx context.Context, id uuid.UUID) (*models.Flavor, error) {
	var flavor models.Flavor
	if err := r.db.WithContext(ctx).First(&flavor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &flavor, nil
}

// FindFlavorBySlug loads one flavor by its URL slug.
func (r *Repository) FindFlavorBySlug(ctx context.Context, slug string) (*models.Flavor, error) {
	var flavor models.Flavor
	if err := r.db.WithContext(ctx).First(&flavor, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &flavor, nil
}

// ListContainers returns all container options ordered by price.
func (r *Repository) ListContainers(ctx context.Context) ([]models.ContainerOption, error) {
	var rows []models.ContainerOption
	if err := r.db.WithContext(ctx).Order("price_fils ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindContainerByID loads one container option.
func (r *Repository) FindContainerByID(ctx context.Context, id uuid.UUID) (*models.ContainerOption, error) {
	var container models.ContainerOption
	if err := r.db.WithContext(ctx).First(&container, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &container, nil
}

// ListToppings returns all topping options grouped by category.
func (r *Repository) ListToppings(ctx context.Context) ([]models.ToppingOption, error) {
	var rows []models.ToppingOption
	if err := r.db.WithContext(ctx).Order("category ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindToppingsByIDs loads the topping rows matching the given IDs. Callers
// must check the returned count against the requested count.
func (r *Repository) FindToppingsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ToppingOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ToppingOption
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
