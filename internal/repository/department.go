package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

// DepartmentRepository handles department persistence.
type DepartmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository creates a new DepartmentRepository.
func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create persists a new department.
func (r *DepartmentRepository) Create(ctx context.Context, dept *model.Department) error {
	if err := r.db.WithContext(ctx).Create(dept).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Newf(apperror.KindConflict, "department code %s already exists", dept.Code)
		}
		return err
	}
	return nil
}

// GetByID retrieves a department.
func (r *DepartmentRepository) GetByID(ctx context.Context, id uint) (*model.Department, error) {
	var dept model.Department
	if err := r.db.WithContext(ctx).First(&dept, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("department")
		}
		return nil, err
	}
	return &dept, nil
}

// List returns all departments ordered by code.
func (r *DepartmentRepository) List(ctx context.Context) ([]model.Department, error) {
	var out []model.Department
	err := r.db.WithContext(ctx).Order("code ASC").Find(&out).Error
	return out, err
}

// Update saves all fields of the department.
func (r *DepartmentRepository) Update(ctx context.Context, dept *model.Department) error {
	if err := r.db.WithContext(ctx).Save(dept).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.Newf(apperror.KindConflict, "department code %s already exists", dept.Code)
		}
		return err
	}
	return nil
}

// Delete removes a department. Callers check for dependent rooms first.
func (r *DepartmentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Department{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("department")
	}
	return nil
}

// HasRooms reports whether any room references the department.
func (r *DepartmentRepository) HasRooms(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("department_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
