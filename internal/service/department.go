package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

var departmentCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)

// DepartmentService handles department administration.
type DepartmentService struct {
	departments *repository.DepartmentRepository
	users       *repository.UserRepository
}

// NewDepartmentService creates a new DepartmentService.
func NewDepartmentService(departments *repository.DepartmentRepository, users *repository.UserRepository) *DepartmentService {
	return &DepartmentService{departments: departments, users: users}
}

// Create registers a new department.
func (s *DepartmentService) Create(ctx context.Context, name, code string, managerID *uint) (*model.Department, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !departmentCodePattern.MatchString(code) {
		return nil, apperror.Validation("department code must be 2-20 uppercase alphanumeric characters or hyphens")
	}
	if managerID != nil {
		if _, err := s.users.GetByID(ctx, *managerID); err != nil {
			return nil, err
		}
	}
	dept := &model.Department{Name: name, Code: code, ManagerID: managerID}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// Get retrieves a department.
func (s *DepartmentService) Get(ctx context.Context, id uint) (*model.Department, error) {
	return s.departments.GetByID(ctx, id)
}

// List returns all departments.
func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	return s.departments.List(ctx)
}

// Update changes name and manager. Codes are immutable once assigned.
func (s *DepartmentService) Update(ctx context.Context, id uint, name *string, managerID *uint) (*model.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		dept.Name = *name
	}
	if managerID != nil {
		if _, err := s.users.GetByID(ctx, *managerID); err != nil {
			return nil, err
		}
		dept.ManagerID = managerID
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// Delete removes a department, refusing while rooms reference it.
func (s *DepartmentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.departments.GetByID(ctx, id); err != nil {
		return err
	}
	hasRooms, err := s.departments.HasRooms(ctx, id)
	if err != nil {
		return err
	}
	if hasRooms {
		return apperror.New(apperror.KindConflict, "department still has rooms")
	}
	return s.departments.Delete(ctx, id)
}
