package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/anquanyun/safety-approval/internal/models"
)

// DirectoryRepository stores the user/department directory that approver
// resolution runs against. The directory is synced in from the HR system;
// this service never edits individual entries.
type DirectoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sql.DB, logger *zap.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertUser inserts or replaces a directory user.
func (r *DirectoryRepository) UpsertUser(tx *sql.Tx, user *models.User) error {
	query := `
		INSERT INTO users (id, name, department_id, department, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department_id = excluded.department_id,
			department = excluded.department,
			role = excluded.role
	`

	exec := r.db.Exec
	if tx != nil {
		exec = tx.Exec
	}

	if _, err := exec(query, user.ID, user.Name, user.DepartmentID, user.Department, user.Role); err != nil {
		r.logger.Error("Failed to upsert user", zap.String("id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpsertDepartment inserts or replaces a department.
func (r *DirectoryRepository) UpsertDepartment(tx *sql.Tx, dept *models.Department) error {
	query := `
		INSERT INTO departments (id, name, manager_id)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manager_id = excluded.manager_id
	`

	exec := r.db.Exec
	if tx != nil {
		exec = tx.Exec
	}

	if _, err := exec(query, dept.ID, dept.Name, dept.ManagerID); err != nil {
		r.logger.Error("Failed to upsert department", zap.String("id", dept.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert department: %w", err)
	}
	return nil
}

// Snapshot loads the full directory for one resolution pass. Safety-site
// directories are small; loading everything keeps the resolver pure.
func (r *DirectoryRepository) Snapshot() (*models.DirectoryData, error) {
	users, err := r.users()
	if err != nil {
		return nil, err
	}
	departments, err := r.departments()
	if err != nil {
		return nil, err
	}

	return &models.DirectoryData{Users: users, Departments: departments}, nil
}

func (r *DirectoryRepository) users() ([]models.User, error) {
	rows, err := r.db.Query(`SELECT id, name, department_id, department, role FROM users ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.DepartmentID, &u.Department, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *DirectoryRepository) departments() ([]models.Department, error) {
	rows, err := r.db.Query(`SELECT id, name, manager_id FROM departments ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to query departments", zap.Error(err))
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var d models.Department
		var managerID sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &managerID); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		d.ManagerID = managerID.String
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
