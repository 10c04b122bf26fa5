package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	classColumns      = `id, name, description, duration_minutes, difficulty, category, max_capacity, equipment, status, created_at, updated_at`
	instructorColumns = `id, name, email, phone, specialties, certifications, experience_years, status, created_at, updated_at`
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// nullableArray keeps nil slices as NULL so COALESCE leaves the column unchanged.
func nullableArray(items []string) interface{} {
	if items == nil {
		return nil
	}
	return pq.Array(items)
}

func (r *Repository) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	equipment := req.Equipment
	if equipment == nil {
		equipment = []string{}
	}

	var c Class
	err := r.db.GetContext(ctx, &c, `
		INSERT INTO classes (name, description, duration_minutes, difficulty, category, max_capacity, equipment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+classColumns,
		req.Name, req.Description, req.DurationMinutes, req.Difficulty, req.Category,
		req.MaxCapacity, pq.Array(equipment), orDefault(req.Status, StatusActive),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetClass(ctx context.Context, id int) (*Class, error) {
	var c Class
	if err := r.db.GetContext(ctx, &c, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes`
	var conds []string
	var args []interface{}

	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("status", filter.Status)
	add("category", filter.Category)
	add("difficulty", filter.Difficulty)

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name ASC"

	classes := []Class{}
	err := r.db.SelectContext(ctx, &classes, query, args...)
	return classes, err
}

func (r *Repository) UpdateClass(ctx context.Context, id int, req UpdateClassRequest) (*Class, error) {
	var c Class
	err := r.db.GetContext(ctx, &c, `
		UPDATE classes
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    duration_minutes = COALESCE($4, duration_minutes),
		    difficulty = COALESCE($5, difficulty),
		    category = COALESCE($6, category),
		    max_capacity = COALESCE($7, max_capacity),
		    equipment = COALESCE($8, equipment),
		    status = COALESCE($9, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+classColumns,
		id, req.Name, req.Description, req.DurationMinutes, req.Difficulty, req.Category,
		req.MaxCapacity, nullableArray(req.Equipment), req.Status,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) DeleteClass(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM classes
		WHERE id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM schedule_slots WHERE class_id = $1 AND status = 'active'
		  )
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) CreateInstructor(ctx context.Context, req CreateInstructorRequest) (*Instructor, error) {
	specialties, certifications := req.Specialties, req.Certifications
	if specialties == nil {
		specialties = []string{}
	}
	if certifications == nil {
		certifications = []string{}
	}

	var i Instructor
	err := r.db.GetContext(ctx, &i, `
		INSERT INTO instructors (name, email, phone, specialties, certifications, experience_years, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+instructorColumns,
		req.Name, req.Email, req.Phone, pq.Array(specialties), pq.Array(certifications),
		req.ExperienceYears, orDefault(req.Status, StatusActive),
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Repository) GetInstructor(ctx context.Context, id int) (*Instructor, error) {
	var i Instructor
	if err := r.db.GetContext(ctx, &i, `SELECT `+instructorColumns+` FROM instructors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Repository) ListInstructors(ctx context.Context, status string) ([]Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY name ASC"

	instructors := []Instructor{}
	err := r.db.SelectContext(ctx, &instructors, query, args...)
	return instructors, err
}

func (r *Repository) UpdateInstructor(ctx context.Context, id int, req UpdateInstructorRequest) (*Instructor, error) {
	var i Instructor
	err := r.db.GetContext(ctx, &i, `
		UPDATE instructors
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    specialties = COALESCE($5, specialties),
		    certifications = COALESCE($6, certifications),
		    experience_years = COALESCE($7, experience_years),
		    status = COALESCE($8, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+instructorColumns,
		id, req.Name, req.Email, req.Phone, nullableArray(req.Specialties),
		nullableArray(req.Certifications), req.ExperienceYears, req.Status,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Repository) DeleteInstructor(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM instructors
		WHERE id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM schedule_slots WHERE instructor_id = $1 AND status = 'active'
		  )
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) ListClassInstructors(ctx context.Context, classID int) ([]Instructor, error) {
	instructors := []Instructor{}
	err := r.db.SelectContext(ctx, &instructors, `
		SELECT i.id, i.name, i.email, i.phone, i.specialties, i.certifications,
		       i.experience_years, i.status, i.created_at, i.updated_at
		FROM instructors i
		JOIN class_instructors ci ON ci.instructor_id = i.id
		WHERE ci.class_id = $1
		ORDER BY i.name ASC
	`, classID)
	return instructors, err
}

func (r *Repository) AssignInstructor(ctx context.Context, classID, instructorID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_instructors (class_id, instructor_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, classID, instructorID)
	return err
}

func (r *Repository) UnassignInstructor(ctx context.Context, classID, instructorID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM class_instructors WHERE class_id = $1 AND instructor_id = $2`, classID, instructorID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
