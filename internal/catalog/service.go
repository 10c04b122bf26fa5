package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/apperr"
	"gymdesk/internal/logger"
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	GetClass(ctx context.Context, id int) (*Class, error)
	ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error)
	UpdateClass(ctx context.Context, id int, req UpdateClassRequest) (*Class, error)
	DeleteClass(ctx context.Context, id int) error

	CreateInstructor(ctx context.Context, req CreateInstructorRequest) (*Instructor, error)
	GetInstructor(ctx context.Context, id int) (*Instructor, error)
	ListInstructors(ctx context.Context, status string) ([]Instructor, error)
	UpdateInstructor(ctx context.Context, id int, req UpdateInstructorRequest) (*Instructor, error)
	DeleteInstructor(ctx context.Context, id int) error

	AssignInstructor(ctx context.Context, classID, instructorID int) error
	UnassignInstructor(ctx context.Context, classID, instructorID int) error
}

type service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) Service {
	return &service{repo: repo}
}

func notFound(err error, what string, id int) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s not found", what)
	}
	return fmt.Errorf("%s %d: %w", what, id, err)
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	c, err := s.repo.CreateClass(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	logger.Infof("Class created: ID=%d, Name=%s", c.ID, c.Name)
	return c, nil
}

// GetClass returns the class with its assigned instructors.
func (s *service) GetClass(ctx context.Context, id int) (*Class, error) {
	c, err := s.repo.GetClass(ctx, id)
	if err != nil {
		return nil, notFound(err, "class", id)
	}

	instructors, err := s.repo.ListClassInstructors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("class %d instructors: %w", id, err)
	}
	c.Instructors = instructors
	return c, nil
}

func (s *service) ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error) {
	return s.repo.ListClasses(ctx, filter)
}

func (s *service) UpdateClass(ctx context.Context, id int, req UpdateClassRequest) (*Class, error) {
	c, err := s.repo.UpdateClass(ctx, id, req)
	if err != nil {
		return nil, notFound(err, "class", id)
	}
	return c, nil
}

func (s *service) DeleteClass(ctx context.Context, id int) error {
	deleted, err := s.repo.DeleteClass(ctx, id)
	if err != nil {
		return fmt.Errorf("delete class %d: %w", id, err)
	}
	if deleted {
		logger.Infof("Class deleted: ID=%d", id)
		return nil
	}

	if _, err := s.repo.GetClass(ctx, id); err != nil {
		return notFound(err, "class", id)
	}
	return apperr.Conflict("class has active schedule slots")
}

func (s *service) CreateInstructor(ctx context.Context, req CreateInstructorRequest) (*Instructor, error) {
	i, err := s.repo.CreateInstructor(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create instructor: %w", err)
	}
	logger.Infof("Instructor created: ID=%d, Name=%s", i.ID, i.Name)
	return i, nil
}

func (s *service) GetInstructor(ctx context.Context, id int) (*Instructor, error) {
	i, err := s.repo.GetInstructor(ctx, id)
	if err != nil {
		return nil, notFound(err, "instructor", id)
	}
	return i, nil
}

func (s *service) ListInstructors(ctx context.Context, status string) ([]Instructor, error) {
	return s.repo.ListInstructors(ctx, status)
}

func (s *service) UpdateInstructor(ctx context.Context, id int, req UpdateInstructorRequest) (*Instructor, error) {
	i, err := s.repo.UpdateInstructor(ctx, id, req)
	if err != nil {
		return nil, notFound(err, "instructor", id)
	}
	return i, nil
}

func (s *service) DeleteInstructor(ctx context.Context, id int) error {
	deleted, err := s.repo.DeleteInstructor(ctx, id)
	if err != nil {
		return fmt.Errorf("delete instructor %d: %w", id, err)
	}
	if deleted {
		logger.Infof("Instructor deleted: ID=%d", id)
		return nil
	}

	if _, err := s.repo.GetInstructor(ctx, id); err != nil {
		return notFound(err, "instructor", id)
	}
	return apperr.Conflict("instructor has active schedule slots")
}

func (s *service) AssignInstructor(ctx context.Context, classID, instructorID int) error {
	if _, err := s.repo.GetClass(ctx, classID); err != nil {
		return notFound(err, "class", classID)
	}
	if _, err := s.repo.GetInstructor(ctx, instructorID); err != nil {
		return notFound(err, "instructor", instructorID)
	}
	if err := s.repo.AssignInstructor(ctx, classID, instructorID); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

func (s *service) UnassignInstructor(ctx context.Context, classID, instructorID int) error {
	removed, err := s.repo.UnassignInstructor(ctx, classID, instructorID)
	if err != nil {
		return fmt.Errorf("unassign instructor: %w", err)
	}
	if !removed {
		return apperr.NotFound("instructor is not assigned to this class")
	}
	return nil
}
