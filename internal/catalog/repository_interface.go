package catalog

import "context"

type RepositoryInterface interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	GetClass(ctx context.Context, id int) (*Class, error)
	ListClasses(ctx context.Context, filter ClassFilter) ([]Class, error)
	UpdateClass(ctx context.Context, id int, req UpdateClassRequest) (*Class, error)
	// DeleteClass removes the class unless an active slot references it.
	// It reports whether a row was deleted.
	DeleteClass(ctx context.Context, id int) (bool, error)

	CreateInstructor(ctx context.Context, req CreateInstructorRequest) (*Instructor, error)
	GetInstructor(ctx context.Context, id int) (*Instructor, error)
	ListInstructors(ctx context.Context, status string) ([]Instructor, error)
	UpdateInstructor(ctx context.Context, id int, req UpdateInstructorRequest) (*Instructor, error)
	DeleteInstructor(ctx context.Context, id int) (bool, error)

	ListClassInstructors(ctx context.Context, classID int) ([]Instructor, error)
	AssignInstructor(ctx context.Context, classID, instructorID int) error
	UnassignInstructor(ctx context.Context, classID, instructorID int) (bool, error)
}
