package catalog

import (
	"time"

	"github.com/lib/pq"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var Difficulties = []string{"Beginner", "Intermediate", "Advanced", "Mixed"}

type Class struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Description     *string        `db:"description" json:"description,omitempty"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Difficulty      string         `db:"difficulty" json:"difficulty"`
	Category        *string        `db:"category" json:"category,omitempty"`
	MaxCapacity     int            `db:"max_capacity" json:"max_capacity"`
	Equipment       pq.StringArray `db:"equipment" json:"equipment"`
	Status          string         `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	Instructors []Instructor `db:"-" json:"instructors,omitempty"`
}

type Instructor struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           *string        `db:"email" json:"email,omitempty"`
	Phone           *string        `db:"phone" json:"phone,omitempty"`
	Specialties     pq.StringArray `db:"specialties" json:"specialties"`
	Certifications  pq.StringArray `db:"certifications" json:"certifications"`
	ExperienceYears int            `db:"experience_years" json:"experience_years"`
	Status          string         `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

type ClassFilter struct {
	Status     string
	Category   string
	Difficulty string
}

type CreateClassRequest struct {
	Name            string   `json:"name" binding:"required,min=2,max=100"`
	Description     *string  `json:"description" binding:"omitempty,max=1000"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,min=5,max=480"`
	Difficulty      string   `json:"difficulty" binding:"required,oneof=Beginner Intermediate Advanced Mixed"`
	Category        *string  `json:"category" binding:"omitempty,max=50"`
	MaxCapacity     int      `json:"max_capacity" binding:"required,min=1,max=500"`
	Equipment       []string `json:"equipment"`
	Status          string   `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateClassRequest is a partial update; nil fields are left unchanged.
type UpdateClassRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Description     *string  `json:"description" binding:"omitempty,max=1000"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Difficulty      *string  `json:"difficulty" binding:"omitempty,oneof=Beginner Intermediate Advanced Mixed"`
	Category        *string  `json:"category" binding:"omitempty,max=50"`
	MaxCapacity     *int     `json:"max_capacity" binding:"omitempty,min=1,max=500"`
	Equipment       []string `json:"equipment"`
	Status          *string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

type CreateInstructorRequest struct {
	Name            string   `json:"name" binding:"required,min=2,max=100"`
	Email           *string  `json:"email" binding:"omitempty,email"`
	Phone           *string  `json:"phone" binding:"omitempty,max=30"`
	Specialties     []string `json:"specialties"`
	Certifications  []string `json:"certifications"`
	ExperienceYears int      `json:"experience_years" binding:"gte=0,lte=60"`
	Status          string   `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UpdateInstructorRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Email           *string  `json:"email" binding:"omitempty,email"`
	Phone           *string  `json:"phone" binding:"omitempty,max=30"`
	Specialties     []string `json:"specialties"`
	Certifications  []string `json:"certifications"`
	ExperienceYears *int     `json:"experience_years" binding:"omitempty,gte=0,lte=60"`
	Status          *string  `json:"status" binding:"omitempty,oneof=active inactive"`
}
