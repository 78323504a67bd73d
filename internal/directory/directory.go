// Package directory wraps the school directory endpoints: the parent and
// teacher listings used for recipient selection, plus the admin CRUD
// surface for parents, students and classrooms.
package directory

import (
	"context"
	"fmt"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/cache"
)

// Cache tag types provided by directory queries.
const (
	TagParent    = "Parent"
	TagTeacher   = "Teacher"
	TagStudent   = "Student"
	TagClassroom = "Classroom"
)

// User is the account record nested in directory entries.
type User struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Gender  string `json:"gender"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Record is a parent or teacher directory entry.
type Record struct {
	ID     int  `json:"id"`
	UserID int  `json:"user_id"`
	User   User `json:"user"`
}

// Student is a student directory entry.
type Student struct {
	ID          int    `json:"id"`
	ParentID    int    `json:"parent_id"`
	ClassroomID int    `json:"classroom_id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"birth_date"`
}

// Classroom is a classroom record students are assigned to.
type Classroom struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ClassroomPayload creates or updates a classroom.
type ClassroomPayload struct {
	Name string `json:"name"`
}

// ParentPayload creates or updates a parent and its underlying account.
type ParentPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	UserID   int    `json:"user_id,omitempty"`
}

// StudentPayload creates or updates a student.
type StudentPayload struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"birth_date"`
	ParentID    int    `json:"parent_id"`
	ClassroomID int    `json:"classroom_id"`
}

type paginatedRecords struct {
	Data []Record `json:"data"`
}

type paginatedStudents struct {
	Data []Student `json:"data"`
}

type recordEnvelope struct {
	Data Record `json:"data"`
}

type studentEnvelope struct {
	Data Student `json:"data"`
}

type paginatedClassrooms struct {
	Data []Classroom `json:"data"`
}

type classroomEnvelope struct {
	Data Classroom `json:"data"`
}

// Client issues directory requests through the transport client.
type Client struct {
	api *api.Client
}

// NewClient creates a directory client.
func NewClient(a *api.Client) *Client {
	return &Client{api: a}
}

// ListParents returns all parent records.
func (c *Client) ListParents(ctx context.Context) ([]Record, error) {
	var resp paginatedRecords
	if err := c.api.Get(ctx, "/parents", &resp); err != nil {
		return nil, fmt.Errorf("directory: list parents: %w", err)
	}
	return resp.Data, nil
}

// ListTeachers returns all teacher records.
func (c *Client) ListTeachers(ctx context.Context) ([]Record, error) {
	var resp paginatedRecords
	if err := c.api.Get(ctx, "/teachers", &resp); err != nil {
		return nil, fmt.Errorf("directory: list teachers: %w", err)
	}
	return resp.Data, nil
}

// ListStudents returns all student records.
func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	var resp paginatedStudents
	if err := c.api.Get(ctx, "/students", &resp); err != nil {
		return nil, fmt.Errorf("directory: list students: %w", err)
	}
	return resp.Data, nil
}

// CreateParent creates a parent record.
func (c *Client) CreateParent(ctx context.Context, p ParentPayload) (Record, error) {
	var resp recordEnvelope
	if err := c.api.Post(ctx, "/parents", p, &resp); err != nil {
		return Record{}, fmt.Errorf("directory: create parent: %w", err)
	}
	return resp.Data, nil
}

// UpdateParent updates a parent record.
func (c *Client) UpdateParent(ctx context.Context, id int, p ParentPayload) (Record, error) {
	var resp recordEnvelope
	if err := c.api.Put(ctx, fmt.Sprintf("/parents/%d", id), p, &resp); err != nil {
		return Record{}, fmt.Errorf("directory: update parent %d: %w", id, err)
	}
	return resp.Data, nil
}

// DeleteParent removes a parent record.
func (c *Client) DeleteParent(ctx context.Context, id int) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/parents/%d", id), nil); err != nil {
		return fmt.Errorf("directory: delete parent %d: %w", id, err)
	}
	return nil
}

// CreateStudent creates a student record.
func (c *Client) CreateStudent(ctx context.Context, p StudentPayload) (Student, error) {
	var resp studentEnvelope
	if err := c.api.Post(ctx, "/students", p, &resp); err != nil {
		return Student{}, fmt.Errorf("directory: create student: %w", err)
	}
	return resp.Data, nil
}

// UpdateStudent updates a student record.
func (c *Client) UpdateStudent(ctx context.Context, id int, p StudentPayload) (Student, error) {
	var resp studentEnvelope
	if err := c.api.Put(ctx, fmt.Sprintf("/students/%d", id), p, &resp); err != nil {
		return Student{}, fmt.Errorf("directory: update student %d: %w", id, err)
	}
	return resp.Data, nil
}

// DeleteStudent removes a student record.
func (c *Client) DeleteStudent(ctx context.Context, id int) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/students/%d", id), nil); err != nil {
		return fmt.Errorf("directory: delete student %d: %w", id, err)
	}
	return nil
}

// ListClassrooms returns all classroom records.
func (c *Client) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	var resp paginatedClassrooms
	if err := c.api.Get(ctx, "/classrooms", &resp); err != nil {
		return nil, fmt.Errorf("directory: list classrooms: %w", err)
	}
	return resp.Data, nil
}

// GetClassroom returns one classroom record.
func (c *Client) GetClassroom(ctx context.Context, id int) (Classroom, error) {
	var resp classroomEnvelope
	if err := c.api.Get(ctx, fmt.Sprintf("/classrooms/%d", id), &resp); err != nil {
		return Classroom{}, fmt.Errorf("directory: get classroom %d: %w", id, err)
	}
	return resp.Data, nil
}

// CreateClassroom creates a classroom record.
func (c *Client) CreateClassroom(ctx context.Context, p ClassroomPayload) (Classroom, error) {
	var resp classroomEnvelope
	if err := c.api.Post(ctx, "/classrooms", p, &resp); err != nil {
		return Classroom{}, fmt.Errorf("directory: create classroom: %w", err)
	}
	return resp.Data, nil
}

// UpdateClassroom updates a classroom record.
func (c *Client) UpdateClassroom(ctx context.Context, id int, p ClassroomPayload) (Classroom, error) {
	var resp classroomEnvelope
	if err := c.api.Put(ctx, fmt.Sprintf("/classrooms/%d", id), p, &resp); err != nil {
		return Classroom{}, fmt.Errorf("directory: update classroom %d: %w", id, err)
	}
	return resp.Data, nil
}

// DeleteClassroom removes a classroom record.
func (c *Client) DeleteClassroom(ctx context.Context, id int) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("/classrooms/%d", id), nil); err != nil {
		return fmt.Errorf("directory: delete classroom %d: %w", id, err)
	}
	return nil
}

// ParentsKey is the cache key for the parents listing.
func ParentsKey() cache.Key { return cache.Key{Endpoint: "parents"} }

// TeachersKey is the cache key for the teachers listing.
func TeachersKey() cache.Key { return cache.Key{Endpoint: "teachers"} }

// StudentsKey is the cache key for the students listing.
func StudentsKey() cache.Key { return cache.Key{Endpoint: "students"} }

// ClassroomsKey is the cache key for the classrooms listing.
func ClassroomsKey() cache.Key { return cache.Key{Endpoint: "classrooms"} }
