package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Course and Enrollment are owned by the learning domain. We map just enough
// of their tables to read the aggregates shown on the user view.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:crs"`

	ID            uuid.UUID `bun:"id,pk,notnull" json:"id"`
	MentorID      uuid.UUID `bun:"mentor_id,notnull" json:"mentor_id"`
	TotalStudents int       `bun:"total_students,default:0" json:"total_students"`
}

type Enrollment struct {
	bun.BaseModel `bun:"table:enrollments,alias:enr"`

	ID        uuid.UUID `bun:"id,pk,notnull" json:"id"`
	StudentID uuid.UUID `bun:"student_id,notnull" json:"student_id"`
	CourseID  uuid.UUID `bun:"course_id,notnull" json:"course_id"`
}

type stats struct {
	db *bun.DB
}

var _ StatsProvider = (*stats)(nil)

func NewStatsProvider(db *bun.DB) StatsProvider {
	return &stats{db: db}
}

func (s *stats) CountCoursesByMentor(ctx context.Context, mentorID uuid.UUID) (int, error) {
	return s.db.NewSelect().
		Model((*Course)(nil)).
		Where("mentor_id = ?", mentorID).
		Count(ctx)
}

func (s *stats) SumCourseStudents(ctx context.Context, mentorID uuid.UUID) (int, error) {
	var total int
	err := s.db.NewSelect().
		Model((*Course)(nil)).
		ColumnExpr("COALESCE(SUM(total_students), 0)").
		Where("mentor_id = ?", mentorID).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *stats) CountEnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) (int, error) {
	return s.db.NewSelect().
		Model((*Enrollment)(nil)).
		Where("student_id = ?", studentID).
		Count(ctx)
}
