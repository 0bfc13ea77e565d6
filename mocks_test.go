package identity_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/mock"
)

// MockUserDirectory implements identity.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserDirectory) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserDirectory) GetByVerificationToken(ctx context.Context, token string) (*identity.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserDirectory) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUserDirectory) MarkVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStatsProvider implements identity.StatsProvider
type MockStatsProvider struct {
	mock.Mock
}

func (m *MockStatsProvider) CountCoursesByMentor(ctx context.Context, mentorID uuid.UUID) (int, error) {
	args := m.Called(ctx, mentorID)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsProvider) SumCourseStudents(ctx context.Context, mentorID uuid.UUID) (int, error) {
	args := m.Called(ctx, mentorID)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsProvider) CountEnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) (int, error) {
	args := m.Called(ctx, studentID)
	return args.Int(0), args.Error(1)
}

// MockTransport records sent messages and fails on demand.
type MockTransport struct {
	mu       sync.Mutex
	sent     []SentMessage
	failures int
}

type SentMessage struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// FailTimes makes the next n sends return an error.
func (m *MockTransport) FailTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

func (m *MockTransport) Send(ctx context.Context, from string, to []string, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return context.DeadlineExceeded
	}

	m.sent = append(m.sent, SentMessage{
		From:    from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
	return nil
}

func (m *MockTransport) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func newTestUser(role identity.RoleKey, active, verified bool) *identity.User {
	roleID := uuid.New()
	return &identity.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: mustHash("Sup3r$ecret"),
		Name:         "Jane Doe",
		RoleID:       roleID,
		IsActive:     active,
		IsVerified:   verified,
		Role: &identity.Role{
			ID:   roleID,
			Key:  role,
			Name: role,
			Permissions: []*identity.Permission{
				{ID: uuid.New(), Key: "course:read", Name: "Read courses", Resource: "course"},
			},
		},
	}
}

func mustHash(password string) string {
	hash, err := identity.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}
