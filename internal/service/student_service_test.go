package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/mailer"
)

type studentRepoStub struct {
	byID        map[string]*models.Student
	takenNos    map[string]bool
	takenEmails map[string]bool
	created     []*models.Student
	createErr   error
	deleted     []string
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{
		byID:        map[string]*models.Student{},
		takenNos:    map[string]bool{},
		takenEmails: map[string]bool{},
	}
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range s.byID {
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (s *studentRepoStub) ExistsByStudentNo(ctx context.Context, studentNo, excludeID string) (bool, error) {
	return s.takenNos[studentNo], nil
}

func (s *studentRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return s.takenEmails[email], nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if s.createErr != nil {
		return s.createErr
	}
	student.ID = "stu-" + student.StudentNo
	s.byID[student.ID] = student
	s.created = append(s.created, student)
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	s.byID[student.ID] = student
	return nil
}

func (s *studentRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

type accountRepoStub struct {
	takenUsernames map[string]bool
	takenEmails    map[string]bool
	created        []*models.Account
	createErr      error
	deleted        []string
}

func newAccountRepoStub() *accountRepoStub {
	return &accountRepoStub{
		takenUsernames: map[string]bool{},
		takenEmails:    map[string]bool{},
	}
}

func (a *accountRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return a.takenUsernames[username], nil
}

func (a *accountRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.takenEmails[email], nil
}

func (a *accountRepoStub) Create(ctx context.Context, account *models.Account) error {
	if a.createErr != nil {
		return a.createErr
	}
	account.ID = "acc-" + account.Username
	a.created = append(a.created, account)
	return nil
}

func (a *accountRepoStub) Delete(ctx context.Context, id string) error {
	a.deleted = append(a.deleted, id)
	return nil
}

type mailerStub struct {
	sent []mailer.CredentialsMessage
	err  error
}

func (m *mailerStub) SendCredentials(msg mailer.CredentialsMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func validCreateRequest() CreateStudentRequest {
	return CreateStudentRequest{
		StudentNo: "S001",
		FirstName: "Alice",
		LastName:  "Anders",
		Email:     "alice@example.com",
	}
}

func TestCreateStudentProvisionsAccountAndSendsCredentials(t *testing.T) {
	students := newStudentRepoStub()
	accounts := newAccountRepoStub()
	mail := &mailerStub{}
	svc := NewStudentService(students, accounts, mail, "http://localhost/login", nil)

	student, warning, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Empty(t, warning)
	require.NotNil(t, student)

	require.Len(t, accounts.created, 1)
	account := accounts.created[0]
	assert.Equal(t, "S001", account.Username)
	assert.Equal(t, models.RoleStudent, account.Role)
	assert.True(t, account.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("S001")),
		"initial password must be the student number")

	require.NotNil(t, student.UserID)
	assert.Equal(t, account.ID, *student.UserID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].ToEmail)
	assert.Equal(t, "S001", mail.sent[0].InitialPassword)
}

func TestCreateStudentReportsEveryDuplicateFieldWithoutWriting(t *testing.T) {
	students := newStudentRepoStub()
	students.takenNos["S001"] = true
	accounts := newAccountRepoStub()
	accounts.takenEmails["alice@example.com"] = true
	svc := NewStudentService(students, accounts, &mailerStub{}, "", nil)

	_, _, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateKey.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "studentId")
	assert.Contains(t, appErr.Fields, "email")

	assert.Empty(t, accounts.created, "no account may be written on a duplicate")
	assert.Empty(t, students.created, "no student may be written on a duplicate")
}

func TestCreateStudentEmailFailureIsSoft(t *testing.T) {
	students := newStudentRepoStub()
	accounts := newAccountRepoStub()
	mail := &mailerStub{err: errors.New("smtp down")}
	svc := NewStudentService(students, accounts, mail, "", nil)

	student, warning, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err, "a failed email must not fail the creation")
	require.NotNil(t, student)
	assert.NotEmpty(t, warning)
	require.Len(t, students.created, 1)
}

func TestCreateStudentRollsBackAccountOnInsertRace(t *testing.T) {
	students := newStudentRepoStub()
	students.createErr = &pq.Error{Code: "23505"}
	accounts := newAccountRepoStub()
	svc := NewStudentService(students, accounts, &mailerStub{}, "", nil)

	_, _, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateKey.Code, appErrors.FromError(err).Code)

	require.Len(t, accounts.created, 1)
	assert.Equal(t, []string{accounts.created[0].ID}, accounts.deleted,
		"the provisioned account must be rolled back")
}

func TestUpdateStudentRejectsCollisions(t *testing.T) {
	students := newStudentRepoStub()
	userID := "acc-S001"
	students.byID["stu-1"] = &models.Student{ID: "stu-1", StudentNo: "S001", FirstName: "Alice", LastName: "Anders", Email: "alice@example.com", UserID: &userID}
	students.takenNos["S002"] = true
	svc := NewStudentService(students, newAccountRepoStub(), &mailerStub{}, "", nil)

	req := UpdateStudentRequest{StudentNo: "S002", FirstName: "Alice", LastName: "Anders", Email: "alice@example.com"}
	_, err := svc.Update(context.Background(), "stu-1", req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateKey.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "studentId")
}

func TestDeleteStudentRemovesAccountFirst(t *testing.T) {
	students := newStudentRepoStub()
	accounts := newAccountRepoStub()
	userID := "acc-S001"
	students.byID["stu-1"] = &models.Student{ID: "stu-1", StudentNo: "S001", UserID: &userID}
	svc := NewStudentService(students, accounts, &mailerStub{}, "", nil)

	require.NoError(t, svc.Delete(context.Background(), "stu-1"))
	assert.Equal(t, []string{"acc-S001"}, accounts.deleted)
	assert.Equal(t, []string{"stu-1"}, students.deleted)
}

func TestDeleteStudentUnknownID(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), newAccountRepoStub(), &mailerStub{}, "", nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
