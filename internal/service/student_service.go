package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/database"
	appErrors "github.com/Mrsuave-tt/ProjectPlatecv3/pkg/errors"
	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/mailer"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByStudentNo(ctx context.Context, studentNo string, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentAccountRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest registers a student and provisions a login account
// in one operation.
type CreateStudentRequest struct {
	StudentNo string     `json:"studentId" validate:"required,max=50"`
	FirstName string     `json:"firstName" validate:"required,max=100"`
	LastName  string     `json:"lastName" validate:"required,max=100"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     *string    `json:"phone" validate:"omitempty,max=30"`
	BirthDate *time.Time `json:"birthDate"`
}

// UpdateStudentRequest edits directory fields. The linked account is left
// untouched.
type UpdateStudentRequest struct {
	StudentNo string     `json:"studentId" validate:"required,max=50"`
	FirstName string     `json:"firstName" validate:"required,max=100"`
	LastName  string     `json:"lastName" validate:"required,max=100"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     *string    `json:"phone" validate:"omitempty,max=30"`
	BirthDate *time.Time `json:"birthDate"`
}

// StudentService manages the student directory and the linked login
// accounts.
type StudentService struct {
	students studentRepository
	accounts studentAccountRepository
	mail     mailer.CredentialsMailer
	loginURL string
	validate *validator.Validate
	logger   *zap.Logger
}

func NewStudentService(students studentRepository, accounts studentAccountRepository, mail mailer.CredentialsMailer, loginURL string, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students: students,
		accounts: accounts,
		mail:     mail,
		loginURL: loginURL,
		validate: validator.New(),
		logger:   logger,
	}
}

// List returns a directory page matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return students, pagination, nil
}

// Get loads one student by internal id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student and provisions a login account whose username
// and initial password are both the student number. All four uniqueness
// checks run before anything is written, so a duplicate leaves no orphan
// account behind. A credentials email failure does not fail the creation;
// the warning string is returned alongside the student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, string, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	fields, err := s.duplicateFields(ctx, req.StudentNo, req.Email, "")
	if err != nil {
		return nil, "", err
	}
	if len(fields) > 0 {
		return nil, "", appErrors.WithFields(appErrors.ErrDuplicateKey, fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.StudentNo), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		Username:     req.StudentNo,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FirstName + " " + req.LastName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", s.translateWriteConflict(ctx, err, req.StudentNo, req.Email, "failed to create account")
	}

	student := &models.Student{
		StudentNo: req.StudentNo,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
		UserID:    &account.ID,
	}
	if err := s.students.Create(ctx, student); err != nil {
		// Roll the account back so the duplicate leaves no partial write.
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.logger.Error("failed to roll back account after student insert failure",
				zap.String("account_id", account.ID), zap.Error(delErr))
		}
		return nil, "", s.translateWriteConflict(ctx, err, req.StudentNo, req.Email, "failed to create student")
	}

	warning := ""
	msg := mailer.CredentialsMessage{
		ToEmail:         student.Email,
		DisplayName:     student.FullName(),
		StudentNo:       student.StudentNo,
		InitialPassword: student.StudentNo,
		LoginURL:        s.loginURL,
	}
	if err := s.mail.SendCredentials(msg); err != nil {
		s.logger.Error("failed to send credentials email",
			zap.String("student_id", student.ID), zap.Error(err))
		warning = "student created but the credentials email could not be sent"
	}

	s.logger.Info("student created",
		zap.String("student_id", student.ID),
		zap.String("student_no", student.StudentNo))
	return student, warning, nil
}

// Update edits directory fields. Duplicate checks exclude the student's own
// row so an unchanged number or email is not a conflict.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if taken, err := s.students.ExistsByStudentNo(ctx, req.StudentNo, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	} else if taken {
		fields["studentId"] = "student number already in use"
	}
	if taken, err := s.students.ExistsByEmail(ctx, req.Email, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	} else if taken {
		fields["email"] = "email already in use"
	}
	if len(fields) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrDuplicateKey, fields)
	}

	student.StudentNo = req.StudentNo
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.BirthDate = req.BirthDate

	if err := s.students.Update(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "student number or email already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student, the linked login account, and (via the schema's
// cascade) every attendance record. The account goes first so a crash
// between the two deletes cannot leave a login without a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if student.UserID != nil {
		if err := s.accounts.Delete(ctx, *student.UserID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
		}
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// duplicateFields runs the four uniqueness checks and reports every
// colliding field at once.
func (s *StudentService) duplicateFields(ctx context.Context, studentNo, email, excludeID string) (map[string]string, error) {
	fields := map[string]string{}

	if taken, err := s.students.ExistsByStudentNo(ctx, studentNo, excludeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	} else if taken {
		fields["studentId"] = "student number already in use"
	}
	if taken, err := s.students.ExistsByEmail(ctx, email, excludeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	} else if taken {
		fields["email"] = "email already in use"
	}
	if taken, err := s.accounts.ExistsByUsername(ctx, studentNo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	} else if taken {
		fields["studentId"] = "student number already in use"
	}
	if taken, err := s.accounts.ExistsByEmail(ctx, email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check account email")
	} else if taken {
		fields["email"] = "email already in use"
	}
	return fields, nil
}

// translateWriteConflict handles the race where a concurrent registration
// slips between the uniqueness checks and the insert. The existence checks
// run once more; a confirmed collision becomes a duplicate-key error,
// anything else surfaces as internal.
func (s *StudentService) translateWriteConflict(ctx context.Context, err error, studentNo, email, fallback string) error {
	if !database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
	}
	fields, checkErr := s.duplicateFields(ctx, studentNo, email, "")
	if checkErr == nil && len(fields) > 0 {
		return appErrors.WithFields(appErrors.ErrDuplicateKey, fields)
	}
	return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, appErrors.ErrDuplicateKey.Status, "student number or email already in use")
}
