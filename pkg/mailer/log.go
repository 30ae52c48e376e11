package mailer

import "go.uber.org/zap"

// LogMailer writes credential notifications to the application log instead of
// sending them. Used in development when no SendGrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

var _ CredentialsMailer = (*LogMailer)(nil)

// NewLogMailer constructs a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// SendCredentials logs the message and always succeeds.
func (m *LogMailer) SendCredentials(msg CredentialsMessage) error {
	m.logger.Info("credentials email (not sent)",
		zap.String("to", msg.ToEmail),
		zap.String("student_no", msg.StudentNo),
		zap.String("login_url", msg.LoginURL),
	)
	return nil
}
