package mailer

// CredentialsMessage carries everything needed to notify a newly registered
// student of their initial login details.
type CredentialsMessage struct {
	ToEmail         string
	DisplayName     string
	StudentNo       string
	InitialPassword string
	LoginURL        string
}

// CredentialsMailer delivers initial-credential notifications. Delivery
// failures are surfaced to the caller, which treats them as non-fatal.
type CredentialsMailer interface {
	SendCredentials(msg CredentialsMessage) error
}
