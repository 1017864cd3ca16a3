package authkit

import "context"

// NotificationKind identifies which message a Notifier should render.
type NotificationKind string

const (
	// NotifyWelcome is sent once after a successful registration.
	NotifyWelcome NotificationKind = "welcome"
	// NotifyVerificationCode carries a freshly issued email verification
	// code in Code.
	NotifyVerificationCode NotificationKind = "verification-code"
	// NotifyWelcomeVerified is sent after the account's email address has
	// been confirmed.
	NotifyWelcomeVerified NotificationKind = "welcome-verified"
	// NotifyResetLink carries a password reset link in ResetURL and the
	// raw code in Code.
	NotifyResetLink NotificationKind = "reset-link"
	// NotifyResetSuccess is sent after a password reset completed.
	NotifyResetSuccess NotificationKind = "reset-success"
)

// Notification is the payload handed to a Notifier. Code and ResetURL are
// populated only for the kinds that carry them.
type Notification struct {
	Kind     NotificationKind
	Email    string
	Name     string
	Code     string
	ResetURL string
}

// Notifier delivers notifications to the account holder, typically over
// email. Send runs on a background goroutine; a returned error is recorded
// and swallowed, it never fails the operation that triggered the message.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NoOpNotifier drops every notification. It is the default when no
// notifier is configured.
type NoOpNotifier struct{}

func (NoOpNotifier) Send(context.Context, Notification) error { return nil }
