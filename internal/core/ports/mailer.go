package ports

import "context"

// Mailer delivers transactional email. The SMTP implementation lives in
// infrastructure; tests substitute a stub.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}
