package authkit

import "context"

// Account is the full credential record held by the [AccountStore]. Expiry
// fields are unix seconds; zero means unset. The engine maintains the
// both-or-neither pairing of each code and its expiry.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Verified     bool

	VerifyCode       string
	VerifyCodeExpiry int64
	ResetCode        string
	ResetCodeExpiry  int64

	CreatedAt int64
}

// PublicAccount is the outward projection of an [Account]. It never carries
// the password hash or any one-time-code field, regardless of the operation
// that produced it.
type PublicAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Verified bool   `json:"isVerified"`
}

// Public strips an account down to its caller-visible fields.
func (a *Account) Public() PublicAccount {
	if a == nil {
		return PublicAccount{}
	}
	return PublicAccount{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		Verified: a.Verified,
	}
}

// RegisterInput is the caller-supplied payload for [Engine.Register].
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is returned by the operations that establish a session:
// Register and Login.
type AuthResult struct {
	Account PublicAccount
	Token   string
}

// AccountUpdate is a partial update applied by [AccountStore.UpdateFields].
// Nil pointers leave the corresponding field untouched.
type AccountUpdate struct {
	PasswordHash     *string
	Verified         *bool
	VerifyCode       *string
	VerifyCodeExpiry *int64
	ResetCode        *string
	ResetCodeExpiry  *int64
}

// AccountStore is the record-store contract the engine consumes. Every
// operation must be atomic at the single-record level; no multi-record
// transactions are required. Implementations return [ErrStoreNotFound] and
// [ErrStoreDuplicateEmail] for the documented conditions and arbitrary
// errors for backend failures, which the engine surfaces as [ErrInternal].
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByResetCode(ctx context.Context, code string) (*Account, error)
	Insert(ctx context.Context, account *Account) (*Account, error)
	UpdateFields(ctx context.Context, id string, update AccountUpdate) error
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func int64Ptr(v int64) *int64 { return &v }
