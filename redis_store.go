package authkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAccountStore is the bundled [AccountStore] backed by Redis. Each
// account lives in one hash under {prefix}:a:{id}; two plain keys index the
// record, {prefix}:e:{email} for the unique email and {prefix}:rc:{code}
// for the currently outstanding reset code.
type RedisAccountStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisAccountStore wraps an existing client. The prefix namespaces
// every key so the store can share a Redis with other tenants of the
// application.
func NewRedisAccountStore(redisClient *redis.Client, prefix string) *RedisAccountStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &RedisAccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisAccountStore) accountKey(id string) string {
	return s.prefix + ":a:" + id
}

func (s *RedisAccountStore) emailKey(email string) string {
	return s.prefix + ":e:" + email
}

func (s *RedisAccountStore) resetCodeKey(code string) string {
	return s.prefix + ":rc:" + code
}

// Insert stores a new account. The ID is assigned here; email uniqueness is
// enforced by claiming the email index key with SETNX before the record is
// written, so two concurrent inserts of the same email cannot both win.
func (s *RedisAccountStore) Insert(ctx context.Context, account *Account) (*Account, error) {
	stored := *account
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().Unix()

	claimed, err := s.redis.SetNX(ctx, s.emailKey(stored.Email), stored.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("store: claim email: %w", err)
	}
	if !claimed {
		return nil, ErrStoreDuplicateEmail
	}

	if err := s.redis.HSet(ctx, s.accountKey(stored.ID), accountToFields(&stored)).Err(); err != nil {
		// Release the claim so the email is not wedged by a half-done insert.
		_ = s.redis.Del(ctx, s.emailKey(stored.Email)).Err()
		return nil, fmt.Errorf("store: write account: %w", err)
	}

	return &stored, nil
}

func (s *RedisAccountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, ErrStoreNotFound
	}

	fields, err := s.redis.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read account: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrStoreNotFound
	}

	return accountFromFields(id, fields)
}

func (s *RedisAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("store: read email index: %w", err)
	}

	return s.FindByID(ctx, id)
}

// FindByResetCode resolves a reset code through its index key. The record
// is cross-checked against the code so a stale index entry from a
// superseded code never resolves.
func (s *RedisAccountStore) FindByResetCode(ctx context.Context, code string) (*Account, error) {
	if code == "" {
		return nil, ErrStoreNotFound
	}

	id, err := s.redis.Get(ctx, s.resetCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("store: read reset index: %w", err)
	}

	account, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.ResetCode != code {
		return nil, ErrStoreNotFound
	}

	return account, nil
}

// UpdateFields applies a partial update under WATCH so the read-modify-
// write of the record and its reset-code index is atomic at the record
// level. Concurrent writers retry a few times before giving up.
func (s *RedisAccountStore) UpdateFields(ctx context.Context, id string, update AccountUpdate) error {
	const maxRetries = 4
	key := s.accountKey(id)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				return ErrStoreNotFound
			}

			current, err := accountFromFields(id, fields)
			if err != nil {
				return err
			}

			oldResetCode := current.ResetCode
			applyUpdate(current, update)

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, accountToFields(current))
				if update.ResetCode != nil && oldResetCode != current.ResetCode {
					if oldResetCode != "" {
						pipe.Del(ctx, s.resetCodeKey(oldResetCode))
					}
					if current.ResetCode != "" {
						pipe.Set(ctx, s.resetCodeKey(current.ResetCode), id, 0)
					}
				}
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrStoreNotFound) {
				return ErrStoreNotFound
			}
			return fmt.Errorf("store: update account: %w", err)
		}
		return nil
	}

	return fmt.Errorf("store: update account: %w", redis.TxFailedErr)
}

func applyUpdate(account *Account, update AccountUpdate) {
	if update.PasswordHash != nil {
		account.PasswordHash = *update.PasswordHash
	}
	if update.Verified != nil {
		account.Verified = *update.Verified
	}
	if update.VerifyCode != nil {
		account.VerifyCode = *update.VerifyCode
	}
	if update.VerifyCodeExpiry != nil {
		account.VerifyCodeExpiry = *update.VerifyCodeExpiry
	}
	if update.ResetCode != nil {
		account.ResetCode = *update.ResetCode
	}
	if update.ResetCodeExpiry != nil {
		account.ResetCodeExpiry = *update.ResetCodeExpiry
	}
}

func accountToFields(account *Account) map[string]interface{} {
	verified := "0"
	if account.Verified {
		verified = "1"
	}

	return map[string]interface{}{
		"name":            account.Name,
		"email":           account.Email,
		"password_hash":   account.PasswordHash,
		"verified":        verified,
		"verify_code":     account.VerifyCode,
		"verify_code_exp": strconv.FormatInt(account.VerifyCodeExpiry, 10),
		"reset_code":      account.ResetCode,
		"reset_code_exp":  strconv.FormatInt(account.ResetCodeExpiry, 10),
		"created_at":      strconv.FormatInt(account.CreatedAt, 10),
	}
}

func accountFromFields(id string, fields map[string]string) (*Account, error) {
	verifyExp, err := parseUnixField(fields["verify_code_exp"])
	if err != nil {
		return nil, fmt.Errorf("store: corrupt account %s: %v", id, err)
	}
	resetExp, err := parseUnixField(fields["reset_code_exp"])
	if err != nil {
		return nil, fmt.Errorf("store: corrupt account %s: %v", id, err)
	}
	createdAt, err := parseUnixField(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("store: corrupt account %s: %v", id, err)
	}

	return &Account{
		ID:               id,
		Name:             fields["name"],
		Email:            fields["email"],
		PasswordHash:     fields["password_hash"],
		Verified:         fields["verified"] == "1",
		VerifyCode:       fields["verify_code"],
		VerifyCodeExpiry: verifyExp,
		ResetCode:        fields["reset_code"],
		ResetCodeExpiry:  resetExp,
		CreatedAt:        createdAt,
	}, nil
}

func parseUnixField(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
