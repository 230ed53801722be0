// internal/server/auth.go
package server

import (
	"context"
	"crypto/subtle"
	"errors"

	"go.uber.org/zap"
)

var ErrAuthenticationFailed = errors.New("bolus authentication failed")

type passcodeKey struct{}

// WithPasscode attaches the passcode the caller supplied for this request.
func WithPasscode(ctx context.Context, passcode string) context.Context {
	return context.WithValue(ctx, passcodeKey{}, passcode)
}

// PasscodeAuthenticator approves a bolus when the request carries the
// configured passcode. With no passcode configured every bolus is refused.
type PasscodeAuthenticator struct {
	passcode string
	logger   *zap.Logger
}

func NewPasscodeAuthenticator(passcode string, logger *zap.Logger) *PasscodeAuthenticator {
	return &PasscodeAuthenticator{passcode: passcode, logger: logger}
}

func (a *PasscodeAuthenticator) Authenticate(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	supplied, _ := ctx.Value(passcodeKey{}).(string)
	a.logger.Info("Bolus authentication requested", zap.String("prompt", message))
	if a.passcode == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(a.passcode)) != 1 {
		return ErrAuthenticationFailed
	}
	return nil
}
