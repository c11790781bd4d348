package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/auth"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// AuthUseCase verifies bearer credentials against process-wide trust
// material. Verification is a pure function of the credential and the
// signing key; it must run before any other component touches a connection.
type AuthUseCase struct {
	secret []byte
}

func NewAuthUseCase(secret []byte) *AuthUseCase {
	return &AuthUseCase{secret: secret}
}

func authError(reason auth.Reason, cause error) error {
	if cause != nil {
		return goerr.Wrap(cause, "authentication failed",
			goerr.V("reason", reason.String()),
			goerr.T(errs.TagUnauthorized))
	}
	return goerr.New("authentication failed",
		goerr.V("reason", reason.String()),
		goerr.T(errs.TagUnauthorized))
}

// VerifyToken resolves an opaque credential into a Principal. Failures carry
// a "reason" value: missing, malformed, expired, signature-invalid or
// subject-unresolvable.
func (x *AuthUseCase) VerifyToken(ctx context.Context, credential string) (*auth.Principal, error) {
	if credential == "" {
		return nil, authError(auth.ReasonMissing, nil)
	}

	// Structure first, then signature, then claims: each failure mode keeps
	// its own reason.
	parsed, err := jwt.Parse([]byte(credential), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, authError(auth.ReasonMalformed, err)
	}

	if _, err := jwt.Parse([]byte(credential),
		jwt.WithKey(jwa.HS256, x.secret),
		jwt.WithValidate(false),
	); err != nil {
		return nil, authError(auth.ReasonSignatureInvalid, err)
	}

	if err := jwt.Validate(parsed); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, authError(auth.ReasonExpired, err)
		}
		return nil, authError(auth.ReasonMalformed, err)
	}

	if parsed.Subject() == "" {
		return nil, authError(auth.ReasonSubjectUnresolvable, nil)
	}

	principal := &auth.Principal{
		Sub: types.UserID(parsed.Subject()),
	}
	if email, ok := parsed.Get("email"); ok {
		if s, ok := email.(string); ok {
			principal.Email = s
		}
	}
	if name, ok := parsed.Get("name"); ok {
		if s, ok := name.(string); ok {
			principal.Name = s
		}
	}

	return principal, nil
}

// IssueToken mints an HS256 token for the given subject. Used by the dev
// token command and tests; production credentials come from an external
// issuer sharing the same secret.
func (x *AuthUseCase) IssueToken(sub, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(sub).
		IssuedAt(now).
		Expiration(now.Add(ttl))
	if email != "" {
		builder = builder.Claim("email", email)
	}
	if name != "" {
		builder = builder.Claim("name", name)
	}

	token, err := builder.Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, x.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}

	return string(signed), nil
}
