package auth

import (
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
)

// Reason classifies why credential verification failed
type Reason string

const (
	ReasonMissing             Reason = "missing"
	ReasonMalformed           Reason = "malformed"
	ReasonExpired             Reason = "expired"
	ReasonSignatureInvalid    Reason = "signature-invalid"
	ReasonSubjectUnresolvable Reason = "subject-unresolvable"
)

func (x Reason) String() string {
	return string(x)
}

// Principal is the authenticated identity bound to a connection. It is
// immutable for the connection's lifetime.
type Principal struct {
	Sub   types.UserID `json:"sub"`
	Email string       `json:"email,omitempty"`
	Name  string       `json:"name,omitempty"`
}

func (x *Principal) UserID() types.UserID {
	return x.Sub
}
