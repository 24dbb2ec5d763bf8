package auth

import (
	"fmt"
	"strings"

	"github.com/sells-group/crop-advisor/internal/model"
)

// ValidationError describes a rejected sign-up field. It matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func normalizeSignUp(req SignUpRequest) (*model.User, error) {
	u := &model.User{
		Phone:    strings.TrimSpace(req.Phone),
		Gmail:    strings.ToLower(strings.TrimSpace(req.Gmail)),
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Name:     strings.TrimSpace(req.Name),
	}

	switch {
	case u.Phone == "" || u.Gmail == "" || u.Username == "" || req.Password == "":
		return nil, invalid("phone, gmail, username and password are required")
	case !validPhone(u.Phone):
		return nil, invalid("phone number must be 10 digits")
	case !strings.HasSuffix(u.Gmail, "@gmail.com") || len(u.Gmail) == len("@gmail.com"):
		return nil, invalid("must be a valid gmail address")
	case len(req.Password) < minPasswordLen:
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}

	if u.Name == "" {
		u.Name = u.Username
	}
	return u, nil
}

func validPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
