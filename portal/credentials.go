package portal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingCredentials is returned when the username or password is blank.
var ErrMissingCredentials = errors.New("missing gateway credentials")

// Credentials are the gateway username and password. Treat as read-only.
type Credentials struct {
	Username string
	Password string
}

// CredentialsFromEnv reads DPU_USER and DPU_PASS through lookup (usually
// os.LookupEnv). Missing variables yield blank fields, not an error; Validate
// reports them at login time.
func CredentialsFromEnv(lookup func(string) (string, bool)) Credentials {
	user, _ := lookup(EnvUser)
	pass, _ := lookup(EnvPassword)
	return Credentials{Username: user, Password: pass}
}

// Validate fails with ErrMissingCredentials when either field is blank.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, EnvUser)
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, EnvPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// String hides the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: <redacted>}", c.Username)
}

// Form builds the login form. The placeholder fields are always present and
// empty.
func (c Credentials) Form() url.Values {
	return url.Values{
		FieldInputStr:   {""},
		FieldEscapeUser: {""},
		FieldPreauthID:  {""},
		FieldUser:       {c.Username},
		FieldPassword:   {c.Password},
		FieldOK:         {SubmitValue},
	}
}
