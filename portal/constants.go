package portal

import "time"

// Gateway login endpoint and session defaults
const (
	DefaultLoginURL  = "https://giris.dpu.edu.tr:6082/php/uid.php?vsys=1&rule=1&url=http://www.msftconnecttest.com%2fredirect"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultTimeout   = 10 * time.Second

	// maxRedirects matches net/http's own limit.
	maxRedirects = 10
)

// Form fields expected by the gateway's uid.php handler
const (
	FieldInputStr   = "inputStr"
	FieldEscapeUser = "escapeUser"
	FieldPreauthID  = "preauthid"
	FieldUser       = "user"
	FieldPassword   = "passwd"
	FieldOK         = "ok"

	// SubmitValue is the literal value of the form's submit button.
	SubmitValue = "Login"
)

// Environment variables holding the credentials
const (
	EnvUser     = "DPU_USER"
	EnvPassword = "DPU_PASS"
)
