package probe

// Result is the connectivity classification of one probe run.
type Result int

const (
	// Offline means the public IP did not answer or the probe itself failed.
	Offline Result = iota
	// Restricted means the link works but the connectivity test was intercepted.
	Restricted
	// Online means the connectivity test returned the expected content.
	Online
)

func (r Result) String() string {
	switch r {
	case Offline:
		return "offline"
	case Restricted:
		return "restricted"
	case Online:
		return "online"
	default:
		return "unknown"
	}
}

// NeedsLogin reports whether the result calls for a gateway login.
func (r Result) NeedsLogin() bool {
	return r != Online
}

// Tier names the probe stage that decided a Report.
type Tier string

const (
	TierPing Tier = "ping"
	TierDNS  Tier = "dns"
	TierHTTP Tier = "http"
)

// Report is the outcome of Classify.
type Report struct {
	Result Result
	// Tier is the last stage that ran.
	Tier Tier
	// Err is the failure of that stage, nil when it passed or merely saw
	// unexpected content.
	Err error

	// StatusCode and Location are filled by the HTTP stage.
	StatusCode int
	Location   string
}
