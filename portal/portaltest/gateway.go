// Package portaltest provides an in-process captive gateway for tests. Until a
// client logs in, its connectivity test is redirected to the login page;
// afterwards it gets the real answer.
package portaltest

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Paths served by the gateway.
const (
	LoginPath       = "/php/uid.php"
	SuccessPath     = "/php/success.php"
	ConnectTestPath = "/connecttest.txt"

	sessionCookie = "PHPSESSID"
	connectTestOK = "Microsoft Connect Test"
)

// Gateway is a fake captive gateway.
type Gateway struct {
	Username string
	Password string

	server *httptest.Server

	mu                sync.Mutex
	authorizedClients map[string]time.Time // client IP -> expiry
	sessions          map[string]bool
	forms             []url.Values
	userAgents        []string
}

// NewGateway starts a gateway that accepts username/password.
func NewGateway(username, password string) *Gateway {
	g := &Gateway{
		Username:          username,
		Password:          password,
		authorizedClients: make(map[string]time.Time),
		sessions:          make(map[string]bool),
	}
	g.server = httptest.NewServer(g)
	return g
}

// URL is the gateway base URL.
func (g *Gateway) URL() string {
	return g.server.URL
}

// Port returns the listening port.
func (g *Gateway) Port() string {
	_, port, _ := net.SplitHostPort(g.server.Listener.Addr().String())
	return port
}

// LoginURL returns the login endpoint with the usual query parameters.
func (g *Gateway) LoginURL() string {
	return g.server.URL + LoginPath + "?vsys=1&rule=1&url=http://www.msftconnecttest.com%2fredirect"
}

// ConnectTestURL returns the connectivity test endpoint.
func (g *Gateway) ConnectTestURL() string {
	return g.server.URL + ConnectTestPath
}

// Close shuts the gateway down.
func (g *Gateway) Close() {
	g.server.Close()
}

// Forms returns copies of every login form received.
func (g *Gateway) Forms() []url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]url.Values, len(g.forms))
	copy(out, g.forms)
	return out
}

// UserAgents returns the User-Agent of every login request.
func (g *Gateway) UserAgents() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.userAgents...)
}

// Deauthorize drops every session, as the gateway does on lease expiry.
func (g *Gateway) Deauthorize() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorizedClients = make(map[string]time.Time)
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)

	switch r.URL.Path {
	case LoginPath:
		g.handleLogin(w, r, clientIP)
	case SuccessPath:
		g.handleSuccess(w, r)
	case ConnectTestPath:
		if g.isClientAuthorized(clientIP) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, connectTestOK)
			return
		}
		// Captive portal detection goes to the login page.
		http.Redirect(w, r, g.LoginURL(), http.StatusFound)
	default:
		http.Redirect(w, r, g.LoginURL(), http.StatusFound)
	}
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request, clientIP string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<form method="post"><input name="user"><input name="passwd" type="password"></form>`)
		return
	}
	if r.UserAgent() == "" {
		http.Error(w, "browser required", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form data", http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.forms = append(g.forms, cloneValues(r.PostForm))
	g.userAgents = append(g.userAgents, r.UserAgent())
	g.mu.Unlock()

	if r.PostForm.Get("user") != g.Username || r.PostForm.Get("passwd") != g.Password || r.PostForm.Get("ok") != "Login" {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html>Invalid credentials</html>")
		return
	}

	session := fmt.Sprintf("s%d", time.Now().UnixNano())
	g.mu.Lock()
	g.sessions[session] = true
	g.authorizedClients[clientIP] = time.Now().Add(24 * time.Hour)
	g.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/"})
	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// handleSuccess requires the session cookie set at login.
func (g *Gateway) handleSuccess(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	g.mu.Lock()
	ok := err == nil && g.sessions[c.Value]
	g.mu.Unlock()
	if !ok {
		http.Error(w, "session required", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html>Login successful</html>")
}

func (g *Gateway) isClientAuthorized(clientIP string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, exists := g.authorizedClients[clientIP]
	return exists && time.Now().Before(expiry)
}

// getClientIP extracts the client IP address from a request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
