package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Grant records that a wallet account was authorised for an origin.
type Grant struct {
	Wallet  string `json:"wallet"`
	Account string `json:"account"`
	Since   string `json:"since"`
}

// Session persists connection grants between runs, so a previously approved
// origin reconnects without prompting.
//
//	macOS:   ~/Library/Caches/w3sale/session.json
//	Linux:   ~/.cache/w3sale/session.json
//	Windows: %LocalAppData%\w3sale\session.json
type Session struct {
	mu   sync.Mutex
	path string
}

// DefaultSessionPath returns the per-user session file.
func DefaultSessionPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "w3sale", "session.json")
}

// NewSession returns a session stored at path.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// load returns the grant map; an empty map (never nil) on any error.
func (s *Session) load() map[string]Grant {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return make(map[string]Grant)
	}
	var m map[string]Grant
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]Grant)
	}
	return m
}

func (s *Session) save(m map[string]Grant) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Authorised reports whether account was granted to origin.
func (s *Session) Authorised(origin, account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.load()[origin]
	return ok && strings.EqualFold(g.Account, account)
}

// Lookup returns the grant for origin.
func (s *Session) Lookup(origin string) (Grant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.load()[origin]
	return g, ok
}

// Authorise records a grant of account (from the named wallet) to origin.
func (s *Session) Authorise(origin, walletName, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	m[origin] = Grant{Wallet: walletName, Account: account, Since: time.Now().UTC().Format(time.RFC3339)}
	return s.save(m)
}

// Revoke removes origin's grant.
func (s *Session) Revoke(origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	if _, ok := m[origin]; !ok {
		return nil
	}
	delete(m, origin)
	return s.save(m)
}

// Clear removes every grant by deleting the session file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
