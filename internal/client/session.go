package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrNotSignedIn is returned by authenticated calls when no credential is held.
var ErrNotSignedIn = errors.New("not signed in")

// ErrSessionInvalidated is returned when the server rejected the credential.
// The credential has been cleared.
var ErrSessionInvalidated = errors.New("session is no longer valid, please log in again")

// EventType identifies a session change.
type EventType int

const (
	SignedIn EventType = iota + 1
	SignedOut
	// Invalidated means the server rejected the stored credential.
	Invalidated
)

func (t EventType) String() string {
	switch t {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Invalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. User is set for SignedIn.
type Event struct {
	Type EventType
	User *User
}

// Listener receives session events. It is called synchronously, outside the
// session lock, in the goroutine that caused the change.
type Listener func(Event)

// Subscription is returned by Subscribe.
type Subscription struct {
	session *Session
	id      uint64
	once    sync.Once
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.session.mu.Lock()
		delete(s.session.listeners, s.id)
		s.session.mu.Unlock()
	})
}

// Session owns the signed-in user's credential. HasCredential is a cheap
// local check; CurrentUser and the file operations verify against the server.
type Session struct {
	client *Client
	store  TokenStore
	now    func() time.Time

	mu        sync.Mutex
	cred      *Credential
	listeners map[uint64]Listener
	nextID    uint64
}

// NewSession restores any stored credential.
func NewSession(client *Client, store TokenStore) (*Session, error) {
	cred, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{
		client:    client,
		store:     store,
		now:       time.Now,
		cred:      cred,
		listeners: make(map[uint64]Listener),
	}, nil
}

// Client returns the underlying API client for unauthenticated calls.
func (s *Session) Client() *Client {
	return s.client
}

// Subscribe registers fn for session events.
func (s *Session) Subscribe(fn Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = fn
	return &Subscription{session: s, id: s.nextID}
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

// HasCredential reports whether an unexpired credential is held locally. It
// does not contact the server and must not gate access to data.
func (s *Session) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred != nil && !s.cred.Expired(s.now())
}

// StoredUser returns the user recorded at sign-in, without verification.
func (s *Session) StoredUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil
	}
	u := s.cred.User
	return &u
}

// Login signs in and persists the credential.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	cred := &Credential{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User}
	if err := s.store.Save(cred); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	user := res.User
	s.emit(Event{Type: SignedIn, User: &user})
	return &user, nil
}

// Logout forgets the credential locally. Tokens are stateless, so the server
// is not contacted.
func (s *Session) Logout() error {
	s.mu.Lock()
	had := s.cred != nil
	s.cred = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return err
	}
	if had {
		s.emit(Event{Type: SignedOut})
	}
	return nil
}

// CurrentUser verifies the credential with the server.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	var user *User
	err := s.authorized(func(token string) error {
		var err error
		user, err = s.client.Me(ctx, token)
		return err
	})
	return user, err
}

// Upload uploads r under name.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (*File, error) {
	var file *File
	err := s.authorized(func(token string) error {
		var err error
		file, err = s.client.Upload(ctx, token, name, r)
		return err
	})
	return file, err
}

// ListFiles lists the signed-in user's files.
func (s *Session) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	err := s.authorized(func(token string) error {
		var err error
		files, err = s.client.ListFiles(ctx, token)
		return err
	})
	return files, err
}

// DeleteFile deletes one of the signed-in user's files.
func (s *Session) DeleteFile(ctx context.Context, fileID string) error {
	return s.authorized(func(token string) error {
		return s.client.DeleteFile(ctx, token, fileID)
	})
}

// authorized runs fn with the current token. A 401 from the server clears the
// credential and emits Invalidated.
func (s *Session) authorized(fn func(token string) error) error {
	s.mu.Lock()
	cred := s.cred
	s.mu.Unlock()
	if cred == nil {
		return ErrNotSignedIn
	}

	err := fn(cred.Token)
	if !IsStatus(err, http.StatusUnauthorized) {
		return err
	}

	s.mu.Lock()
	// another call may have replaced the credential meanwhile
	current := s.cred == cred
	if current {
		s.cred = nil
	}
	s.mu.Unlock()

	if current {
		if clearErr := s.store.Clear(); clearErr != nil {
			return errors.Join(ErrSessionInvalidated, clearErr)
		}
		s.emit(Event{Type: Invalidated})
	}
	return ErrSessionInvalidated
}
