package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/session"
	"golang.org/x/crypto/bcrypt"
)

// usersCollection holds one credential document per account:
// { email, passwordHash }.
const usersCollection = "usuarios"

// Service implements Facade on top of the document backend. It owns the
// notion of "current session" for one client of the system and broadcasts
// session changes to its subscribers.
type Service struct {
	users backend.Collection

	mu      sync.Mutex
	current *session.Session
	watch   map[int]func(*session.Session)
	next    int
}

func NewService(store backend.Store) *Service {
	return &Service{
		users: store.Collection(usersCollection),
		watch: make(map[int]func(*session.Session)),
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.users.Query(ctx, "email", email)
	if err != nil {
		return session.Session{}, fmt.Errorf("checking email availability: %w", err)
	}
	if len(taken) > 0 {
		return session.Session{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return session.Session{}, fmt.Errorf("hashing password: %w", err)
	}

	uid, err := s.users.Add(ctx, map[string]any{
		"email":        email,
		"passwordHash": string(hash),
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("creating account: %w", err)
	}

	sess := session.Session{Email: email, UID: uid}
	s.setCurrent(&sess)
	return sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	docs, err := s.users.Query(ctx, "email", email)
	if err != nil {
		return session.Session{}, fmt.Errorf("looking up account: %w", err)
	}
	if len(docs) == 0 {
		return session.Session{}, ErrInvalidCredentials
	}

	hash, _ := docs[0].Fields["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return session.Session{}, ErrInvalidCredentials
	}

	sess := session.Session{Email: email, UID: docs[0].ID}
	s.setCurrent(&sess)
	return sess, nil
}

func (s *Service) Logout(ctx context.Context) error {
	s.setCurrent(nil)
	return nil
}

func (s *Service) OnChange(fn func(*session.Session)) backend.CancelFunc {
	s.mu.Lock()
	id := s.next
	s.next++
	s.watch[id] = fn
	current := s.current
	s.mu.Unlock()

	// initial delivery with the current value
	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watch, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) setCurrent(sess *session.Session) {
	s.mu.Lock()
	s.current = sess
	fns := make([]func(*session.Session), 0, len(s.watch))
	for _, fn := range s.watch {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
