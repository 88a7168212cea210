package simplefiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// service implements the Service interface
type service struct {
	repository   Repository
	sessions     SessionStore
	placement    ContentPlacement
	queue        JobQueue
	logger       *slog.Logger
	passwordCost int
	pingTimeout  time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the document store for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithSessionStore sets the session store for the service
func WithSessionStore(sessions SessionStore) Option {
	return func(s *service) {
		s.sessions = sessions
	}
}

// WithPlacement sets the content placement for the service
func WithPlacement(placement ContentPlacement) Option {
	return func(s *service) {
		s.placement = placement
	}
}

// WithJobQueue sets the queue receiving thumbnail and welcome jobs
func WithJobQueue(queue JobQueue) Option {
	return func(s *service) {
		s.queue = queue
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithPasswordCost sets the bcrypt cost used for new passwords
func WithPasswordCost(cost int) Option {
	return func(s *service) {
		s.passwordCost = cost
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		passwordCost: bcrypt.DefaultCost,
		pingTimeout:  2 * time.Second,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if s.placement == nil {
		return nil, fmt.Errorf("content placement is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Account operations

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repository.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	s.enqueue(ctx, TopicUsers, WelcomeJob{UserID: user.ID.String()})
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrUnauthenticated
	}

	user, err := s.repository.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUnauthenticated
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrUnauthenticated
	}

	return s.sessions.Issue(ctx, user.ID)
}

func (s *service) Logout(ctx context.Context, token string) error {
	if _, err := s.sessions.Resolve(ctx, token); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, token)
}

func (s *service) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	return s.sessions.Resolve(ctx, token)
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repository.FindUserByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// A session pointing at a vanished user is not a valid session.
		return nil, ErrUnauthenticated
	}
	return user, err
}

// Operational

func (s *service) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()

	return Status{
		Cache: s.sessions.Ping(ctx) == nil,
		DB:    s.repository.Ping(ctx) == nil,
	}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repository.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.repository.CountObjects(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Files: files}, nil
}

// enqueue publishes a best-effort job. Failures are logged and never
// propagated: the caller's write has already been committed.
func (s *service) enqueue(ctx context.Context, topic string, job any) {
	if s.queue == nil {
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode job", "topic", topic, "error", err)
		return
	}
	if err := s.queue.Enqueue(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to enqueue job", "topic", topic, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "job state", "topic", topic, "state", "queued")
}
