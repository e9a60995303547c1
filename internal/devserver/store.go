// Package devserver is an in-memory stand-in for the application server,
// used to run and exercise the client end to end during development. It
// implements only the surface the client consumes.
package devserver

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/model"
)

// User is a fixture account.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// Store keeps all fixture state in mutex-guarded maps.
type Store struct {
	mu         sync.Mutex
	products   []model.Product
	categories []model.ProductCategory
	orders     []model.Order
	users      map[string]*User // keyed by lowercase username
	emails     map[string]uuid.UUID
	tokens     map[string]*User
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*User),
		emails: make(map[string]uuid.UUID),
		tokens: make(map[string]*User),
	}
}

// Seed loads a small demo catalog and an admin account.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = []model.ProductCategory{
		{Key: "drinks", Slug: "drinks", Label: "Drinks"},
		{Key: "main", Slug: "maindishes", Label: "Main Dishes"},
		{Key: "desserts", Slug: "desserts", Label: "Desserts"},
	}
	s.products = []model.Product{
		{ID: uuid.New(), Name: "Espresso", Description: "Double shot", Price: 2.5, Category: "drinks"},
		{ID: uuid.New(), Name: "Lemonade", Description: "Fresh squeezed", Price: 3.0, Category: "drinks"},
		{ID: uuid.New(), Name: "Margherita", Description: "Tomato, mozzarella, basil", Price: 9.5, Category: "main"},
		{ID: uuid.New(), Name: "Carbonara", Description: "Guanciale and pecorino", Price: 11.0, Category: "main"},
		{ID: uuid.New(), Name: "Tiramisu", Description: "House made", Price: 5.5, Category: "desserts"},
	}

	admin := &User{
		ID:           uuid.New(),
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: hashPassword("adminadminadmin"),
		IsAdmin:      true,
	}
	s.users[admin.Username] = admin
	s.emails[admin.Email] = admin.ID
}

// Catalog returns the product and category sets.
func (s *Store) Catalog() ([]model.Product, []model.ProductCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]model.Product, len(s.products))
	copy(products, s.products)
	categories := make([]model.ProductCategory, len(s.categories))
	copy(categories, s.categories)
	return products, categories
}

// Orders returns the board snapshot in arrival order.
func (s *Store) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// CreateUser registers an account; username and email must be free.
func (s *Store) CreateUser(username, email, password string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	if _, taken := s.users[key]; taken {
		return nil, false
	}
	if _, taken := s.emails[strings.ToLower(email)]; taken {
		return nil, false
	}

	u := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hashPassword(password),
	}
	s.users[key] = u
	s.emails[u.Email] = u.ID
	return u, true
}

// Authenticate checks username/password and mints a session token.
func (s *Store) Authenticate(username, password string) (model.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(username)]
	if !ok || u.PasswordHash != hashPassword(password) {
		return model.Credential{}, false
	}
	return s.issueTokenLocked(u), true
}

// IssueToken mints a session token for an already-created user.
func (s *Store) IssueToken(u *User) model.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(u)
}

func (s *Store) issueTokenLocked(u *User) model.Credential {
	token := uuid.NewString()
	s.tokens[token] = u
	return model.Credential{
		Token:    token,
		Username: u.Username,
		UserID:   u.ID,
		IsAdmin:  u.IsAdmin,
	}
}

// UserByToken resolves a push event's token.
func (s *Store) UserByToken(token string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	return u, ok
}

// UsernameExists reports whether the username is taken.
func (s *Store) UsernameExists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.users[strings.ToLower(username)]
	return taken
}

// EmailExists reports whether the email is taken.
func (s *Store) EmailExists(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, taken := s.emails[strings.ToLower(email)]
	return taken
}

// AppendOrder creates a board row for the user's submitted basket.
func (s *Store) AppendOrder(u *User) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := model.Order{
		ID:          uuid.New(),
		OwnerID:     u.ID,
		DisplayName: u.Username,
		CreatedAt:   time.Now().UTC(),
		Status:      model.StatusAccepted,
	}
	s.orders = append(s.orders, o)
	return o
}

// UpdateOrder replaces the stored order with the same id, preserving board
// position. Unknown ids are rejected.
func (s *Store) UpdateOrder(o model.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
			return true
		}
	}
	return false
}

// DeleteOrder removes the order with the given id.
func (s *Store) DeleteOrder(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return true
		}
	}
	return false
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
