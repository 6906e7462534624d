package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by LoadByName for unknown names.
var ErrNotFound = errors.New("character not found")

type CharacterRow struct {
	ID          int32
	Name        string
	Description string
	Vocation    int16
	Gender      int16
	X           int32
	Y           int32
	Heading     int16
	Speed       float32
}

// CharacterStore is what the join and leave handlers need from persistence.
type CharacterStore interface {
	LoadByName(ctx context.Context, name string) (*CharacterRow, error)
	Create(ctx context.Context, c *CharacterRow) error
	SavePosition(ctx context.Context, name string, x, y int32, heading int16) error
}

// CharacterRepo is the PostgreSQL CharacterStore.
type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, description, vocation, gender, x, y, heading, speed
		 FROM characters
		 WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Vocation, &c.Gender,
		&c.X, &c.Y, &c.Heading, &c.Speed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", name, err)
	}
	return c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (name, description, vocation, gender, x, y, heading, speed)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id`,
		c.Name, c.Description, c.Vocation, c.Gender, c.X, c.Y, c.Heading, c.Speed,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create character %s: %w", c.Name, err)
	}
	return nil
}

// SavePosition updates the character's position in the database.
func (r *CharacterRepo) SavePosition(ctx context.Context, name string, x, y int32, heading int16) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET x = $1, y = $2, heading = $3, last_seen = NOW() WHERE name = $4`,
		x, y, heading, name,
	)
	if err != nil {
		return fmt.Errorf("save position %s: %w", name, err)
	}
	return nil
}

// MemoryStore is a CharacterStore kept in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]CharacterRow
	nextID int32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]CharacterRow)}
}

func (s *MemoryStore) LoadByName(_ context.Context, name string) (*CharacterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) Create(_ context.Context, c *CharacterRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[c.Name]; ok {
		return fmt.Errorf("create character %s: name taken", c.Name)
	}
	s.nextID++
	c.ID = s.nextID
	s.rows[c.Name] = *c
	return nil
}

func (s *MemoryStore) SavePosition(_ context.Context, name string, x, y int32, heading int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[name]
	if !ok {
		return ErrNotFound
	}
	c.X, c.Y, c.Heading = x, y, heading
	s.rows[name] = c
	return nil
}

// Names lists stored characters in name order.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rows))
	for n := range s.rows {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
