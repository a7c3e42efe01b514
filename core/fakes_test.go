package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memAccounts is an in-memory AccountRepository. Uniqueness is enforced
// under a mutex the same way the store's unique indexes would, so the
// check-then-insert race tests exercise the real contract.
type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]*Account{}}
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memAccounts) FindByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Username, username) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAccounts) FindByProviderSubject(_ context.Context, provider, externalID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.AuthProvider == provider && a.ExternalID == externalID && a.ExternalID != "" {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAccounts) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usernameExistsLocked(username), nil
}

func (m *memAccounts) NicknameExists(_ context.Context, nickname string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nicknameExistsLocked(nickname), nil
}

func (m *memAccounts) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usernameExistsLocked(a.Username) {
		return ErrUsernameTaken
	}
	if a.Nickname != "" && m.nicknameExistsLocked(a.Nickname) {
		return ErrNicknameTaken
	}
	if a.ExternalID != "" {
		for _, other := range m.byID {
			if other.AuthProvider == a.AuthProvider && other.ExternalID == a.ExternalID {
				return ErrExternalIDTaken
			}
		}
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) LinkProvider(_ context.Context, id, provider, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.AuthProvider = provider
	a.ExternalID = externalID
	return nil
}

func (m *memAccounts) usernameExistsLocked(username string) bool {
	for _, a := range m.byID {
		if strings.EqualFold(a.Username, username) {
			return true
		}
	}
	return false
}

func (m *memAccounts) nicknameExistsLocked(nickname string) bool {
	for _, a := range m.byID {
		if a.Nickname != "" && strings.EqualFold(a.Nickname, nickname) {
			return true
		}
	}
	return false
}

func (m *memAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memCatalog is an in-memory CatalogRepository.
type memCatalog struct {
	mu      sync.Mutex
	animals []Animal
}

func newMemCatalog(animals ...Animal) *memCatalog {
	return &memCatalog{animals: animals}
}

func (m *memCatalog) List(_ context.Context) ([]Animal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Animal, len(m.animals))
	copy(out, m.animals)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCatalog) Get(_ context.Context, id string) (*Animal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.animals {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memCatalog) GetByToken(_ context.Context, token string) (*Animal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.animals {
		if a.Token == token {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memCatalog) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.animals), nil
}

func (m *memCatalog) CountByRarity(_ context.Context, rarity string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.animals {
		if strings.EqualFold(a.Rarity, rarity) {
			n++
		}
	}
	return n, nil
}

func (m *memCatalog) Upsert(_ context.Context, a Animal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.animals {
		if m.animals[i].ID == a.ID {
			m.animals[i] = a
			return nil
		}
	}
	m.animals = append(m.animals, a)
	return nil
}

// memCaptures is an in-memory CaptureRepository backed by the catalog and
// accounts fakes for rarity and nickname joins.
type memCaptures struct {
	mu       sync.Mutex
	byAcct   map[string][]string
	catalog  *memCatalog
	accounts *memAccounts
}

func newMemCaptures(catalog *memCatalog, accounts *memAccounts) *memCaptures {
	return &memCaptures{byAcct: map[string][]string{}, catalog: catalog, accounts: accounts}
}

func (m *memCaptures) Insert(ctx context.Context, accountID, animalID string) (bool, error) {
	if _, err := m.catalog.Get(ctx, animalID); err != nil {
		return false, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.byAcct[accountID] {
		if id == animalID {
			return false, nil
		}
	}
	m.byAcct[accountID] = append(m.byAcct[accountID], animalID)
	return true, nil
}

func (m *memCaptures) Captured(_ context.Context, accountID, animalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.byAcct[accountID] {
		if id == animalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCaptures) CapturedAnimalIDs(_ context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.byAcct[accountID]))
	copy(out, m.byAcct[accountID])
	return out, nil
}

func (m *memCaptures) CountByAccount(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byAcct[accountID]), nil
}

func (m *memCaptures) CountByAccountAndRarity(ctx context.Context, accountID, rarity string) (int, error) {
	m.mu.Lock()
	ids := append([]string(nil), m.byAcct[accountID]...)
	m.mu.Unlock()
	n := 0
	for _, id := range ids {
		a, err := m.catalog.Get(ctx, id)
		if err != nil {
			continue
		}
		if strings.EqualFold(a.Rarity, rarity) {
			n++
		}
	}
	return n, nil
}

func (m *memCaptures) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	counts, err := m.CountsPerAccount(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > limit {
		counts = counts[:limit]
	}
	out := make([]LeaderboardEntry, 0, len(counts))
	for _, c := range counts {
		nickname := defaultNickname
		if a, err := m.accounts.FindByID(ctx, c.AccountID); err == nil && a.Nickname != "" {
			nickname = a.Nickname
		}
		out = append(out, LeaderboardEntry{Nickname: nickname, CapturedCount: c.Count})
	}
	return out, nil
}

func (m *memCaptures) CountsPerAccount(_ context.Context) ([]LeaderboardCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaderboardCount
	for acct, ids := range m.byAcct {
		out = append(out, LeaderboardCount{AccountID: acct, Count: len(ids)})
	}
	return out, nil
}
