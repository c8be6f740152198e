package keyring

import "sync"

type entry struct {
	service string
	key     string
}

// MockStore is an in-memory Store for tests. It is safe for concurrent use,
// since API requests read the token from command goroutines.
type MockStore struct {
	mu      sync.Mutex
	secrets map[entry]string
	getErr  error
	setErr  error
	delErr  error
	gets    int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{secrets: map[entry]string{}}
}

func (m *MockStore) Get(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.secrets[entry{service, key}]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MockStore) Set(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.secrets[entry{service, key}] = value
	return nil
}

func (m *MockStore) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.secrets, entry{service, key})
	return nil
}

// Gets returns how many times Get was called.
func (m *MockStore) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// WithGetError makes every Get fail with err.
func (m *MockStore) WithGetError(err error) *MockStore {
	m.getErr = err
	return m
}

// WithSetError makes every Set fail with err.
func (m *MockStore) WithSetError(err error) *MockStore {
	m.setErr = err
	return m
}

// WithDeleteError makes every Delete fail with err.
func (m *MockStore) WithDeleteError(err error) *MockStore {
	m.delErr = err
	return m
}

// WithData stores a secret up front.
func (m *MockStore) WithData(service, key, value string) *MockStore {
	m.secrets[entry{service, key}] = value
	return m
}
