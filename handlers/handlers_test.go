package handlers

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/serranojoyas/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore is an in-memory AccountStore mirroring the mongo-backed one.
type fakeStore struct {
	mu        sync.Mutex
	admin     *models.Admin
	employees map[primitive.ObjectID]*models.Employee
	customers map[primitive.ObjectID]*models.Customer
	emailLogs []models.EmailLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees: make(map[primitive.ObjectID]*models.Employee),
		customers: make(map[primitive.ObjectID]*models.Customer),
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func (s *fakeStore) addAdmin(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = &models.Admin{ID: primitive.NewObjectID(), Email: email, Password: password, Name: "Admin"}
}

func (s *fakeStore) addEmployee(t *testing.T, email, password, userType string) primitive.ObjectID {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	s.employees[id] = &models.Employee{
		ID: id, Email: strings.ToLower(email), Username: "emp-" + id.Hex()[:6],
		Name: "Eva", LastName: "Luna",
		Password: hashPassword(t, password), UserType: userType,
	}
	return id
}

func (s *fakeStore) addCustomer(t *testing.T, email, password string) primitive.ObjectID {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	s.customers[id] = &models.Customer{
		ID: id, Email: strings.ToLower(email), Username: "cus-" + id.Hex()[:6],
		Name: "Ana", LastName: "Serrano",
		Password: hashPassword(t, password),
	}
	return id
}

func employeeAccount(e *models.Employee) *models.Account {
	return &models.Account{
		Kind: models.AccountEmployee, ID: e.ID, Email: e.Email,
		Username: e.Username, Name: e.Name, LastName: e.LastName,
		Secret: e.Password, Role: e.UserType,
		LoginAttempts: e.LoginAttempts, TimeOut: e.TimeOut,
		AvatarS3Key: e.AvatarS3Key,
	}
}

func customerAccount(c *models.Customer) *models.Account {
	return &models.Account{
		Kind: models.AccountCustomer, ID: c.ID, Email: c.Email,
		Username: c.Username, Name: c.Name, LastName: c.LastName,
		Secret: c.Password, Role: models.RoleCustomer, IsVerified: c.IsVerified,
		LoginAttempts: c.LoginAttempts, TimeOut: c.TimeOut,
		AvatarS3Key: c.AvatarS3Key,
	}
}

func (s *fakeStore) employeeByEmail(email string) *models.Employee {
	for _, e := range s.employees {
		if e.Email == strings.ToLower(email) {
			return e
		}
	}
	return nil
}

func (s *fakeStore) customerByEmail(email string) *models.Customer {
	for _, c := range s.customers {
		if c.Email == strings.ToLower(email) {
			return c
		}
	}
	return nil
}

func (s *fakeStore) ResolveAccount(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admin != nil && s.admin.Email == email {
		return &models.Account{
			Kind: models.AccountAdmin, ID: s.admin.ID, Email: s.admin.Email,
			Name: s.admin.Name, Secret: s.admin.Password, Role: models.RoleAdmin,
		}, nil
	}
	if e := s.employeeByEmail(email); e != nil {
		return employeeAccount(e), nil
	}
	if c := s.customerByEmail(email); c != nil {
		return customerAccount(c), nil
	}
	return nil, nil
}

func (s *fakeStore) ResolveRecoveryAccount(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.customerByEmail(email); c != nil {
		return customerAccount(c), nil
	}
	if e := s.employeeByEmail(email); e != nil {
		return employeeAccount(e), nil
	}
	return nil, nil
}

func (s *fakeStore) AccountByID(ctx context.Context, kind models.AccountKind, id primitive.ObjectID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case models.AccountEmployee:
		if e, ok := s.employees[id]; ok {
			return employeeAccount(e), nil
		}
	case models.AccountCustomer:
		if c, ok := s.customers[id]; ok {
			return customerAccount(c), nil
		}
	default:
		if s.admin != nil && s.admin.ID == id {
			return &models.Account{
				Kind: models.AccountAdmin, ID: s.admin.ID, Email: s.admin.Email,
				Name: s.admin.Name, Secret: s.admin.Password, Role: models.RoleAdmin,
			}, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateEmployee(ctx context.Context, e *models.Employee) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = primitive.NewObjectID()
	s.employees[e.ID] = e
	return e.ID, nil
}

func (s *fakeStore) CreateCustomer(ctx context.Context, c *models.Customer) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = primitive.NewObjectID()
	s.customers[c.ID] = c
	return c.ID, nil
}

func (s *fakeStore) SetLockState(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, attempts int, timeOut *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == models.AccountEmployee {
		if e, ok := s.employees[id]; ok {
			e.LoginAttempts, e.TimeOut = attempts, timeOut
		}
		return nil
	}
	if c, ok := s.customers[id]; ok {
		c.LoginAttempts, c.TimeOut = attempts, timeOut
	}
	return nil
}

func (s *fakeStore) UpdatePassword(ctx context.Context, kind models.AccountKind, email, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == models.AccountEmployee {
		if e := s.employeeByEmail(email); e != nil {
			e.Password = hash
			return true, nil
		}
		return false, nil
	}
	if c := s.customerByEmail(email); c != nil {
		c.Password = hash
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) MarkCustomerVerified(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.customerByEmail(email); c != nil {
		c.IsVerified = true
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) SetAvatarKey(ctx context.Context, kind models.AccountKind, id primitive.ObjectID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == models.AccountEmployee {
		if e, ok := s.employees[id]; ok {
			e.AvatarS3Key = key
		}
		return nil
	}
	if c, ok := s.customers[id]; ok {
		c.AvatarS3Key = key
	}
	return nil
}

func (s *fakeStore) InsertEmailLog(ctx context.Context, entry *models.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailLogs = append(s.emailLogs, *entry)
	return nil
}

// fakeMailer records sent codes on a channel so tests can wait for the
// fire-and-forget send goroutine.
type fakeMailer struct {
	sent chan string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan string, 8)}
}

func (m *fakeMailer) SendRecoveryCode(to, name, code string) error {
	m.sent <- code
	return nil
}

func (m *fakeMailer) SendVerificationCode(to, name, code string) error {
	m.sent <- code
	return nil
}

func (m *fakeMailer) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-m.sent:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email send")
		return ""
	}
}

// fakeAvatars is an in-memory AvatarStorage.
type fakeAvatars struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeAvatars() *fakeAvatars {
	return &fakeAvatars{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeAvatars) Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	key := prefix + originalFilename
	f.objects[key] = data
	f.types[key] = contentType
	return key, nil
}

func (f *fakeAvatars) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", io.ErrUnexpectedEOF
	}
	return io.NopCloser(strings.NewReader(string(data))), f.types[key], nil
}
