package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/voxnote/backend/internal/middleware"
	"github.com/voxnote/backend/internal/models"
	"github.com/voxnote/backend/pkg/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type mockUserStore struct {
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*models.User, error)
	getByEmailFn func(ctx context.Context, email string) (*models.User, error)
	createFn     func(ctx context.Context, fullName, email, pseudo, passwordHash string) (*models.User, error)
	updateFn     func(ctx context.Context, u *models.User) error
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserStore) Create(ctx context.Context, fullName, email, pseudo, passwordHash string) (*models.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, fullName, email, pseudo, passwordHash)
	}
	return &models.User{ID: uuid.New(), FullName: fullName, Email: email, Pseudo: pseudo, Password: passwordHash}, nil
}

func (m *mockUserStore) Update(ctx context.Context, u *models.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func userRouter(store UserStore, userID uuid.UUID) *gin.Engine {
	h := NewHandler(store, NewJWTService("test-secret", 168), nil)
	r := gin.New()
	r.POST("/api/user/register", h.Register)
	r.POST("/api/user/login", h.Login)
	r.PUT("/api/user/editProfile", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	}, h.EditProfile)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name string
		body RegisterRequest
	}{
		{"missing full name", RegisterRequest{Email: "a@b.co", Pseudo: "p", Password: "secret1", ConfirmPassword: "secret1"}},
		{"missing email", RegisterRequest{FullName: "A", Pseudo: "p", Password: "secret1", ConfirmPassword: "secret1"}},
		{"missing pseudo", RegisterRequest{FullName: "A", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}},
		{"bad email", RegisterRequest{FullName: "A", Email: "not-an-email", Pseudo: "p", Password: "secret1", ConfirmPassword: "secret1"}},
		{"short password", RegisterRequest{FullName: "A", Email: "a@b.co", Pseudo: "p", Password: "12345", ConfirmPassword: "12345"}},
		{"mismatched confirm", RegisterRequest{FullName: "A", Email: "a@b.co", Pseudo: "p", Password: "secret1", ConfirmPassword: "secret2"}},
	}

	r := userRouter(&mockUserStore{}, uuid.Nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, http.MethodPost, "/api/user/register", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := &mockUserStore{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return &models.User{Email: email}, nil
		},
	}
	r := userRouter(store, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/register", RegisterRequest{
		FullName: "Jane Doe", Email: "jane@x.com", Pseudo: "janed",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRegister_Success_StoresHashNotPlaintext(t *testing.T) {
	var storedHash string
	store := &mockUserStore{
		createFn: func(_ context.Context, fullName, email, pseudo, passwordHash string) (*models.User, error) {
			storedHash = passwordHash
			return &models.User{ID: uuid.New(), FullName: fullName, Email: email, Pseudo: pseudo, Password: passwordHash}, nil
		},
	}
	r := userRouter(store, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/register", RegisterRequest{
		FullName: "Jane Doe", Email: "jane@x.com", Pseudo: "janed",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body)
	}
	if storedHash == "" || storedHash == "secret1" {
		t.Fatalf("stored password is not a hash: %q", storedHash)
	}
	if !utils.CheckPassword("secret1", storedHash) {
		t.Fatal("stored hash does not verify against the password")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	r := userRouter(&mockUserStore{}, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/login", LoginRequest{Email: "jane@x.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	r := userRouter(&mockUserStore{}, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/login", LoginRequest{Email: "ghost@x.com", Password: "secret1"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := utils.HashPassword("secret1")
	store := &mockUserStore{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return &models.User{ID: uuid.New(), Email: email, Password: hash}, nil
		},
	}
	r := userRouter(store, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/login", LoginRequest{Email: "jane@x.com", Password: "wrong-pass"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLogin_Success_TokenAndNoPassword(t *testing.T) {
	userID := uuid.New()
	hash, _ := utils.HashPassword("secret1")
	store := &mockUserStore{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return &models.User{ID: userID, FullName: "Jane Doe", Email: email, Pseudo: "janed", Password: hash}, nil
		},
	}
	r := userRouter(store, uuid.Nil)

	w := postJSON(t, r, http.MethodPost, "/api/user/login", LoginRequest{Email: "jane@x.com", Password: "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body)
	}

	var body struct {
		User  map[string]interface{} `json:"user"`
		Token string                 `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("no token in response")
	}
	if _, leaked := body.User["password"]; leaked {
		t.Fatal("password field present in login response")
	}

	got, err := NewJWTService("test-secret", 168).Validate(body.Token)
	if err != nil {
		t.Fatalf("returned token does not validate: %v", err)
	}
	if got != userID {
		t.Fatalf("token subject = %s, want %s", got, userID)
	}
}

func TestEditProfile_UnchangedEmail_NoSelfReject(t *testing.T) {
	userID := uuid.New()
	hash, _ := utils.HashPassword("secret1")
	store := &mockUserStore{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, FullName: "Jane Doe", Email: "jane@x.com", Pseudo: "janed", Password: hash}, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			// Any uniqueness probe would find the user's own row.
			t.Errorf("uniqueness check ran for unchanged email %q", email)
			return &models.User{Email: email}, nil
		},
	}
	r := userRouter(store, userID)

	w := postJSON(t, r, http.MethodPut, "/api/user/editProfile", EditProfileRequest{
		Email:  "jane@x.com",
		Pseudo: "newpseudo",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body)
	}
}

func TestEditProfile_ChangedEmailTaken(t *testing.T) {
	userID := uuid.New()
	store := &mockUserStore{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Email: "jane@x.com"}, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return &models.User{Email: email}, nil
		},
	}
	r := userRouter(store, userID)

	w := postJSON(t, r, http.MethodPut, "/api/user/editProfile", EditProfileRequest{Email: "taken@x.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestEditProfile_PasswordChange(t *testing.T) {
	userID := uuid.New()
	oldHash, _ := utils.HashPassword("secret1")
	var updated *models.User
	store := &mockUserStore{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Email: "jane@x.com", Password: oldHash}, nil
		},
		updateFn: func(_ context.Context, u *models.User) error {
			updated = u
			return nil
		},
	}
	r := userRouter(store, userID)

	cases := []struct {
		name string
		body EditProfileRequest
		want int
	}{
		{"missing old password", EditProfileRequest{NewPassword: "secret2", ConfirmPassword: "secret2"}, http.StatusBadRequest},
		{"wrong old password", EditProfileRequest{NewPassword: "secret2", OldPassword: "nope", ConfirmPassword: "secret2"}, http.StatusBadRequest},
		{"confirm mismatch", EditProfileRequest{NewPassword: "secret2", OldPassword: "secret1", ConfirmPassword: "secret3"}, http.StatusBadRequest},
		{"too short", EditProfileRequest{NewPassword: "12345", OldPassword: "secret1", ConfirmPassword: "12345"}, http.StatusBadRequest},
		{"success", EditProfileRequest{NewPassword: "secret2", OldPassword: "secret1", ConfirmPassword: "secret2"}, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, http.MethodPut, "/api/user/editProfile", tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body)
			}
		})
	}

	if updated == nil {
		t.Fatal("Update never called")
	}
	if !utils.CheckPassword("secret2", updated.Password) {
		t.Fatal("new password hash does not verify")
	}
}
