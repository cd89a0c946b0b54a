package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/internal/interfaces/http/middleware"
)

// fakeUserRepo 内存用户仓储
type fakeUserRepo struct {
	byID       map[string]*entity.User
	byUsername map[string]*entity.User
	byEmail    map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{
		byID:       make(map[string]*entity.User),
		byUsername: make(map[string]*entity.User),
		byEmail:    make(map[string]*entity.User),
	}
	for _, u := range users {
		r.add(u)
	}
	return r
}

func (r *fakeUserRepo) add(u *entity.User) {
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u
	r.byEmail[u.Email] = u
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.add(u)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.byID[id], nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.byEmail[email], nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.byUsername[username], nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.add(u)
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if u, ok := r.byID[id]; ok {
		delete(r.byID, id)
		delete(r.byUsername, u.Username)
		delete(r.byEmail, u.Email)
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	var items []*entity.User
	for _, u := range r.byID {
		items = append(items, u)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string) error {
	if u, ok := r.byID[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := r.byUsername[username]
	return ok, nil
}

func testAuthConfig() middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret: "test-secret",
		Issuer: "bookagent",
		TTL:    time.Hour,
	}
}

func newAuthRouter(repo repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(testAuthConfig(), repo)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/token", h.Token)
	return r
}

func activeUser(t *testing.T, username, password string) *entity.User {
	t.Helper()
	u := entity.NewUser(username+"@example.com", username, "")
	require.NoError(t, u.SetPassword(password))
	return u
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	r := newAuthRouter(repo)

	w := postJSON(r, "/auth/register", dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "s3cret-pass",
		FullName: "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response[*dto.AuthUserDTO]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Data.Username)
	assert.False(t, resp.Data.IsAdmin)

	// 密码散列落库
	u := repo.byUsername["alice"]
	require.NotNil(t, u)
	assert.True(t, u.CheckPassword("s3cret-pass"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := activeUser(t, "alice", "password1")
	r := newAuthRouter(newFakeUserRepo(existing))

	w := postJSON(r, "/auth/register", dto.RegisterRequest{
		Email:    existing.Email,
		Username: "different",
		Password: "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	existing := activeUser(t, "alice", "password1")
	r := newAuthRouter(newFakeUserRepo(existing))

	w := postJSON(r, "/auth/register", dto.RegisterRequest{
		Email:    "other@example.com",
		Username: "alice",
		Password: "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterInvalidBody(t *testing.T) {
	r := newAuthRouter(newFakeUserRepo())

	w := postJSON(r, "/auth/register", map[string]string{
		"email":    "not-an-email",
		"username": "alice",
		"password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToken(t *testing.T) {
	u := activeUser(t, "alice", "s3cret-pass")
	r := newAuthRouter(newFakeUserRepo(u))

	w := postForm(r, "/auth/token", url.Values{
		"username": {"alice"},
		"password": {"s3cret-pass"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response[*dto.TokenResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.Equal(t, "bearer", resp.Data.TokenType)
	assert.Equal(t, int(time.Hour.Seconds()), resp.Data.ExpiresIn)
}

// 用户不存在、密码错误、账号停用必须返回同一个 401 响应
func TestTokenFailuresIndistinguishable(t *testing.T) {
	good := activeUser(t, "alice", "s3cret-pass")
	inactive := activeUser(t, "bob", "s3cret-pass")
	inactive.IsActive = false
	r := newAuthRouter(newFakeUserRepo(good, inactive))

	cases := []url.Values{
		{"username": {"missing"}, "password": {"s3cret-pass"}},
		{"username": {"alice"}, "password": {"wrong-pass"}},
		{"username": {"bob"}, "password": {"s3cret-pass"}},
	}

	var bodies []string
	for _, form := range cases {
		w := postForm(r, "/auth/token", form)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		bodies = append(bodies, w.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
}
