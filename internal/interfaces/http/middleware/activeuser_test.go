package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
)

// fakeUserStore 内存用户仓储
type fakeUserStore struct {
	users  map[string]*entity.User
	getErr error
}

func newFakeUserStore(users ...*entity.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*entity.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, u *entity.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.users[id], nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Update(_ context.Context, u *entity.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) List(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	var items []*entity.User
	for _, u := range s.users {
		items = append(items, u)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (s *fakeUserStore) UpdateLastLogin(_ context.Context, _ string) error {
	return nil
}

func (s *fakeUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	u, _ := s.GetByEmail(context.Background(), email)
	return u != nil, nil
}

func (s *fakeUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	u, _ := s.GetByUsername(context.Background(), username)
	return u != nil, nil
}

// newActiveUserRouter 构造带用户状态校验的路由
func newActiveUserRouter(store repository.UserRepository, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
	})
	r.Use(ActiveUser(store))
	r.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doPost(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// 令牌有效期内账号被停用或删除的请求必须拒绝，不能只信任令牌声明
func TestActiveUserGate(t *testing.T) {
	active := entity.NewUser("a@example.com", "active", "")
	disabled := entity.NewUser("d@example.com", "disabled", "")
	disabled.IsActive = false
	store := newFakeUserStore(active, disabled)

	// 活跃用户放行
	w := doGet(newActiveUserRouter(store, active.ID), "/protected")
	assert.Equal(t, http.StatusOK, w.Code)

	// 停用用户 401
	w = doGet(newActiveUserRouter(store, disabled.ID), "/protected")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 已删除用户 401，与停用不可区分
	w = doGet(newActiveUserRouter(store, "deleted-id"), "/protected")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// 免认证路径没有用户身份，直接放行
func TestActiveUserSkipsAnonymous(t *testing.T) {
	w := doGet(newActiveUserRouter(newFakeUserStore(), ""), "/protected")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActiveUserStoreFailure(t *testing.T) {
	store := newFakeUserStore()
	store.getErr = fmt.Errorf("db down")

	w := doGet(newActiveUserRouter(store, "user-1"), "/protected")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
