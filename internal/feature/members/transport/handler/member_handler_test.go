package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"member_backend/internal/api"
	"member_backend/internal/feature/members/domain/entity"
	"member_backend/internal/feature/members/usecase"
	"member_backend/internal/platform/identity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	api.UseRequestFieldNames()
	os.Exit(m.Run())
}

// mockMembersUsecase is a mock implementation of the MembersUsecase interface.
type mockMembersUsecase struct {
	CreateFunc func(ctx context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error)
	ListFunc   func(ctx context.Context, ownerID string, opts usecase.ListOptions) (*entity.Page, error)
	GetFunc    func(ctx context.Context, ownerID, id string) (*entity.Member, error)
	UpdateFunc func(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error)
	DeleteFunc func(ctx context.Context, ownerID, id string) (bool, error)
}

func (m *mockMembersUsecase) Create(ctx context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error) {
	return m.CreateFunc(ctx, ownerID, in)
}

func (m *mockMembersUsecase) List(ctx context.Context, ownerID string, opts usecase.ListOptions) (*entity.Page, error) {
	return m.ListFunc(ctx, ownerID, opts)
}

func (m *mockMembersUsecase) Get(ctx context.Context, ownerID, id string) (*entity.Member, error) {
	return m.GetFunc(ctx, ownerID, id)
}

func (m *mockMembersUsecase) Update(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error) {
	return m.UpdateFunc(ctx, ownerID, id, patch)
}

func (m *mockMembersUsecase) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	return m.DeleteFunc(ctx, ownerID, id)
}

var stamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleMember(owner string) *entity.Member {
	return &entity.Member{
		ID: "member-1", Name: "Ann", Email: "ann@example.com", Phone: "555",
		Address: "1 Road", ChurchName: "Grace", Department: "Choir",
		Position: entity.DefaultPosition, DateJoined: stamp, CreatedBy: owner,
		CreatedAt: stamp, UpdatedAt: stamp,
	}
}

// newRouter はIdentityを設定した上でハンドラーを登録したルーターを返します。
func newRouter(h *MembersHandler, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), identity.Identity{UserID: userID}))
		}
		c.Next()
	})
	r.POST("/api/members", h.Create)
	r.GET("/api/members", h.List)
	r.GET("/api/members/:id", h.Get)
	r.PUT("/api/members/:id", h.Update)
	r.DELETE("/api/members/:id", h.Delete)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestMembersHandler_Create(t *testing.T) {
	const valid = `{"name":"Ann","email":"ann@example.com","phone":"555","address":"1 Road","churchName":"Grace","department":"Choir"}`

	tests := []struct {
		name           string
		body           string
		createFunc     func(ctx context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: valid,
			createFunc: func(_ context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error) {
				return sampleMember(ownerID), nil
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "Member created successfully",
		},
		{
			name:           "missing required fields",
			body:           `{"name":"Ann"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    api.MessageValidationError,
		},
		{
			name:           "invalid email",
			body:           `{"name":"Ann","email":"nope","phone":"555","address":"1 Road","churchName":"Grace","department":"Choir"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    api.MessageValidationError,
		},
		{
			name:           "bad dateJoined",
			body:           `{"name":"Ann","email":"ann@example.com","phone":"555","address":"1 Road","churchName":"Grace","department":"Choir","dateJoined":"soon"}`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    api.MessageValidationError,
		},
		{
			name:           "malformed json",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    api.MessageValidationError,
		},
		{
			name: "usecase error",
			body: valid,
			createFunc: func(context.Context, string, entity.MemberInput) (*entity.Member, error) {
				return nil, errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    api.MessageServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMembersHandler(&mockMembersUsecase{CreateFunc: tt.createFunc}, zap.NewNop())
			w := do(newRouter(h, "owner-1"), http.MethodPost, "/api/members", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedMsg, decode(t, w)["message"])
		})
	}
}

func TestMembersHandler_Create_ResponseShape(t *testing.T) {
	h := NewMembersHandler(&mockMembersUsecase{
		CreateFunc: func(_ context.Context, ownerID string, _ entity.MemberInput) (*entity.Member, error) {
			return sampleMember(ownerID), nil
		},
	}, zap.NewNop())

	w := do(newRouter(h, "owner-1"), http.MethodPost, "/api/members",
		`{"name":"Ann","email":"ann@example.com","phone":"555","address":"1 Road","churchName":"Grace","department":"Choir"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"message": "Member created successfully",
		"data": {
			"member": {
				"id": "member-1",
				"name": "Ann",
				"email": "ann@example.com",
				"phone": "555",
				"address": "1 Road",
				"churchName": "Grace",
				"department": "Choir",
				"position": "Member",
				"dateJoined": "2024-01-02T03:04:05Z",
				"createdBy": "owner-1",
				"createdAt": "2024-01-02T03:04:05Z",
				"updatedAt": "2024-01-02T03:04:05Z"
			}
		}
	}`, w.Body.String())
}

func TestMembersHandler_RequiresIdentity(t *testing.T) {
	h := NewMembersHandler(&mockMembersUsecase{}, zap.NewNop())
	r := newRouter(h, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/members"},
		{http.MethodGet, "/api/members"},
		{http.MethodGet, "/api/members/x"},
		{http.MethodPut, "/api/members/x"},
		{http.MethodDelete, "/api/members/x"},
	} {
		w := do(r, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMembersHandler_List(t *testing.T) {
	t.Run("query is passed through and pagination rendered", func(t *testing.T) {
		var got usecase.ListOptions
		h := NewMembersHandler(&mockMembersUsecase{
			ListFunc: func(_ context.Context, ownerID string, opts usecase.ListOptions) (*entity.Page, error) {
				got = opts
				return &entity.Page{
					Members:    []entity.Member{*sampleMember(ownerID)},
					Pagination: entity.Pagination{Page: 2, Limit: 10, Total: 25, Pages: 3},
				}, nil
			},
		}, zap.NewNop())

		w := do(newRouter(h, "owner-1"), http.MethodGet, "/api/members?page=2&limit=10&churchName=Grace&search=ann", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, usecase.ListOptions{Page: 2, Limit: 10, ChurchName: "Grace", Search: "ann"}, got)
		resp := decode(t, w)
		assert.Equal(t, "Members retrieved successfully", resp["message"])
		data := resp["data"].(map[string]any)
		assert.Len(t, data["members"], 1)
		assert.Equal(t, map[string]any{"page": 2.0, "limit": 10.0, "total": 25.0, "pages": 3.0}, data["pagination"])
	})

	t.Run("non-numeric paging falls back to defaults", func(t *testing.T) {
		var got usecase.ListOptions
		h := NewMembersHandler(&mockMembersUsecase{
			ListFunc: func(_ context.Context, _ string, opts usecase.ListOptions) (*entity.Page, error) {
				got = opts
				return &entity.Page{Members: []entity.Member{}}, nil
			},
		}, zap.NewNop())

		w := do(newRouter(h, "owner-1"), http.MethodGet, "/api/members?page=abc&limit=", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, got.Page)
		assert.Equal(t, 0, got.Limit)
		data := decode(t, w)["data"].(map[string]any)
		assert.Equal(t, []any{}, data["members"])
	})
}

func TestMembersHandler_Get(t *testing.T) {
	h := NewMembersHandler(&mockMembersUsecase{
		GetFunc: func(_ context.Context, ownerID, id string) (*entity.Member, error) {
			if ownerID == "owner-1" && id == "member-1" {
				return sampleMember(ownerID), nil
			}
			return nil, usecase.ErrMemberNotFound
		},
	}, zap.NewNop())

	w := do(newRouter(h, "owner-1"), http.MethodGet, "/api/members/member-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Member retrieved successfully", decode(t, w)["message"])

	w = do(newRouter(h, "owner-2"), http.MethodGet, "/api/members/member-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Member not found"}`, w.Body.String())
}

func TestMembersHandler_Update(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		updateFunc     func(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error)
		expectedStatus int
	}{
		{
			name: "partial update",
			body: `{"phone":"999"}`,
			updateFunc: func(_ context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error) {
				m := sampleMember(ownerID)
				m.Phone = *patch.Phone
				return m, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "blank name rejected",
			body:           `{"name":"  "}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid email rejected",
			body:           `{"email":"nope"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not owned",
			body: `{"phone":"999"}`,
			updateFunc: func(context.Context, string, string, entity.MemberPatch) (*entity.Member, error) {
				return nil, usecase.ErrMemberNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMembersHandler(&mockMembersUsecase{UpdateFunc: tt.updateFunc}, zap.NewNop())
			w := do(newRouter(h, "owner-1"), http.MethodPut, "/api/members/member-1", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				member := decode(t, w)["data"].(map[string]any)["member"].(map[string]any)
				assert.Equal(t, "999", member["phone"])
			}
		})
	}
}

func TestMembersHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		deleteFunc     func(ctx context.Context, ownerID, id string) (bool, error)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "deleted",
			deleteFunc:     func(context.Context, string, string) (bool, error) { return true, nil },
			expectedStatus: http.StatusOK,
			expectedMsg:    "Member deleted successfully",
		},
		{
			name:           "nothing removed",
			deleteFunc:     func(context.Context, string, string) (bool, error) { return false, nil },
			expectedStatus: http.StatusNotFound,
			expectedMsg:    MessageMemberNotFound,
		},
		{
			name:           "store failure",
			deleteFunc:     func(context.Context, string, string) (bool, error) { return false, errors.New("db down") },
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    api.MessageServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMembersHandler(&mockMembersUsecase{DeleteFunc: tt.deleteFunc}, zap.NewNop())
			w := do(newRouter(h, "owner-1"), http.MethodDelete, "/api/members/member-1", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedMsg, decode(t, w)["message"])
		})
	}
}
