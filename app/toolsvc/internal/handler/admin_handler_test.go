package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/manager"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/idgen"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/web"
	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

type fakeAdmin struct {
	mgr       *manager.ToolManager
	reloadErr error
	reloads   int
}

func (a *fakeAdmin) Manager() *manager.ToolManager { return a.mgr }

func (a *fakeAdmin) Reload(context.Context) error {
	a.reloads++
	return a.reloadErr
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T) (*gin.Engine, *fakeAdmin, *dao.MemoryStorage, *attribute.Store) {
	t.Helper()
	l := logger.NewNoop()
	storage := dao.NewMemoryStorage()
	store := attribute.NewStore("")
	mgr, err := manager.New(&manager.Config{IOWorkers: 2}, storage, store, idgen.NewUUID(), l, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	s, err := web.NewServer(&web.Config{Mode: gin.TestMode}, l)
	require.NoError(t, err)

	admin := &fakeAdmin{mgr: mgr}
	NewAdminHandler(admin, l).Register(s.Router())
	return s.Router(), admin, storage, store
}

func do(t *testing.T, r http.Handler, method, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func registerTool(t *testing.T, mgr *manager.ToolManager, store *attribute.Store, owner string) string {
	t.Helper()
	item := model.NewItemStack("DIAMOND_PICKAXE")
	store.WriteRecord(item, model.NewToolRecord("", "pickaxe"))
	rec, err := mgr.RegisterTool(context.Background(), owner, item)
	require.NoError(t, err)
	return rec.UniqueID
}

func TestAdminToolsAndState(t *testing.T) {
	r, admin, storage, store := newTestHandler(t)

	code, resp := do(t, r, http.MethodGet, "/admin/owners/alice/state")
	require.Equal(t, http.StatusOK, code)
	var state OwnerStateResponse
	require.NoError(t, json.Unmarshal(resp.Data, &state))
	assert.Equal(t, "unloaded", state.State)

	uid := registerTool(t, admin.mgr, store, "alice")

	code, resp = do(t, r, http.MethodGet, "/admin/owners/alice/tools")
	require.Equal(t, http.StatusOK, code)
	var tools []*model.ToolRecord
	require.NoError(t, json.Unmarshal(resp.Data, &tools))
	require.Len(t, tools, 1)
	assert.Equal(t, uid, tools[0].UniqueID)

	_, resp = do(t, r, http.MethodGet, "/admin/owners/alice/state")
	require.NoError(t, json.Unmarshal(resp.Data, &state))
	assert.Equal(t, "dirty", state.State)
	assert.True(t, state.Dirty)

	code, _ = do(t, r, http.MethodPost, "/admin/owners/alice/flush")
	require.Equal(t, http.StatusOK, code)
	saved, err := storage.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, saved)
	_, ok := saved.Get(uid)
	assert.True(t, ok)

	_, resp = do(t, r, http.MethodGet, "/admin/owners/alice/state")
	require.NoError(t, json.Unmarshal(resp.Data, &state))
	assert.Equal(t, "clean", state.State)
	assert.False(t, state.Dirty)
}

func TestAdminDeleteTool(t *testing.T) {
	r, admin, _, store := newTestHandler(t)
	uid := registerTool(t, admin.mgr, store, "bob")

	code, _ := do(t, r, http.MethodDelete, "/admin/owners/bob/tools/"+uid)
	assert.Equal(t, http.StatusOK, code)

	code, resp := do(t, r, http.MethodDelete, "/admin/owners/bob/tools/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, weberrors.CodeNotFound, resp.Code)
}

func TestAdminBackupReloadStats(t *testing.T) {
	r, admin, storage, _ := newTestHandler(t)

	code, _ := do(t, r, http.MethodPost, "/admin/backup")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, storage.Backups())

	code, _ = do(t, r, http.MethodPost, "/admin/reload")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, admin.reloads)

	admin.reloadErr = errors.New("catalog broken")
	code, resp := do(t, r, http.MethodPost, "/admin/reload")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, resp.Message, "catalog broken")

	code, resp = do(t, r, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, code)
	var stats manager.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.NotEmpty(t, stats.Jobs)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.ErrNotATool, weberrors.CodeInvalidParams},
		{"invalid owner", errors.Wrap(dao.ErrInvalidOwnerID, "load"), weberrors.CodeInvalidParams},
		{"not found", dao.ErrToolNotFound, weberrors.CodeNotFound},
		{"storage", model.StorageError(errors.New("disk full"), "save"), weberrors.CodeUnavailable},
		{"backup", manager.ErrBackupFailed, weberrors.CodeUnavailable},
		{"other", errors.New("boom"), weberrors.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}
