package handler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/manager"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/web"
	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

// ToolAdmin 管理接口依赖的服务能力
type ToolAdmin interface {
	Manager() *manager.ToolManager
	Reload(ctx context.Context) error
}

// AdminHandler 运维管理接口
type AdminHandler struct {
	admin  ToolAdmin
	logger logger.Logger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(admin ToolAdmin, l logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: l.Named("handler.admin"),
	}
}

type ownerURI struct {
	Owner string `uri:"owner" binding:"required,max=64"`
}

type toolURI struct {
	Owner    string `uri:"owner" binding:"required,max=64"`
	UniqueID string `uri:"uid" binding:"required,max=128"`
}

// OwnerStateResponse 玩家缓存状态
type OwnerStateResponse struct {
	Owner string `json:"owner"`
	State string `json:"state"`
	Dirty bool   `json:"dirty"`
}

// Register 注册路由
func (h *AdminHandler) Register(r *gin.Engine) {
	admin := r.Group("/admin")
	{
		admin.GET("/owners/:owner/tools", h.ListTools)
		admin.GET("/owners/:owner/state", h.OwnerState)
		admin.POST("/owners/:owner/flush", h.Flush)
		admin.DELETE("/owners/:owner/tools/:uid", h.DeleteTool)
		admin.POST("/backup", h.Backup)
		admin.POST("/reload", h.Reload)
		admin.GET("/stats", h.Stats)
	}
	r.GET("/health", func(c *gin.Context) {
		web.Success(c, gin.H{"status": "ok"})
	})
}

// ListTools 列出玩家的工具记录（必要时从存储加载）
// @Router /admin/owners/{owner}/tools [get]
func (h *AdminHandler) ListTools(c *gin.Context) {
	var req ownerURI
	if !web.BindURI(c, &req) {
		return
	}
	tools, err := h.admin.Manager().Tools(c.Request.Context(), req.Owner)
	if err != nil {
		h.fail(c, "list tools", err)
		return
	}
	web.Success(c, tools)
}

// OwnerState 查询玩家缓存状态，不触发加载
// @Router /admin/owners/{owner}/state [get]
func (h *AdminHandler) OwnerState(c *gin.Context) {
	var req ownerURI
	if !web.BindURI(c, &req) {
		return
	}
	m := h.admin.Manager()
	web.Success(c, OwnerStateResponse{
		Owner: req.Owner,
		State: m.State(req.Owner).String(),
		Dirty: m.IsDirty(req.Owner),
	})
}

// Flush 立即刷盘单个玩家
// @Router /admin/owners/{owner}/flush [post]
func (h *AdminHandler) Flush(c *gin.Context) {
	var req ownerURI
	if !web.BindURI(c, &req) {
		return
	}
	if err := h.admin.Manager().Flush(c.Request.Context(), req.Owner); err != nil {
		h.fail(c, "flush", err)
		return
	}
	h.logger.Info("owner flushed by admin", "owner_id", req.Owner)
	web.Success(c, nil)
}

// DeleteTool 删除一件工具
// @Router /admin/owners/{owner}/tools/{uid} [delete]
func (h *AdminHandler) DeleteTool(c *gin.Context) {
	var req toolURI
	if !web.BindURI(c, &req) {
		return
	}
	if err := h.admin.Manager().Delete(c.Request.Context(), req.Owner, req.UniqueID); err != nil {
		h.fail(c, "delete tool", err)
		return
	}
	web.Success(c, nil)
}

// Backup 触发存储备份
// @Router /admin/backup [post]
func (h *AdminHandler) Backup(c *gin.Context) {
	if err := h.admin.Manager().Backup(c.Request.Context()); err != nil {
		h.fail(c, "backup", err)
		return
	}
	web.Success(c, nil)
}

// Reload 重新加载运行期参数与配置表
// @Router /admin/reload [post]
func (h *AdminHandler) Reload(c *gin.Context) {
	if err := h.admin.Reload(c.Request.Context()); err != nil {
		h.fail(c, "reload", err)
		return
	}
	web.Success(c, nil)
}

// Stats 管理器运行状态
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	web.Success(c, h.admin.Manager().Stats())
}

// fail 按错误类别写入响应
func (h *AdminHandler) fail(c *gin.Context, op string, err error) {
	code := errorCode(err)
	if code >= weberrors.CodeInternalError {
		h.logger.Error("admin request failed", "op", op, "error", err)
	} else {
		h.logger.Warn("admin request rejected", "op", op, "error", err)
	}
	web.Error(c, weberrors.CodeToStatus(code), code, err.Error())
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, dao.ErrInvalidOwnerID), errors.Is(err, model.ErrValidation):
		return weberrors.CodeInvalidParams
	case errors.Is(err, dao.ErrToolNotFound):
		return weberrors.CodeNotFound
	case errors.Is(err, redis.ErrLockFailed):
		return weberrors.CodeConflict
	case errors.Is(err, model.ErrStorage), errors.Is(err, manager.ErrBackupFailed):
		return weberrors.CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return weberrors.CodeUnavailable
	default:
		return weberrors.CodeInternalError
	}
}
