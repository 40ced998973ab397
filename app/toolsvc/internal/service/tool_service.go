package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/cost"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/economy"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/ledger"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/manager"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/metrics"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/progression"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// Deps 工具服务依赖，启动时由 wire 构造一次
type Deps struct {
	Catalog *catalog.Catalog
	Economy economy.Gateway
	Manager *manager.ToolManager
	Ledger  *ledger.Ledger
	Cost    *cost.Model
	Store   *attribute.Store
	Curve   *progression.Curve
	Metrics *metrics.ToolMetrics
}

// ConfigLoader 重新读取运行期参数
type ConfigLoader func() (*Config, error)

// UpgradeOutcome 附魔升级结果与实际扣费
type UpgradeOutcome struct {
	ledger.UpgradeResult
	Currency string
	Price    float64
}

// ToolService 工具服务，所有导出方法视为主线程调用
type ToolService struct {
	logger  logger.Logger
	catalog *catalog.Catalog
	economy economy.Gateway
	manager *manager.ToolManager
	ledger  *ledger.Ledger
	cost    *cost.Model
	store   *attribute.Store
	curve   *progression.Curve
	metrics *metrics.ToolMetrics
	lore    *LoreRenderer
	loader  ConfigLoader

	mu     sync.RWMutex
	config *Config

	closeOnce sync.Once
	closeErr  error
}

// NewToolService 创建工具服务
func NewToolService(cfg *Config, deps Deps, l logger.Logger, loader ConfigLoader) (*ToolService, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge tools config: %w", err)
	}
	if deps.Catalog == nil || deps.Economy == nil || deps.Manager == nil {
		return nil, fmt.Errorf("catalog, economy and manager are required")
	}
	if deps.Store == nil {
		deps.Store = attribute.NewStore(newCfg.Namespace)
	}
	if deps.Curve == nil {
		deps.Curve = progression.NewCurve(&newCfg.Progression)
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New(deps.Catalog, deps.Catalog, newCfg.LedgerConfig())
	}
	if deps.Cost == nil {
		deps.Cost = cost.New(deps.Catalog, newCfg.CostConfig())
	}

	return &ToolService{
		logger:  l.Named("service.tool"),
		catalog: deps.Catalog,
		economy: deps.Economy,
		manager: deps.Manager,
		ledger:  deps.Ledger,
		cost:    deps.Cost,
		store:   deps.Store,
		curve:   deps.Curve,
		metrics: deps.Metrics,
		lore:    NewLoreRenderer(deps.Catalog, deps.Curve),
		loader:  loader,
		config:  newCfg,
	}, nil
}

// Config 当前运行期参数
func (s *ToolService) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.config
}

// Manager 缓存协调器
func (s *ToolService) Manager() *manager.ToolManager {
	return s.manager
}

// ==================== 内部辅助 ====================

// readTool 从物品读取记录并按当前配置修正，非工具返回 ErrNotATool
func (s *ToolService) readTool(ctx context.Context, item model.Item) (*model.ToolRecord, error) {
	if !s.store.IsTool(item) {
		return nil, model.ErrNotATool
	}
	rec, warnings := s.store.ReadRecord(item)
	for _, w := range warnings {
		s.metrics.RecordDecodeWarning(w.Field)
		s.logger.WarnContext(ctx, "malformed encoded attribute", "field", w.Field, "error", w.Error())
	}
	// 物品上可能仍是重载前的等级，与缓存保持一致
	s.normalize(rec)
	return rec, nil
}

// commit 写回物品并同步到缓存；同步失败只记录日志，物品状态仍然有效
func (s *ToolService) commit(ctx context.Context, owner string, item model.Item, rec *model.ToolRecord) {
	s.store.WriteRecord(item, rec)
	s.refreshLore(item, rec)
	if _, err := s.manager.HandleToolUpdate(ctx, owner, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to sync tool to cache",
			"unique_id", rec.UniqueID,
			"error", err,
		)
	}
}

func (s *ToolService) refreshLore(item model.Item, rec *model.ToolRecord) {
	lines := s.lore.Render(rec)
	s.store.Update(item, func(meta *model.ItemMeta) {
		meta.Lore = lines
		if meta.DisplayName == "" {
			if tt, ok := s.catalog.LookupToolType(rec.ToolTypeID); ok {
				meta.DisplayName = tt.DisplayName
			}
		}
	})
}

// ==================== 工具操作 ====================

// CreateTool 按工具类型创建新物品并登记
func (s *ToolService) CreateTool(ctx context.Context, owner, toolTypeID string) (item *model.ItemStack, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("create_tool", err) }()

	// 1. 工具类型
	tt, ok := s.catalog.LookupToolType(toolTypeID)
	if !ok {
		return nil, errors.Wrapf(model.ErrUnknownToolType, "tool type %q", toolTypeID)
	}

	// 2. 默认附魔
	rec := model.NewToolRecord("", tt.ID)
	for _, id := range sortedIDs(tt.DefaultEnchantments) {
		def, ok := s.catalog.Lookup(id)
		if !ok || !s.catalog.IsApplicable(id, tt.ID) {
			s.logger.WarnContext(ctx, "skipping default enchantment",
				"tool_type", tt.ID,
				"enchantment", id,
			)
			continue
		}
		s.ledger.SetEnchantmentLevel(rec, id, s.ledger.Clamp(def, tt.DefaultEnchantments[id]))
	}

	// 3. 写入物品
	item = model.NewItemStack(tt.Material)
	s.store.Update(item, func(meta *model.ItemMeta) {
		meta.DisplayName = tt.DisplayName
	})
	s.store.WriteRecord(item, rec)

	// 4. 登记（分配 uniqueId）
	registered, err := s.manager.RegisterTool(ctx, owner, item)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return nil, err
		}
		// 物品已带有 uniqueId，下一次对账会补登记
		s.logger.ErrorContext(ctx, "failed to register created tool", "tool_type", tt.ID, "error", err)
		err = nil
	} else {
		rec = registered
	}
	s.refreshLore(item, rec)

	s.logger.InfoContext(ctx, "tool created", "tool_type", tt.ID, "unique_id", rec.UniqueID)
	return item, nil
}

// UpgradeEnchantment 校验、扣费并设置附魔等级
//
// 余额在修改前检查；扣费失败时恢复修改前的记录，物品不写入。
// 降级或等级不变时价格为 0，不扣费。
func (s *ToolService) UpgradeEnchantment(ctx context.Context, owner string, item model.Item, enchantID string, target int) (out *UpgradeOutcome, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("upgrade_enchantment", err) }()

	rec, err := s.readTool(ctx, item)
	if err != nil {
		return nil, err
	}
	before := rec.Clone()

	// 1. 校验（在副本上执行，失败时记录不变）
	trial := rec.Clone()
	res, err := s.ledger.UpgradeEnchantment(trial, enchantID, target, rec.ToolTypeID)
	if err != nil {
		return nil, err
	}
	def, _ := s.catalog.Lookup(enchantID)
	price := s.cost.TotalCost(enchantID, res.Previous, res.Level, def.Currency)
	out = &UpgradeOutcome{UpgradeResult: res, Currency: def.Currency, Price: price}

	// 2. 余额检查
	if price > 0 {
		balance, err := s.economy.Balance(ctx, owner, def.Currency)
		if err != nil {
			return nil, model.EconomyError(err, "balance lookup failed")
		}
		if balance < price {
			return nil, errors.Wrapf(model.ErrInsufficientCurrency,
				"%s needs %.2f %s, has %.2f", enchantID, price, def.Currency, balance)
		}
	}

	// 3. 预先修改
	rec = trial

	// 4. 扣费，失败时回滚
	if price > 0 {
		ok, err := s.economy.Debit(ctx, owner, def.Currency, price)
		if err != nil || !ok {
			rec = before
			s.logger.WarnContext(ctx, "enchantment upgrade rolled back",
				"enchantment", enchantID,
				"level", rec.EnchantLevel(enchantID),
				"price", price,
				"error", err,
			)
			return nil, model.EconomyError(err, "debit failed")
		}
	}

	// 5. 写回
	s.commit(ctx, owner, item, rec)

	s.logger.InfoContext(ctx, "enchantment upgraded",
		"unique_id", rec.UniqueID,
		"enchantment", enchantID,
		"from", res.Previous,
		"to", res.Level,
		"price", price,
		"currency", def.Currency,
	)
	return out, nil
}

// ApplyCubeBoost 应用强化方块，返回原强化比例
func (s *ToolService) ApplyCubeBoost(ctx context.Context, owner string, item model.Item, enchantID string, boost float64) (prev float64, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("apply_cube", err) }()

	rec, err := s.readTool(ctx, item)
	if err != nil {
		return 0, err
	}
	prev, err = s.ledger.ApplyCubeBoost(rec, enchantID, boost)
	if err != nil {
		return prev, err
	}
	s.commit(ctx, owner, item, rec)

	s.logger.InfoContext(ctx, "cube applied",
		"unique_id", rec.UniqueID,
		"enchantment", enchantID,
		"from", prev,
		"to", boost,
	)
	return prev, nil
}

// RemoveCubeBoost 移除强化，返回回收的方块（可能为 nil），由调用方发放
func (s *ToolService) RemoveCubeBoost(ctx context.Context, owner string, item model.Item, enchantID string) (cube *model.RecoveredCube, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("remove_cube", err) }()

	rec, err := s.readTool(ctx, item)
	if err != nil {
		return nil, err
	}
	cube, removed := s.ledger.RemoveCubeBoost(rec, enchantID)
	if !removed {
		return nil, nil
	}
	s.commit(ctx, owner, item, rec)

	s.logger.InfoContext(ctx, "cube removed",
		"unique_id", rec.UniqueID,
		"enchantment", enchantID,
		"recovered", cube != nil,
	)
	return cube, nil
}

// ResetAll 清空附魔与强化，按返还比例退还货币
//
// 退款先于修改执行；任一货币退款失败时撤回已退部分，记录保持不变。
func (s *ToolService) ResetAll(ctx context.Context, owner string, item model.Item) (refund map[string]float64, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("reset_all", err) }()

	rec, err := s.readTool(ctx, item)
	if err != nil {
		return nil, err
	}

	// 1. 计算返还
	trial := rec.Clone()
	snap := s.ledger.ResetAll(trial)
	refund = s.cost.Refund(snap.Enchantments, s.cost.RefundRate())

	// 2. 退款
	credited := make(map[string]float64, len(refund))
	for _, currency := range sortedIDs(refund) {
		if err := s.economy.Credit(ctx, owner, currency, refund[currency]); err != nil {
			s.revertCredits(ctx, owner, credited)
			return nil, model.EconomyError(err, "refund credit failed")
		}
		credited[currency] = refund[currency]
	}

	// 3. 写回
	s.commit(ctx, owner, item, trial)

	s.logger.InfoContext(ctx, "tool reset",
		"unique_id", trial.UniqueID,
		"enchantments", len(snap.Enchantments),
		"cubes", len(snap.CubeBoosts),
		"refund", refund,
	)
	return refund, nil
}

func (s *ToolService) revertCredits(ctx context.Context, owner string, credited map[string]float64) {
	for currency, amount := range credited {
		if ok, err := s.economy.Debit(ctx, owner, currency, amount); err != nil || !ok {
			s.logger.ErrorContext(ctx, "failed to revert partial refund",
				"currency", currency,
				"amount", amount,
				"error", err,
			)
		}
	}
}

// GetEnchantments 读取附魔与强化
func (s *ToolService) GetEnchantments(ctx context.Context, item model.Item) (model.ToolSnapshot, error) {
	rec, err := s.readTool(ctx, item)
	if err != nil {
		return model.ToolSnapshot{}, err
	}
	return model.ToolSnapshot{
		Enchantments: rec.Enchantments,
		CubeBoosts:   rec.CubeBoosts,
	}, nil
}

// AddExperience 增加经验，返回是否升级
func (s *ToolService) AddExperience(ctx context.Context, owner string, item model.Item, amount int64) (leveledUp bool, err error) {
	ctx = logger.WithOwner(ctx, owner)

	rec, err := s.readTool(ctx, item)
	if err != nil {
		return false, err
	}
	if amount <= 0 {
		return false, nil
	}
	leveledUp = s.curve.AddExperience(rec, amount)
	s.commit(ctx, owner, item, rec)

	if leveledUp {
		s.logger.InfoContext(ctx, "tool leveled up", "unique_id", rec.UniqueID, "level", rec.Level)
	}
	return leveledUp, nil
}

// ==================== 缓存协调 ====================

// RegisterTool 登记物品
func (s *ToolService) RegisterTool(ctx context.Context, owner string, item model.Item) (*model.ToolRecord, error) {
	return s.manager.RegisterTool(logger.WithOwner(ctx, owner), owner, item)
}

// HandleToolUpdate 物品被外部修改后同步到缓存
func (s *ToolService) HandleToolUpdate(ctx context.Context, owner string, item model.Item) (*model.ToolRecord, error) {
	return s.manager.HandleToolUpdate(logger.WithOwner(ctx, owner), owner, item)
}

// HandlePlayerJoin 上线对账
func (s *ToolService) HandlePlayerJoin(ctx context.Context, owner string, items []model.Item) (report *manager.JoinReport, err error) {
	ctx = logger.WithOwner(ctx, owner)
	defer func() { s.metrics.RecordOperation("join", err) }()

	report, err = s.manager.HandleJoin(ctx, owner, items)
	if err != nil {
		s.logger.ErrorContext(ctx, "player join reconcile failed", "error", err)
		return report, err
	}
	s.logger.InfoContext(ctx, "player joined",
		"reconciled", report.Reconciled,
		"registered", report.Registered,
		"duplicates", len(report.Duplicates),
	)
	return report, nil
}

// HandlePlayerQuit 下线
func (s *ToolService) HandlePlayerQuit(ctx context.Context, owner string) {
	s.manager.HandleQuit(logger.WithOwner(ctx, owner), owner)
}

// ==================== 生命周期 ====================

// Reload 重新读取运行期参数与配置表
func (s *ToolService) Reload(ctx context.Context) error {
	cfg := s.Config()
	if s.loader != nil {
		loaded, err := s.loader()
		if err != nil {
			return fmt.Errorf("failed to load tools config: %w", err)
		}
		cfg = *loaded
	}
	return s.ReloadWith(ctx, &cfg)
}

// ReloadWith 应用给定参数：配置表 -> 可调参数 -> 已缓存记录的规范化
//
// 配置表加载失败时保留旧表和旧参数。
func (s *ToolService) ReloadWith(ctx context.Context, cfg *Config) error {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to merge tools config: %w", err)
	}

	// 1. 配置表
	if err := s.catalog.Reload(newCfg.CatalogDir); err != nil {
		s.logger.ErrorContext(ctx, "catalog reload failed, keeping previous tables", "error", err)
		return fmt.Errorf("failed to reload catalog: %w", err)
	}

	// 2. 可调参数
	s.ledger.Configure(newCfg.LedgerConfig())
	s.cost.Configure(newCfg.CostConfig())
	s.curve.Configure(&newCfg.Progression)

	// 3. 已缓存记录
	normalized := s.manager.UpdateAll(s.normalize)

	s.mu.Lock()
	s.config = newCfg
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "tools reloaded",
		"max_enchant_level", newCfg.MaxEnchantLevel,
		"refund_rate", newCfg.RefundRate,
		"cost_multiplier", newCfg.CostMultiplier,
		"normalized", normalized,
	)
	return nil
}

// normalize 按当前曲线与等级上限修正记录
func (s *ToolService) normalize(rec *model.ToolRecord) bool {
	changed := s.curve.Normalize(rec)
	for id, lv := range rec.Enchantments {
		def, ok := s.catalog.Lookup(id)
		if !ok {
			continue
		}
		if clamped := s.ledger.Clamp(def, lv); clamped != lv {
			s.ledger.SetEnchantmentLevel(rec, id, clamped)
			changed = true
		}
	}
	return changed
}

// Shutdown 阻塞刷盘所有缓存玩家
func (s *ToolService) Shutdown(ctx context.Context) error {
	if err := s.manager.FlushAllSync(ctx); err != nil {
		return fmt.Errorf("failed to flush tools on shutdown: %w", err)
	}
	return nil
}

// Close 实现 app.Closer，在存储关闭之前执行最终刷盘
func (s *ToolService) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.Config().ShutdownTimeout)
		defer cancel()
		s.closeErr = s.Shutdown(ctx)
	})
	return s.closeErr
}

func sortedIDs[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
