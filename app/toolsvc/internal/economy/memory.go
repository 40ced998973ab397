package economy

import (
	"context"
	"sync"
)

// MemoryGateway 进程内余额，用于单机部署与测试
type MemoryGateway struct {
	mu       sync.Mutex
	balances map[string]map[string]float64
}

var _ Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway 创建内存余额
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{balances: make(map[string]map[string]float64)}
}

// SetBalance 直接设置余额
func (g *MemoryGateway) SetBalance(owner, currency string, amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wallet(owner)[currency] = amount
}

func (g *MemoryGateway) wallet(owner string) map[string]float64 {
	w, ok := g.balances[owner]
	if !ok {
		w = make(map[string]float64)
		g.balances[owner] = w
	}
	return w
}

func (g *MemoryGateway) Balance(_ context.Context, owner, currency string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[owner][currency], nil
}

func (g *MemoryGateway) Credit(_ context.Context, owner, currency string, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wallet(owner)[currency] += amount
	return nil
}

func (g *MemoryGateway) Debit(_ context.Context, owner, currency string, amount float64) (bool, error) {
	if err := validAmount(amount); err != nil {
		return false, err
	}
	if amount == 0 {
		return true, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	w := g.wallet(owner)
	if w[currency] < amount {
		return false, nil
	}
	w[currency] -= amount
	return true, nil
}
