package dao

import (
	"context"
	"sort"
	"sync"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// MemoryStorage 进程内存储，保存深拷贝，用于测试和试运行
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string]*model.OwnerCollection
	backups int
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*model.OwnerCollection)}
}

func (s *MemoryStorage) Save(_ context.Context, ownerID string, c *model.OwnerCollection) error {
	cp := stamp(c).DeepCopy()
	cp.OwnerID = ownerID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ownerID] = cp
	return nil
}

func (s *MemoryStorage) Load(_ context.Context, ownerID string) (*model.OwnerCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[ownerID]
	if !ok {
		return nil, nil
	}
	return c.DeepCopy(), nil
}

func (s *MemoryStorage) Delete(_ context.Context, ownerID, uniqueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeTool(s.records[ownerID], ownerID, uniqueID)
}

func (s *MemoryStorage) Owners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Backup 只计数
func (s *MemoryStorage) Backup(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups++
	return true
}

// Backups 已执行的备份次数
func (s *MemoryStorage) Backups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups
}

func (s *MemoryStorage) Close() error {
	return nil
}
