package dao

import (
	"context"
	"time"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/metrics"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// instrumented 为每次存储操作记录次数与耗时
type instrumented struct {
	Storage
	backend string
	metrics *metrics.ToolMetrics
}

// Instrument 包装存储，m 为 nil 时原样返回
func Instrument(s Storage, backend string, m *metrics.ToolMetrics) Storage {
	if m == nil {
		return s
	}
	return &instrumented{Storage: s, backend: backend, metrics: m}
}

func (s *instrumented) record(op string, start time.Time, ok bool) {
	s.metrics.RecordStorageOp(s.backend, op, ok, time.Since(start))
}

func (s *instrumented) Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error {
	start := time.Now()
	err := s.Storage.Save(ctx, ownerID, c)
	s.record("save", start, err == nil)
	return err
}

func (s *instrumented) Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error) {
	start := time.Now()
	c, err := s.Storage.Load(ctx, ownerID)
	s.record("load", start, err == nil)
	return c, err
}

func (s *instrumented) Delete(ctx context.Context, ownerID, uniqueID string) error {
	start := time.Now()
	err := s.Storage.Delete(ctx, ownerID, uniqueID)
	s.record("delete", start, err == nil)
	return err
}

func (s *instrumented) Backup(ctx context.Context) bool {
	start := time.Now()
	ok := s.Storage.Backup(ctx)
	s.record("backup", start, ok)
	return ok
}
