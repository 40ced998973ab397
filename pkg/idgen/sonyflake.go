package idgen

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

// epoch 之后约 174 年内 ID 单调递增
var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type flake struct{ sf *sonyflake.Sonyflake }

// NewSonyflake 多实例部署时 machineID 必须互不相同
func NewSonyflake(machineID uint16) (Generator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if err != nil {
		return nil, errors.Wrapf(err, "sonyflake machine %d", machineID)
	}
	return flake{sf}, nil
}

func (f flake) NextID() (string, error) {
	n, err := f.sf.NextID()
	if err != nil {
		return "", errors.Wrap(err, "sonyflake")
	}
	return strconv.FormatUint(n, 10), nil
}

type random struct{}

// NewUUID 随机 UUIDv4
func NewUUID() Generator { return random{} }

func (random) NextID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "uuid")
	}
	return id.String(), nil
}
