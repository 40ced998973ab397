package dao

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/serializer"
)

const (
	extBinary = ".tool"
	extYAML   = ".yaml"

	backupDir = "backups"
)

// FileStorage 每个玩家一个文件：<dir>/<owner>.tool 或 <dir>/<owner>.yaml
type FileStorage struct {
	dir    string
	format Format
	env    *Envelope
	yaml   *serializer.YAML
	logger logger.Logger
	now    func() time.Time
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage 创建文件存储
func NewFileStorage(dir string, format Format, env *Envelope, l logger.Logger) (*FileStorage, error) {
	if format == "" {
		format = FormatBinary
	}
	if format != FormatBinary && format != FormatYAML {
		return nil, errors.Newf("unsupported file format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.StorageError(err, "create storage dir")
	}
	return &FileStorage{
		dir:    dir,
		format: format,
		env:    env,
		yaml:   serializer.NewYAML(),
		logger: l.Named("dao.file"),
		now:    time.Now,
	}, nil
}

func (s *FileStorage) ext() string {
	if s.format == FormatYAML {
		return extYAML
	}
	return extBinary
}

func (s *FileStorage) path(ownerID, ext string) string {
	return filepath.Join(s.dir, ownerID+ext)
}

func (s *FileStorage) encode(ownerID string, c *model.OwnerCollection, ext string) ([]byte, error) {
	if ext == extYAML {
		return s.yaml.Serialize(toRecordSet(ownerID, c))
	}
	return s.env.Marshal(ownerID, c)
}

func (s *FileStorage) decode(data []byte, ext string) (*model.OwnerCollection, error) {
	if ext == extYAML {
		var rs recordSet
		if err := s.yaml.Deserialize(data, &rs); err != nil {
			return nil, errors.Wrapf(ErrCorruptRecord, "yaml: %v", err)
		}
		return rs.collection(), nil
	}
	return s.env.Unmarshal(data)
}

// Save 整文件覆盖写入
func (s *FileStorage) Save(_ context.Context, ownerID string, c *model.OwnerCollection) error {
	if err := validateOwnerID(ownerID); err != nil {
		return model.StorageError(err, "save")
	}
	data, err := s.encode(ownerID, stamp(c), s.ext())
	if err != nil {
		return model.StorageError(err, "encode owner record")
	}
	if err := os.WriteFile(s.path(ownerID, s.ext()), data, 0o644); err != nil {
		return model.StorageError(err, "write owner record")
	}
	return nil
}

// Load 读取玩家记录，优先当前格式，找不到时尝试另一种格式
func (s *FileStorage) Load(_ context.Context, ownerID string) (*model.OwnerCollection, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, model.StorageError(err, "load")
	}
	exts := []string{s.ext(), extYAML}
	if s.format == FormatYAML {
		exts[1] = extBinary
	}
	for _, ext := range exts {
		data, err := os.ReadFile(s.path(ownerID, ext))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, model.StorageError(err, "read owner record")
		}
		c, err := s.decode(data, ext)
		if err != nil {
			return nil, model.StorageError(err, "decode owner record "+ownerID)
		}
		c.OwnerID = ownerID
		return c, nil
	}
	return nil, nil
}

// Delete 删除单个工具并回写
func (s *FileStorage) Delete(ctx context.Context, ownerID, uniqueID string) error {
	c, err := s.Load(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := removeTool(c, ownerID, uniqueID); err != nil {
		return err
	}
	return s.Save(ctx, ownerID, c)
}

// Owners 列出所有存在记录的玩家
func (s *FileStorage) Owners(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, model.StorageError(err, "list storage dir")
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != extBinary && ext != extYAML {
			continue
		}
		owner := strings.TrimSuffix(name, ext)
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		out = append(out, owner)
	}
	return out, nil
}

// Backup 复制所有记录文件到 <dir>/backups/<ts>/
func (s *FileStorage) Backup(ctx context.Context) bool {
	dest := filepath.Join(s.dir, backupDir, backupStamp(s.now()))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		s.logger.Error("failed to create backup dir", "dir", dest, "error", err)
		return false
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("failed to list storage dir", "dir", s.dir, "error", err)
		return false
	}
	count := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			s.logger.Warn("backup cancelled", "copied", count)
			return false
		}
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != extBinary && ext != extYAML) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Error("failed to read record for backup", "file", e.Name(), "error", err)
			return false
		}
		if err := os.WriteFile(filepath.Join(dest, e.Name()), data, 0o644); err != nil {
			s.logger.Error("failed to write backup", "file", e.Name(), "error", err)
			return false
		}
		count++
	}
	s.logger.Info("backup completed", "dir", dest, "records", count)
	return true
}

// Close 文件存储无需释放资源
func (s *FileStorage) Close() error {
	return nil
}
