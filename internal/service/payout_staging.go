package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/cache"
	"github.com/dujiao-next/payout-receipts/internal/logger"

	"github.com/redis/go-redis/v9"
)

// StagingStore 批处理中间结果暂存，按导出类型与任务 ID 隔离
type StagingStore interface {
	Load(ctx context.Context, exportType, jobID string) (*GroupedPayouts, error)
	Merge(ctx context.Context, exportType, jobID string, grouped *GroupedPayouts) error
	Clear(ctx context.Context, exportType, jobID string) error
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

func decodeStaging(payload []byte) (*GroupedPayouts, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return NewGroupedPayouts(), nil
	}
	var grouped GroupedPayouts
	if err := json.Unmarshal(payload, &grouped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStagingCorrupt, err)
	}
	if grouped.Buckets == nil {
		grouped.Buckets = map[string]*PayoutBucket{}
	}
	if grouped.Keys == nil {
		grouped.Keys = []string{}
	}
	return &grouped, nil
}

func validateStagingName(exportType, jobID string) error {
	for _, part := range []string{exportType, jobID} {
		if strings.TrimSpace(part) == "" || strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return fmt.Errorf("invalid staging name: %q", part)
		}
	}
	return nil
}

// FileStagingStore 基于上传目录 JSON 文件的暂存实现
type FileStagingStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStagingStore 创建文件暂存
func NewFileStagingStore(dir string) *FileStagingStore {
	if strings.TrimSpace(dir) == "" {
		dir = "./uploads"
	}
	return &FileStagingStore{dir: dir}
}

// Path 暂存文件路径
func (s *FileStagingStore) Path(exportType, jobID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("edd-%s-%s.json", exportType, jobID))
}

// Load 读取暂存内容；文件不存在返回空结果，内容损坏时记录告警并视为空
func (s *FileStagingStore) Load(_ context.Context, exportType, jobID string) (*GroupedPayouts, error) {
	if err := validateStagingName(exportType, jobID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(exportType, jobID)
}

func (s *FileStagingStore) loadLocked(exportType, jobID string) (*GroupedPayouts, error) {
	payload, err := os.ReadFile(s.Path(exportType, jobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewGroupedPayouts(), nil
		}
		return nil, err
	}
	grouped, err := decodeStaging(payload)
	if err != nil {
		logger.Warnw("payout_staging_corrupt_reset",
			"export_type", exportType,
			"job_id", jobID,
			"error", err,
		)
		return NewGroupedPayouts(), nil
	}
	return grouped, nil
}

// Merge 读取、合并、写回，写入使用临时文件重命名
func (s *FileStagingStore) Merge(_ context.Context, exportType, jobID string, grouped *GroupedPayouts) error {
	if err := validateStagingName(exportType, jobID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(exportType, jobID)
	if err != nil {
		return err
	}
	current.Merge(grouped)
	payload, err := json.Marshal(current)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	target := s.Path(exportType, jobID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Clear 删除暂存文件
func (s *FileStagingStore) Clear(_ context.Context, exportType, jobID string) error {
	if err := validateStagingName(exportType, jobID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(exportType, jobID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep 删除超过保留时长的暂存文件
func (s *FileStagingStore) Sweep(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := filepath.Glob(filepath.Join(s.dir, "edd-*.json"))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

const redisStagingMaxRetries = 5

// RedisStagingStore 基于 Redis 的暂存实现，过期由 TTL 控制
type RedisStagingStore struct {
	store *cache.Store
	ttl   time.Duration
}

// NewRedisStagingStore 创建 Redis 暂存
func NewRedisStagingStore(store *cache.Store, ttl time.Duration) *RedisStagingStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStagingStore{store: store, ttl: ttl}
}

func (s *RedisStagingStore) key(exportType, jobID string) string {
	return s.store.BuildKey(fmt.Sprintf("payout:staging:%s:%s", exportType, jobID))
}

// Load 读取暂存内容
func (s *RedisStagingStore) Load(ctx context.Context, exportType, jobID string) (*GroupedPayouts, error) {
	if err := validateStagingName(exportType, jobID); err != nil {
		return nil, err
	}
	client := s.store.Client()
	if client == nil {
		return nil, errors.New("redis staging store requires redis")
	}
	payload, err := client.Get(ctx, s.key(exportType, jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewGroupedPayouts(), nil
	}
	if err != nil {
		return nil, err
	}
	grouped, err := decodeStaging(payload)
	if err != nil {
		logger.Warnw("payout_staging_corrupt_reset",
			"export_type", exportType,
			"job_id", jobID,
			"error", err,
		)
		return NewGroupedPayouts(), nil
	}
	return grouped, nil
}

// Merge 在 WATCH 事务中读取、合并、写回
func (s *RedisStagingStore) Merge(ctx context.Context, exportType, jobID string, grouped *GroupedPayouts) error {
	if err := validateStagingName(exportType, jobID); err != nil {
		return err
	}
	client := s.store.Client()
	if client == nil {
		return errors.New("redis staging store requires redis")
	}
	key := s.key(exportType, jobID)
	txf := func(tx *redis.Tx) error {
		current := NewGroupedPayouts()
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			decoded, decodeErr := decodeStaging(payload)
			if decodeErr != nil {
				logger.Warnw("payout_staging_corrupt_reset", "export_type", exportType, "job_id", jobID, "error", decodeErr)
			} else {
				current = decoded
			}
		}
		current.Merge(grouped)
		next, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < redisStagingMaxRetries; i++ {
		err := client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// Clear 删除暂存
func (s *RedisStagingStore) Clear(ctx context.Context, exportType, jobID string) error {
	if err := validateStagingName(exportType, jobID); err != nil {
		return err
	}
	client := s.store.Client()
	if client == nil {
		return nil
	}
	return client.Del(ctx, s.key(exportType, jobID)).Err()
}

// Sweep Redis 暂存依赖 TTL 过期
func (s *RedisStagingStore) Sweep(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}
