// pkg/store/filestore.go
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PersistenceError 状态持久化失败
// 持久化失败不阻塞通知路径，内存状态仍然是权威数据，下个周期重试写入
type PersistenceError struct {
	Name string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化 %s 失败: %v", e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FileStore 基于JSON文件的键值存储
// 每个逻辑名称对应数据目录下一个JSON文件，写入采用临时文件+重命名保证原子性
type FileStore struct {
	dataDir string
}

// NewFileStore 创建文件存储，数据目录不存在时自动创建
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Load 读取指定名称的数据并反序列化到v
// 文件不存在不算错误，返回 found=false 由调用方初始化空状态
func (s *FileStore) Load(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &PersistenceError{Name: name, Err: err}
	}

	if err := json.Unmarshal(data, v); err != nil {
		// 启动时解析失败说明持久化状态已损坏，由调用方决定是否致命
		return false, &PersistenceError{Name: name, Err: fmt.Errorf("解析JSON失败: %w", err)}
	}

	return true, nil
}

// Save 序列化v并原子写入指定名称的文件
func (s *FileStore) Save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Name: name, Err: err}
	}

	target := s.path(name)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &PersistenceError{Name: name, Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Name: name, Err: err}
	}

	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dataDir, name+".json")
}
