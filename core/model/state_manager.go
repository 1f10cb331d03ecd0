// Package model provides fitted-state bookkeeping shared by estimators.
package model

import (
	"sync"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// StateManager はモデルの学習状態をスレッドセーフに管理する。
// 推論時に複数のリクエストから同時に参照されるため、読み取りはRLockで行う。
type StateManager struct {
	Fitted bool // gobで保存するため公開
	mu     sync.RWMutex

	// 学習時のメタデータ（gobで保存するため公開）
	NFeatures int
	NSamples  int

	modelName string
}

// NewStateManager は指定したモデル名でStateManagerを作成する。
// モデル名はNotFittedErrorのメッセージに使われる。
func NewStateManager(modelName string) *StateManager {
	return &StateManager{modelName: modelName}
}

// IsFitted はモデルが学習済みかどうかを返す
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset は学習状態を初期化する
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions は学習時の特徴量数とサンプル数を記録する
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions は学習時の特徴量数とサンプル数を返す
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted はモデルが未学習ならNotFittedErrorを返す
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.modelName, method)
	}
	return nil
}
