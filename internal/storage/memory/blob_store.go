package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// blobStoreInMemory хранит загруженные файлы в памяти; продакшен использует
// внешнее blob-хранилище с тем же контрактом.
type blobStoreInMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore возвращает in-memory blob-хранилище для локальной разработки и тестов.
func NewBlobStore() *blobStoreInMemory {
	return &blobStoreInMemory{blobs: make(map[string][]byte)}
}

// Put сохраняет файл и возвращает непрозрачную ссылку на него.
func (s *blobStoreInMemory) Put(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := fmt.Sprintf("blob://%s/%s", uuid.NewString(), name)
	s.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

// Get возвращает содержимое файла по ссылке (используется в тестах).
func (s *blobStoreInMemory) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[ref]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

var _ domain.BlobStorage = (*blobStoreInMemory)(nil)
