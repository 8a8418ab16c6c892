package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"levelgen/internal/level"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	diskHeaderSize = 9
)

type diskRecordMeta struct {
	offset  int64
	keySize uint32
	size    uint32
}

// DiskStore is an append-only checksum log. Every save or delete appends a
// record; the latest record for a key wins when the log is reopened.
//
// Record layout: op byte, uint32 key size, uint32 payload size (both little
// endian), the gob encoded Key and the gob encoded checksums.
type DiskStore struct {
	file    *os.File
	mu      sync.RWMutex
	records map[Key]diskRecordMeta
}

// OpenDiskStore opens or creates the ledger file at path.
func OpenDiskStore(path string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	s := &DiskStore{
		file:    f,
		records: make(map[Key]diskRecordMeta),
	}
	if err := s.loadIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) loadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind ledger file: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("truncated ledger header at %d: %w", offset, err)
			}
			return fmt.Errorf("read ledger header: %w", err)
		}
		op := header[0]
		keySize := binary.LittleEndian.Uint32(header[1:5])
		size := binary.LittleEndian.Uint32(header[5:9])

		keyData := make([]byte, keySize)
		if _, err := io.ReadFull(s.file, keyData); err != nil {
			return fmt.Errorf("read ledger key at %d: %w", offset, err)
		}
		key, err := decodeKey(keyData)
		if err != nil {
			return fmt.Errorf("decode ledger key at %d: %w", offset, err)
		}
		if _, err := s.file.Seek(int64(size), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload: %w", err)
		}

		if op == diskOpSet {
			s.records[key] = diskRecordMeta{offset: offset, keySize: keySize, size: size}
		} else {
			delete(s.records, key)
		}
		offset += diskHeaderSize + int64(keySize) + int64(size)
	}
	return nil
}

func (s *DiskStore) Load(key Key) (level.Checksums, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.records == nil {
		return nil, false, ErrClosed
	}
	meta, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}

	payload := make([]byte, meta.size)
	if _, err := s.file.ReadAt(payload, meta.offset+diskHeaderSize+int64(meta.keySize)); err != nil {
		return nil, false, fmt.Errorf("read payload at %d: %w", meta.offset, err)
	}
	var sums level.Checksums
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&sums); err != nil {
		return nil, false, fmt.Errorf("decode checksums: %w", err)
	}
	return sums, true, nil
}

func (s *DiskStore) Save(key Key, sums level.Checksums) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(sums); err != nil {
		return fmt.Errorf("encode checksums: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	offset, keySize, err := s.append(diskOpSet, key, payload.Bytes())
	if err != nil {
		return err
	}
	s.records[key] = diskRecordMeta{offset: offset, keySize: keySize, size: uint32(payload.Len())}
	return nil
}

func (s *DiskStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.append(diskOpDelete, key, nil); err != nil {
		return err
	}
	delete(s.records, key)
	return nil
}

// append writes one record at the end of the log. Callers hold s.mu.
func (s *DiskStore) append(op byte, key Key, payload []byte) (int64, uint32, error) {
	if s.records == nil {
		return 0, 0, ErrClosed
	}
	keyData, err := encodeKey(key)
	if err != nil {
		return 0, 0, err
	}

	header := make([]byte, diskHeaderSize)
	header[0] = op
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(keyData)))
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(payload)))

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("seek ledger end: %w", err)
	}
	record := make([]byte, 0, len(header)+len(keyData)+len(payload))
	record = append(append(append(record, header...), keyData...), payload...)
	if _, err := s.file.Write(record); err != nil {
		return 0, 0, fmt.Errorf("write ledger record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return 0, 0, fmt.Errorf("sync ledger file: %w", err)
	}
	return offset, uint32(len(keyData)), nil
}

// ForEach visits the recorded keys ordered by seed. Records that fail to
// decode are logged and skipped.
func (s *DiskStore) ForEach(fn func(key Key, sums level.Checksums) bool) error {
	s.mu.RLock()
	if s.records == nil {
		s.mu.RUnlock()
		return ErrClosed
	}
	keys := make([]Key, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		sums, ok, err := s.Load(key)
		if err != nil {
			log.Printf("ledger load %s: %v", key, err)
			continue
		}
		if !ok {
			continue
		}
		if !fn(key, sums) {
			break
		}
	}
	return nil
}

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		return nil
	}
	s.records = nil
	return s.file.Close()
}

func encodeKey(key Key) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(key); err != nil {
		return nil, fmt.Errorf("encode ledger key: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeKey(data []byte) (Key, error) {
	var key Key
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&key)
	return key, err
}
