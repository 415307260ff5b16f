package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	logx "palwatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.keywords.json (subscriber id -> keyword list)
//   - <prefix>.channels.json (subscriber id -> preferred chat id)
//
// Subscriber IDs are serialized as string map keys; JSON objects only allow
// string keys and this keeps the files readable and diffable. Saves go
// through a temp file and rename so a crash never leaves a torn file.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	keywordsPath string
	channelsPath string
}

func openFile(cfg Config, log logx.Logger) (Backend, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "./palwatch_store"
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		keywordsPath: prefix + ".keywords.json",
		channelsPath: prefix + ".channels.json",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) LoadKeywords(ctx context.Context) (map[int64][]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw map[string][]string
	if err := readJSONFile(s.keywordsPath, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64][]string, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			// Skip unparseable keys rather than failing the whole load;
			// one hand-edited entry should not take the bot down.
			s.log.Warn("skipping bad subscriber key", logx.String("key", k), logx.String("file", s.keywordsPath))
			continue
		}
		out[id] = v
	}
	return out, nil
}

func (s *fileStore) SaveKeywords(ctx context.Context, m map[int64][]string) error {
	_ = ctx
	raw := make(map[string][]string, len(m))
	for id, kws := range m {
		raw[strconv.FormatInt(id, 10)] = kws
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFile(s.keywordsPath, raw)
}

func (s *fileStore) LoadChannels(ctx context.Context) (map[int64]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw map[string]int64
	if err := readJSONFile(s.channelsPath, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			s.log.Warn("skipping bad subscriber key", logx.String("key", k), logx.String("file", s.channelsPath))
			continue
		}
		out[id] = v
	}
	return out, nil
}

func (s *fileStore) SaveChannels(ctx context.Context, m map[int64]int64) error {
	_ = ctx
	raw := make(map[string]int64, len(m))
	for id, ch := range m {
		raw[strconv.FormatInt(id, 10)] = ch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFile(s.channelsPath, raw)
}

// readJSONFile decodes path into out. A missing file is not an error;
// out is left empty.
func readJSONFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// writeJSONFile writes v to path atomically (temp file + rename).
func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
