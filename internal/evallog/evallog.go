// Package evallog persists evaluation records as a JSON log keyed by query,
// with CSV export derived from the persisted records.
package evallog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// Record is one evaluation result. The "query" key is mandatory; values may
// be scalars or nested sub-score maps.
type Record map[string]any

// Query returns the record's query key, or "" when absent or not a string.
func (r Record) Query() string {
	q, _ := r["query"].(string)
	return q
}

// Logger appends records to a JSON file, merging by query. The persisted
// order is the insertion order of each query's first appearance. A corrupted
// log file is treated as empty; the decode error is kept and reported by
// LoadError, never returned from Log.
type Logger struct {
	mu      sync.Mutex
	path    string
	records []Record
	index   map[string]int
	loaded  bool
	loadErr error
}

// New creates a Logger backed by the JSON file at path. The file is read
// lazily on first use.
func New(path string) *Logger {
	return &Logger{path: path, index: make(map[string]int)}
}

// Path returns the log file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log merges rec into the log and rewrites the file. Fields already present
// for the same query are replaced by rec's values; the rest are unioned.
func (l *Logger) Log(rec Record) error {
	if l == nil {
		return errors.New("evallog: nil logger")
	}
	if rec == nil {
		return errors.New("evallog: nil record")
	}
	q := rec.Query()
	if q == "" {
		return errors.New("evallog: record missing query")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return err
	}

	if i, ok := l.index[q]; ok {
		for k, v := range rec {
			l.records[i][k] = v
		}
	} else {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		l.index[q] = len(l.records)
		l.records = append(l.records, cp)
	}

	return l.flush()
}

// Records returns the persisted records in insertion order.
func (l *Logger) Records() ([]Record, error) {
	if l == nil {
		return nil, errors.New("evallog: nil logger")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(); err != nil {
		return nil, err
	}
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out, nil
}

// Last returns the most recently appended record, or false when the log is
// empty.
func (l *Logger) Last() (Record, bool) {
	if l == nil {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(); err != nil || len(l.records) == 0 {
		return nil, false
	}
	return l.records[len(l.records)-1], true
}

// LoadError reports the decode error from a corrupted log file, if any. The
// logger keeps working after corruption; the damaged content is discarded on
// the next write.
func (l *Logger) LoadError() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.load()
	return l.loadErr
}

func (l *Logger) load() error {
	if l.loaded {
		return nil
	}
	l.loaded = true

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		l.loaded = false
		return fmt.Errorf("evallog: read %s: %w", l.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		l.loadErr = fmt.Errorf("evallog: corrupted log %s: %w", l.path, err)
		return nil
	}
	for _, rec := range records {
		if q := rec.Query(); q != "" {
			if _, ok := l.index[q]; ok {
				continue
			}
			l.index[q] = len(l.records)
		}
		l.records = append(l.records, rec)
	}
	return nil
}

func (l *Logger) flush() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("evallog: encode: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("evallog: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("evallog: write %s: %w", l.path, err)
	}
	return nil
}

// ExportCSV writes the log as CSV. Nested sub-score maps are flattened into
// dotted headers ("context_precision.cosine_score"). Columns are the union
// of keys across all records: query first, the rest sorted.
func (l *Logger) ExportCSV(w io.Writer) error {
	if l == nil {
		return errors.New("evallog: nil logger")
	}
	if w == nil {
		return errors.New("evallog: nil writer")
	}
	records, err := l.Records()
	if err != nil {
		return err
	}

	flat := make([]map[string]string, len(records))
	seen := make(map[string]bool)
	for i, rec := range records {
		flat[i] = flatten(rec)
		for k := range flat[i] {
			seen[k] = true
		}
	}

	headers := make([]string, 0, len(seen))
	for k := range seen {
		if k != "query" {
			headers = append(headers, k)
		}
	}
	sort.Strings(headers)
	headers = append([]string{"query"}, headers...)

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("evallog: write csv: %w", err)
	}
	row := make([]string, len(headers))
	for _, f := range flat {
		for i, h := range headers {
			row[i] = f[h]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("evallog: write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("evallog: write csv: %w", err)
	}
	return nil
}

func flatten(rec Record) map[string]string {
	out := make(map[string]string, len(rec))
	flattenInto(out, "", map[string]any(rec))
	return out
}

func flattenInto(out map[string]string, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val)
		default:
			out[key] = formatValue(val)
		}
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
