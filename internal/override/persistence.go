package override

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bizday/internal/config"
	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// Persistence loads override records from durable storage.
type Persistence interface {
	// Load returns every stored record keyed by calendar identifier.
	Load(ctx context.Context) (map[string]model.Override, error)
	// EnsureDefault writes the sample records when nothing is stored yet.
	// It is idempotent.
	EnsureDefault(ctx context.Context) error
}

// Writer edits single records in place.
type Writer interface {
	Put(ctx context.Context, id string, o model.Override) error
	Delete(ctx context.Context, id string) error
}

func ptr[T any](v T) *T { return &v }

// SampleRules returns the records seeded into a fresh store.
func SampleRules() map[string]model.Override {
	satSun := []model.Weekday{model.Saturday, model.Sunday}
	return map[string]model.Override{
		"IN-KA": {
			DisplayName: ptr("India - Karnataka (Custom Week)"),
			WeekendDays: ptr(satSun),
		},
		"IN-AP": {
			DisplayName: ptr("India - Andhra Pradesh (Custom Week)"),
			WeekendDays: ptr(satSun),
		},
		"CN": {
			DisplayName: ptr("China (National)"),
			Holidays:    ptr([]string{}),
			MakeupDays: ptr([]string{
				"2024-02-04", "2024-02-18", "2024-04-28",
				"2024-05-11", "2024-09-29", "2024-10-12",
				"2025-01-26", "2025-02-08",
			}),
		},
		"X-CORP": {
			DisplayName: ptr("INTERNAL - My Company Calendar"),
			WeekendDays: ptr(satSun),
			Holidays:    ptr([]string{"2024-12-24", "2024-12-31", "2025-12-24", "2025-12-31"}),
			MakeupDays:  ptr([]string{}),
		},
	}
}

// FilePersistence stores records in a single JSON or YAML document keyed by
// calendar identifier. The format follows the file extension; anything but
// .yaml/.yml is JSON.
type FilePersistence struct {
	path string
}

// NewFilePersistence creates a file-backed persistence for path.
func NewFilePersistence(path string) *FilePersistence {
	return &FilePersistence{path: path}
}

func (f *FilePersistence) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the rules file. A missing file yields no records.
func (f *FilePersistence) Load(ctx context.Context) (map[string]model.Override, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("override file not found; no custom calendars", "path", f.path)
			return map[string]model.Override{}, nil
		}
		return nil, err
	}

	records := map[string]model.Override{}
	if f.isYAML() {
		err = yaml.Unmarshal(data, &records)
	} else {
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if records == nil {
		// An empty YAML document decodes to nil.
		records = map[string]model.Override{}
	}
	return records, nil
}

// EnsureDefault writes SampleRules when the file does not exist yet.
func (f *FilePersistence) EnsureDefault(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(f.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := f.write(SampleRules()); err != nil {
		return err
	}
	appLog.Info("created sample override file", "path", f.path)
	return nil
}

// Put adds or replaces the record stored under id.
func (f *FilePersistence) Put(ctx context.Context, id string, o model.Override) error {
	records, err := f.Load(ctx)
	if err != nil {
		return err
	}
	records[id] = o
	return f.write(records)
}

// Delete removes the record stored under id, if any.
func (f *FilePersistence) Delete(ctx context.Context, id string) error {
	records, err := f.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return nil
	}
	delete(records, id)
	return f.write(records)
}

func (f *FilePersistence) write(records map[string]model.Override) error {
	var (
		data []byte
		err  error
	)
	if f.isYAML() {
		data, err = yaml.Marshal(records)
	} else {
		data, err = json.MarshalIndent(records, "", "  ")
	}
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(f.path, data, 0o644)
}
