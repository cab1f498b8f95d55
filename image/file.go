package image

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/metadata"
)

// Loader loads images and the modules they reference. References are
// looked up as <name>.cwm next to the referring image first and then in the
// search directories. Each referenced module is loaded once.
type Loader struct {
	loaded     map[string]*metadata.Module
	loading    map[string]bool
	searchDirs []string
}

// NewLoader creates a loader with extra directories to search for
// referenced modules.
func NewLoader(searchDirs ...string) *Loader {
	return &Loader{
		loaded:     make(map[string]*metadata.Module),
		loading:    make(map[string]bool),
		searchDirs: searchDirs,
	}
}

// Load reads and decodes the image at path.
func Load(path string, searchDirs ...string) (*metadata.Module, error) {
	return NewLoader(searchDirs...).Load(path)
}

// Load reads and decodes the image at path.
func (l *Loader) Load(path string) (*metadata.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read image "+path, err)
	}

	dirs := append([]string{filepath.Dir(path)}, l.searchDirs...)
	m, err := Unmarshal(data, func(name string) (*metadata.Module, error) {
		return l.resolve(name, dirs)
	})
	if err != nil {
		return nil, err
	}

	Logger().Debug("image loaded",
		zap.String("path", path),
		zap.String("module", m.Name),
		zap.Int("types", len(m.Types)),
		zap.Int("references", len(m.References)))
	return m, nil
}

func (l *Loader) resolve(name string, dirs []string) (*metadata.Module, error) {
	if m, ok := l.loaded[name]; ok {
		return m, nil
	}
	if l.loading[name] {
		return nil, errors.New(errors.PhaseIO, errors.KindInvalidData).
			Detail("module %q references itself", name).Build()
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name+Ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		l.loading[name] = true
		m, err := l.Load(path)
		delete(l.loading, name)
		if err != nil {
			return nil, err
		}
		l.loaded[name] = m
		return m, nil
	}
	return nil, errors.NotFound(errors.PhaseIO, "referenced module", name)
}

// Replace writes m to path. The image is written to a temporary sibling,
// synced and renamed over path, so path holds either the old or the new
// image and is never removed first.
func Replace(path string, m *metadata.Module) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.IO("create temporary image", err)
	}
	tmpName := tmp.Name()
	fail := func(detail string, cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.IO(detail, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write temporary image", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temporary image", err)
	}
	if info, err := os.Stat(path); err == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			return fail("copy image permissions", err)
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.IO("close temporary image", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.IO("replace "+path, err)
	}

	Logger().Info("image written",
		zap.String("path", path),
		zap.String("module", m.Name),
		zap.Int("size", len(data)))
	return nil
}
