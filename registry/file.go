package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileRegistry loads component configs from a YAML file and can watch it
// for changes. A failed reload keeps the last good config set.
type FileRegistry struct {
	*Static
	path   string
	logger zerolog.Logger
}

// registryFile is the on-disk YAML shape.
type registryFile struct {
	Components []Config `yaml:"components"`
}

// NewFileRegistry reads the file at path and returns a registry backed by it.
func NewFileRegistry(path string, logger zerolog.Logger) (*FileRegistry, error) {
	r := &FileRegistry{
		Static: NewStatic(),
		path:   path,
		logger: logger,
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRegistry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read registry file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse registry file %s: %w", r.path, err)
	}
	configs := make(map[string]Config, len(f.Components))
	for _, c := range f.Components {
		if c.Type == "" {
			return fmt.Errorf("registry file %s: component with empty type", r.path)
		}
		configs[c.Type] = c
	}
	r.replace(configs)
	return nil
}

// Watch reloads the registry whenever the file changes, until ctx is done.
// Parse errors are logged and the previous config set stays in effect.
func (r *FileRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				if err := r.reload(); err != nil {
					r.logger.Warn().Err(err).Str("path", r.path).Msg("registry reload failed, keeping previous configs")
					continue
				}
				r.logger.Info().Str("path", r.path).Msg("component registry reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn().Err(err).Msg("registry watcher error")
			}
		}
	}()
	return nil
}
