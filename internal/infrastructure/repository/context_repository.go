// Package repository manages the esque context configuration file and the
// lifecycle of one cluster client per context, with hot reload on file
// changes.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
	"github.com/Temikus/esque/internal/utils"
	"github.com/fsnotify/fsnotify"
)

// ContextRepository holds the known cluster contexts and their clients.
type ContextRepository struct {
	mu         sync.RWMutex
	clients    map[string]domain.ClusterClient
	configData config.FileConfig
	// previous is the last reconciled config, used to detect per-context
	// changes that require a client rebuild.
	previous   config.FileConfig
	configPath string
	watcher    *fsnotify.Watcher
	factory    domain.ClientFactory
}

// NewContextRepository creates a repository backed by the given config file.
func NewContextRepository(configPath string, factory domain.ClientFactory) *ContextRepository {
	return &ContextRepository{
		clients:    make(map[string]domain.ClusterClient),
		configPath: configPath,
		factory:    factory,
	}
}

// LoadFromFile loads the configuration and reconciles clients with it.
func (r *ContextRepository) LoadFromFile() error {
	cfg, err := config.ReadConfig(r.configPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.configData = cfg
	r.mu.Unlock()

	return r.reconcile(cfg)
}

// Save persists a context configuration and (re)creates its client.
func (r *ContextRepository) Save(cfg config.ContextConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, err := r.factory.CreateClient(cfg)
	if err != nil {
		return err
	}

	if old, ok := r.clients[cfg.Name]; ok {
		old.Close()
	}
	r.clients[cfg.Name] = client

	found := false
	for i := range r.configData.Contexts {
		if r.configData.Contexts[i].Name == cfg.Name {
			r.configData.Contexts[i] = cfg
			found = true
			break
		}
	}
	if !found {
		r.configData.Contexts = append(r.configData.Contexts, cfg)
	}

	return r.writeToFile()
}

// Delete removes a context and closes its client.
func (r *ContextRepository) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[name]
	if !ok {
		return fmt.Errorf("context %q not found", name)
	}

	client.Close()
	delete(r.clients, name)

	idx := -1
	for i := range r.configData.Contexts {
		if r.configData.Contexts[i].Name == name {
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.configData.Contexts = append(r.configData.Contexts[:idx], r.configData.Contexts[idx+1:]...)
	}
	if r.configData.CurrentContext == name {
		r.configData.CurrentContext = ""
	}

	return r.writeToFile()
}

// FindByName retrieves a context configuration by name.
func (r *ContextRepository) FindByName(name string) (config.ContextConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configData.Context(name)
}

// FindAll retrieves all context configurations.
func (r *ContextRepository) FindAll() []config.ContextConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]config.ContextConfig, len(r.configData.Contexts))
	copy(out, r.configData.Contexts)
	return out
}

// CurrentContext returns the currently selected context configuration.
func (r *ContextRepository) CurrentContext() (config.ContextConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configData.Context(r.configData.CurrentContext)
}

// SwitchContext selects another context and persists the selection.
func (r *ContextRepository) SwitchContext(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configData.Context(name); !ok {
		return fmt.Errorf("context %q not defined in %s", name, r.configPath)
	}
	r.configData.CurrentContext = name
	return r.writeToFile()
}

// GetClient returns the cluster client for the given context name.
func (r *ContextRepository) GetClient(name string) (domain.ClusterClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	return client, ok
}

// Watch sets a fsnotify watcher on the config file for hot reload.
func (r *ContextRepository) Watch() error {
	abs, err := filepath.Abs(r.configPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	r.watcher = w

	const debounceDelay = 350 * time.Millisecond

	go func() {
		reload := func() {
			for i := 0; i < 10; i++ {
				if _, err := os.Stat(abs); err == nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}

			utils.Logger.Info("config file changed", "path", abs)
			if err := r.LoadFromFile(); err != nil {
				utils.Logger.Error("failed to reload config", "err", err)
			}
		}

		var timer *time.Timer
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					if timer == nil {
						timer = time.AfterFunc(debounceDelay, reload)
					} else {
						if !timer.Stop() {
							select {
							case <-timer.C:
							default:
							}
						}
						timer.Reset(debounceDelay)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				utils.Logger.Error("fsnotify error", "err", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher and closes every client.
func (r *ContextRepository) Close() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.clients {
		client.Close()
		delete(r.clients, name)
	}
}

// reconcile synchronizes clients with the loaded configuration: new
// contexts get a client, changed contexts get a fresh one, removed contexts
// lose theirs.
func (r *ContextRepository) reconcile(cfg config.FileConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[string]config.ContextConfig)
	for _, c := range cfg.Contexts {
		existing[c.Name] = c

		prev, had := r.previous.Context(c.Name)
		if cur, ok := r.clients[c.Name]; ok {
			if had && reflect.DeepEqual(prev, c) {
				continue
			}
			cur.Close()
			delete(r.clients, c.Name)
		}
		client, err := r.factory.CreateClient(c)
		if err != nil {
			utils.Logger.Error("failed to create client", "context", c.Name, "err", err)
			continue
		}
		r.clients[c.Name] = client
	}

	for name, client := range r.clients {
		if _, ok := existing[name]; !ok {
			client.Close()
			delete(r.clients, name)
		}
	}

	r.previous = cfg
	return nil
}

// writeToFile persists the current in-memory config.
func (r *ContextRepository) writeToFile() error {
	_ = os.MkdirAll(filepath.Dir(r.configPath), 0755)
	return config.WriteConfig(r.configPath, r.configData)
}
