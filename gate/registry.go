// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blinklabs-io/treasury/fund"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk registry layout
type registryFile struct {
	Agents map[string]Agent `yaml:"agents"`
}

// Registry is a file-backed gate. Accounts missing from the file are
// unregistered and have no reputation
type Registry struct {
	mu      sync.RWMutex
	path    string
	agents  map[fund.Account]Agent
	logger  *slog.Logger
	metrics *gateMetrics
	watcher *fsnotify.Watcher
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

type RegistryOptionFunc func(*Registry)

// WithRegistryLogger specifies the logger object to use for logging messages
func WithRegistryLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryPromRegistry specifies the prometheus registry to use for metrics
func WithRegistryPromRegistry(
	promRegistry prometheus.Registerer,
) RegistryOptionFunc {
	return func(r *Registry) {
		r.metrics = newGateMetrics(promRegistry, "registry")
	}
}

// NewRegistry loads the registry file at path. SOPS-encrypted files are
// decrypted transparently
func NewRegistry(path string, opts ...RegistryOptionFunc) (*Registry, error) {
	r := &Registry{
		path: path,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "gate")
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file. On error the previous contents stay in
// effect
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}
	if isEncrypted(data) {
		data, err = DecryptRegistry(data)
		if err != nil {
			return fmt.Errorf("decrypt registry: %w", err)
		}
	}
	var tmpFile registryFile
	if err := yaml.Unmarshal(data, &tmpFile); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}
	agents := make(map[fund.Account]Agent, len(tmpFile.Agents))
	for account, agent := range tmpFile.Agents {
		if agent.Name == "" {
			return fmt.Errorf("parse registry: agent %s has no name", account)
		}
		agents[fund.Account(account)] = agent
	}
	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
	r.logger.Info(
		fmt.Sprintf("loaded %d agents from registry", len(agents)),
		"path", r.path,
	)
	return nil
}

// AgentName returns the registered name of the account, or an empty string
func (r *Registry) AgentName(
	_ context.Context,
	account fund.Account,
) (string, error) {
	r.mu.RLock()
	agent, ok := r.agents[account]
	r.mu.RUnlock()
	r.metrics.observe("identity", lookupResult(ok))
	return agent.Name, nil
}

// LifetimeInfo returns the reputation record of the account. Unknown
// accounts get a zero record
func (r *Registry) LifetimeInfo(
	_ context.Context,
	account fund.Account,
) (fund.LifetimeInfo, error) {
	r.mu.RLock()
	agent, ok := r.agents[account]
	r.mu.RUnlock()
	r.metrics.observe("reputation", lookupResult(ok))
	return agent.LifetimeInfo(), nil
}

// Len returns the number of registered agents
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Watch reloads the registry whenever its file changes, until Close is
// called. The parent directory is watched so that editors which replace the
// file are picked up
func (r *Registry) Watch() error {
	if r.watcher != nil {
		return errors.New("registry is already being watched")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	r.watcher = watcher
	r.doneCh = make(chan struct{})
	r.wg.Add(1)
	go r.watchLoop()
	return nil
}

func (r *Registry) watchLoop() {
	defer r.wg.Done()
	target := filepath.Clean(r.path)
	for {
		select {
		case evt, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn(
					"failed to reload registry",
					"path", r.path,
					"error", err,
				)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("registry watch error", "error", err)
		case <-r.doneCh:
			return
		}
	}
}

// Close stops watching the registry file
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.doneCh)
	r.wg.Wait()
	err := r.watcher.Close()
	r.watcher = nil
	return err
}

func lookupResult(found bool) string {
	if found {
		return resultHit
	}
	return resultMiss
}
