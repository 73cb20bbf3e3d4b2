package rules

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Provider supplies the current rule set to the engine. The set is
// replaced wholesale on reload and never mutated in place, so an
// evaluation pass holding a snapshot is unaffected by a concurrent
// reload.
type Provider struct {
	mu    sync.RWMutex
	rules []*Rule

	// path is the rules file for Reload/Watch; empty for static providers.
	path string
}

// NewProvider creates a provider over a static, already-validated rule set.
func NewProvider(rules []*Rule) *Provider {
	return &Provider{rules: rules}
}

// NewFileProvider loads rules from a YAML file and remembers the path
// for later reloads.
func NewFileProvider(path string) (*Provider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	rules, err := LoadFromFile(absPath)
	if err != nil {
		return nil, err
	}

	return &Provider{rules: rules, path: absPath}, nil
}

// Rules returns a snapshot of the current rule set.
func (p *Provider) Rules() []*Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*Rule, len(p.rules))
	copy(result, p.rules)
	return result
}

// Replace swaps in a new rule set after validating it.
func (p *Provider) Replace(rules []*Rule) error {
	if err := validateAll(rules); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = rules
	return nil
}

// Reload re-reads the rules file. On failure the current set is kept.
func (p *Provider) Reload() error {
	if p.path == "" {
		return fmt.Errorf("provider has no rules file")
	}

	rules, err := LoadFromFile(p.path)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = rules
	return nil
}

// debounceWindow coalesces bursts of fsnotify events for the same save.
const debounceWindow = 200 * time.Millisecond

// Watch reloads the rule set whenever the rules file changes. It blocks
// until ctx is cancelled. An invalid file is logged and the previous
// set stays active.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return fmt.Errorf("provider has no rules file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file so atomic saves
	// (rename-over) keep being observed.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
				debounceC = debounce.C
			} else {
				debounce.Reset(debounceWindow)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			if err := p.Reload(); err != nil {
				log.Printf("rules: reload failed, keeping previous set: %v", err)
				continue
			}
			log.Printf("rules: reloaded %d rules from %s", len(p.Rules()), p.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("rules: watcher error: %v", err)
		}
	}
}

// Path returns the rules file path, if any.
func (p *Provider) Path() string {
	return p.path
}
