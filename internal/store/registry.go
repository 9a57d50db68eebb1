// internal/store/registry.go
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps namespaces to their stores. Stores are created lazily on
// first use and reused for the process lifetime; they are closed only on
// shutdown.
type Registry struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry rooted at dataDir
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores:  make(map[string]*Store),
	}
}

// ValidNamespace reports whether ns is usable as a filename segment
func ValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	if strings.ContainsAny(ns, "/\\") || ns == "." || ns == ".." {
		return false
	}
	return true
}

// Get returns the store for a namespace, creating it if needed
func (r *Registry) Get(namespace string) (*Store, error) {
	if !ValidNamespace(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[namespace]; ok {
		return s, nil
	}

	path := filepath.Join(r.dataDir, namespace+".db")
	log.Printf("[STORE] Opening store for namespace %q at %s", namespace, path)
	s, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for namespace %q: %w", namespace, err)
	}
	r.stores[namespace] = s
	return s, nil
}

// Namespaces returns every known namespace: open stores plus database
// files already on disk. A namespace created before a restart is found
// again without waiting for a request to touch it.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.stores))
	for ns := range r.stores {
		seen[ns] = true
	}

	entries, err := os.ReadDir(r.dataDir)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("[STORE] Error scanning data dir %s: %v", r.dataDir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		ns := strings.TrimSuffix(name, ".db")
		if ValidNamespace(ns) {
			seen[ns] = true
		}
	}

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// CloseAll closes every open store. Called once on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ns, s := range r.stores {
		if err := s.Close(); err != nil {
			log.Printf("[STORE] Error closing store for namespace %q: %v", ns, err)
		}
	}
	r.stores = make(map[string]*Store)
}
