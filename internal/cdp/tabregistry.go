package cdp

import (
	"sort"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/netpanel/internal/storage"
	"github.com/dgnsrekt/netpanel/internal/types"
)

// TabRegistry maps CDP target IDs to tab metadata.
type TabRegistry struct {
	tabs map[target.ID]*types.TabInfo
	mu   sync.RWMutex
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{tabs: make(map[target.ID]*types.TabInfo)}
}

// Register records or updates a tab. An empty title keeps the previous one.
func (r *TabRegistry) Register(targetID target.ID, url, title string) *types.TabInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if title == "" {
		if prev, ok := r.tabs[targetID]; ok {
			title = prev.Title
		}
	}
	info := &types.TabInfo{
		TargetID: string(targetID),
		URL:      url,
		Title:    title,
		ShortID:  storage.ShortID(string(targetID)),
	}
	r.tabs[targetID] = info
	return info
}

func (r *TabRegistry) Get(targetID target.ID) (*types.TabInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tabs[targetID]
	return info, ok
}

func (r *TabRegistry) Remove(targetID target.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, targetID)
}

func (r *TabRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// List returns copies of all tabs ordered by target ID.
func (r *TabRegistry) List() []types.TabInfo {
	r.mu.RLock()
	out := make([]types.TabInfo, 0, len(r.tabs))
	for _, info := range r.tabs {
		out = append(out, *info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}
