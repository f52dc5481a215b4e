package api

import "sync"

// UIState holds shell-level UI settings shared by all pages.
type UIState struct {
	mu               sync.RWMutex
	sidebarCollapsed bool
}

func NewUIState() *UIState {
	return &UIState{}
}

func (u *UIState) SidebarCollapsed() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.sidebarCollapsed
}

func (u *UIState) SetSidebarCollapsed(v bool) {
	u.mu.Lock()
	u.sidebarCollapsed = v
	u.mu.Unlock()
}
