package util

import (
	"sync"
	"time"
)

// DefaultPageTTL is how long an untouched list position is kept.
const DefaultPageTTL = time.Hour

type pageState struct {
	page    int
	touched time.Time
}

// Pages keeps the list page each chat is looking at. Positions idle for
// longer than the ttl are forgotten.
type Pages struct {
	mu        sync.Mutex
	pages     map[int64]pageState
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewPages() *Pages {
	return NewPagesWithTTL(DefaultPageTTL, time.Now)
}

func NewPagesWithTTL(ttl time.Duration, now func() time.Time) *Pages {
	if now == nil {
		now = time.Now
	}
	return &Pages{pages: make(map[int64]pageState), ttl: ttl, now: now}
}

// lookup returns the live page for chatId and evicts stale entries at most
// once per ttl. Callers hold mu.
func (p *Pages) lookup(chatId int64, now time.Time) int {
	if p.ttl > 0 && now.Sub(p.lastSweep) >= p.ttl {
		for id, st := range p.pages {
			if now.Sub(st.touched) >= p.ttl {
				delete(p.pages, id)
			}
		}
		p.lastSweep = now
	}
	st, ok := p.pages[chatId]
	if !ok || (p.ttl > 0 && now.Sub(st.touched) >= p.ttl) {
		return 0
	}
	return st.page
}

func (p *Pages) Current(chatId int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookup(chatId, p.now())
}

// Next moves forward unless the chat is already on the last page.
func (p *Pages) Next(chatId int64, totalPages int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	page := p.lookup(chatId, now)
	if page+1 < totalPages {
		page++
	}
	p.pages[chatId] = pageState{page: page, touched: now}
	return page
}

func (p *Pages) Back(chatId int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	page := p.lookup(chatId, now)
	if page > 0 {
		page--
	}
	p.pages[chatId] = pageState{page: page, touched: now}
	return page
}

func (p *Pages) Reset(chatId int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pages, chatId)
}

// Len is the number of chats with a remembered position.
func (p *Pages) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// TotalPages is the number of pages needed for count items.
func TotalPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	return (count + perPage - 1) / perPage
}
