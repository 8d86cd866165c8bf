// Package cdp captures network traffic from Chromium tabs over the Chrome
// DevTools Protocol and delivers it as capture.Source events.
package cdp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/netpanel/internal/capture"
	"github.com/dgnsrekt/netpanel/internal/types"
)

// Options configures a Client.
type Options struct {
	CDPURL       string
	TabURLFilter string
}

// Client manages CDP connections to browser tabs and implements
// capture.Source.
type Client struct {
	opts        Options
	tabRegistry *TabRegistry
	tracker     *tracker
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*TabContext
	tabsMu      sync.RWMutex
	connected   atomic.Bool

	subsMu  sync.RWMutex
	subs    map[int64]func(capture.Finished)
	nextSub int64

	done      chan struct{}
	closeOnce sync.Once
}

type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

var _ capture.Source = (*Client)(nil)

func NewClient(opts Options, tabRegistry *TabRegistry) *Client {
	if tabRegistry == nil {
		tabRegistry = NewTabRegistry()
	}
	return &Client{
		opts:        opts,
		tabRegistry: tabRegistry,
		tracker:     newTracker(),
		tabs:        make(map[target.ID]*TabContext),
		subs:        make(map[int64]func(capture.Finished)),
		done:        make(chan struct{}),
	}
}

// Connect attaches to every page tab matching the URL filter. Failures wrap
// capture.ErrSourceUnavailable.
func (c *Client) Connect(ctx context.Context) error {
	slog.Info("Connecting to Chromium", "url", c.opts.CDPURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.opts.CDPURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()
	stop := context.AfterFunc(ctx, tempCancel)
	defer stop()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("%w: connect to browser: %w", capture.ErrSourceUnavailable, err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("%w: enumerate targets: %w", capture.ErrSourceUnavailable, err)
	}
	slog.Info("Found browser targets", "count", len(targets))

	attached := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL, t.Title); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attached++
	}
	if attached == 0 {
		return fmt.Errorf("%w: no tabs match NETPANEL_TAB_URL_FILTER=%q", capture.ErrSourceUnavailable, c.opts.TabURLFilter)
	}

	c.connected.Store(true)
	go c.cleanupLoop()
	slog.Info("Attached to tabs", "count", attached, "tab_url_filter", c.opts.TabURLFilter)
	return nil
}

// Subscribe registers fn for finished requests from every attached tab.
func (c *Client) Subscribe(fn func(capture.Finished)) (func(), error) {
	if !c.connected.Load() {
		return nil, fmt.Errorf("%w: not connected to %s", capture.ErrSourceUnavailable, c.opts.CDPURL)
	}
	c.subsMu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}, nil
}

func (c *Client) emit(f capture.Finished) {
	c.subsMu.RLock()
	subs := make([]func(capture.Finished), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subsMu.RUnlock()
	for _, fn := range subs {
		fn(f)
	}
}

func (c *Client) attachToTab(targetID target.ID, url, title string) error {
	info := c.tabRegistry.Register(targetID, url, title)

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	if err := chromedp.Run(tabCtx, network.Enable(), page.Enable()); err != nil {
		tabCancel()
		c.tabsMu.Lock()
		delete(c.tabs, targetID)
		c.tabsMu.Unlock()
		c.tabRegistry.Remove(targetID)
		return fmt.Errorf("enable network/page domains: %w", err)
	}

	slog.Info("Attached to tab", "target_id", targetID, "short_id", info.ShortID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(tab))
	return nil
}

func (c *Client) createEventHandler(tab *TabContext) func(ev interface{}) {
	tabID := string(tab.ID)
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				c.tabRegistry.Register(tab.ID, e.Frame.URL, "")
				slog.Debug("Tab navigated", "tab_id", tabID, "url", truncateURL(e.Frame.URL))
			}
		case *page.EventNavigatedWithinDocument:
			c.tabRegistry.Register(tab.ID, e.URL, "")
		case *network.EventRequestWillBeSent:
			if f, ok := c.tracker.requestWillBeSent(tabID, e); ok {
				c.emit(f)
			}
		case *network.EventResponseReceived:
			c.tracker.responseReceived(e)
		case *network.EventDataReceived:
			c.tracker.dataReceived(e)
		case *network.EventLoadingFinished:
			f, ok := c.tracker.loadingFinished(e)
			if !ok {
				return
			}
			// Subscribers run GetContent on their own goroutine; calling it
			// from a ListenTarget handler would deadlock.
			f.GetContent = responseBodyFetcher(tab.ctx, e.RequestID)
			c.emit(f)
		case *network.EventLoadingFailed:
			c.tracker.loadingFailed(e)
		}
	}
}

// responseBodyFetcher returns the GetContent callback for one request. The
// call is bound to both the tab and the caller's context.
func responseBodyFetcher(tabCtx context.Context, id network.RequestID) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		bodyCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		var body []byte
		err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(id).Do(ctx)
			return err
		}))
		if err != nil {
			return "", err
		}
		return bodyText(body), nil
	}
}

// bodyText returns body as text, base64-encoding payloads that are not UTF-8.
func bodyText(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return base64.StdEncoding.EncodeToString(body)
}

func (c *Client) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.tracker.cleanupStale(); n > 0 {
				slog.Debug("Dropped stale pending requests", "count", n)
			}
		case <-c.done:
			return
		}
	}
}

// Connected reports whether at least one tab is attached.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Tabs lists the attached tabs.
func (c *Client) Tabs() []types.TabInfo {
	return c.tabRegistry.List()
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.connected.Store(false)

		c.tabsMu.Lock()
		c.tabs = make(map[target.ID]*TabContext)
		c.tabsMu.Unlock()

		if c.allocCancel != nil {
			c.allocCancel()
		}
		slog.Info("CDP client closed")
	})
	return nil
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) matchesTabURL(url string) bool {
	if c.opts.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.opts.TabURLFilter))
}
