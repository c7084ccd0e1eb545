package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/autorun/core"
	"github.com/skekre98/autorun/logging"
	"github.com/skekre98/autorun/web"
)

const modulesName = "modules"

type Item struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int    `json:"price"`
}

// Store is where the modules load their data from.
type Store interface {
	Login(ctx context.Context) (string, error)
	Categories(ctx context.Context) ([]string, error)
	Items(ctx context.Context, token string) ([]Item, error)
}

// Session is a global module: nothing else starts before it logged in.
type Session struct {
	store Store
	mu    sync.RWMutex
	token string
}

func (s *Session) Login(ctx context.Context) error {
	token, err := s.store.Login(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	logging.FromContext(ctx).Info("session opened")
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

type Catalog struct {
	store   Store
	session core.Reference[*Session]
	sched   *core.Scheduler
	refresh *core.Throttle

	mu         sync.RWMutex
	categories []string
	items      map[string]Item
}

func (c *Catalog) LoadCategories(ctx context.Context) error {
	cats, err := c.store.Categories(ctx)
	if err != nil {
		return err
	}
	sort.Strings(cats)
	c.mu.Lock()
	c.categories = cats
	c.mu.Unlock()
	return nil
}

func (c *Catalog) LoadItems(ctx context.Context) error {
	session, err := c.session.Get(c.sched)
	if err != nil {
		return err
	}
	items, err := c.store.Items(ctx, session.Token())
	if err != nil {
		return err
	}
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.SKU] = it
	}
	c.mu.Lock()
	c.items = byID
	c.mu.Unlock()
	logging.FromContext(ctx).Info("catalog loaded", "items", len(byID))
	return nil
}

func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.categories...)
}

// Items lists items sorted by SKU, optionally filtered by category.
func (c *Catalog) Items(category string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if category == "" || strings.EqualFold(it.Category, category) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (c *Catalog) Item(sku string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[sku]
	return it, ok
}

// modules registers the demo modules and, when the web component is
// configured, their routes.
type modules struct {
	store   Store
	session *core.Class
	catalog *core.Class
}

func newModules(store Store) *modules {
	return &modules{store: store}
}

func (m *modules) Name() string        { return modulesName }
func (m *modules) DependsOn() []string { return []string{web.Name} }

func (m *modules) Configure(s *core.Scheduler) error {
	m.catalog = core.NewClass("catalog", func() *Catalog {
		c := &Catalog{
			store:   m.store,
			session: core.Ref[*Session](s, "session"),
			sched:   s,
		}
		c.refresh = core.NewThrottle(c.LoadItems)
		return c
	})
	m.session = core.NewClass("session", func() *Session {
		return &Session{store: m.store}
	})

	if err := core.Auto(s, m.session, (*Session).Login); err != nil {
		return err
	}
	if err := core.Auto(s, m.catalog, (*Catalog).LoadCategories, core.WithPriority(10)); err != nil {
		return err
	}
	if err := core.Auto(s, m.catalog, (*Catalog).LoadItems, core.WithPriority(5)); err != nil {
		return err
	}

	// catalog first: its session reference stays deferred until first use.
	if _, err := s.RegisterModule(m.catalog, "catalog"); err != nil {
		return err
	}
	if _, err := s.RegisterModule(m.session, "session"); err != nil {
		return err
	}

	if engine, ok := core.Lookup[*gin.Engine](s); ok {
		m.routes(engine, s)
	}
	return nil
}

func (m *modules) routes(r web.Router, s *core.Scheduler) {
	g := r.Group("/catalog", web.Await(s, m.catalog))

	g.GET("/categories", func(c *gin.Context) {
		cat, _ := core.Resolve[*Catalog](s, m.catalog)
		c.JSON(http.StatusOK, gin.H{"categories": cat.Categories()})
	})

	g.GET("/items", func(c *gin.Context) {
		cat, _ := core.Resolve[*Catalog](s, m.catalog)
		c.JSON(http.StatusOK, gin.H{"items": cat.Items(c.Query("category"))})
	})

	g.GET("/items/:sku", func(c *gin.Context) {
		cat, _ := core.Resolve[*Catalog](s, m.catalog)
		it, ok := cat.Item(c.Param("sku"))
		if !ok {
			web.Problem(c, http.StatusNotFound, fmt.Sprintf("no item %q", c.Param("sku")))
			return
		}
		c.JSON(http.StatusOK, it)
	})

	// Reload outside the scheduler; concurrent refreshes are rejected.
	g.POST("/refresh", func(c *gin.Context) {
		cat, _ := core.Resolve[*Catalog](s, m.catalog)
		err := cat.refresh.Do(c.Request.Context())
		switch {
		case errors.Is(err, core.ErrThrottled):
			web.Problem(c, http.StatusConflict, "refresh already running")
		case err != nil:
			web.Problem(c, http.StatusBadGateway, err.Error())
		default:
			c.JSON(http.StatusOK, gin.H{"items": len(cat.Items(""))})
		}
	})
}

func (m *modules) Start(context.Context, *core.Scheduler) error { return nil }
func (m *modules) Stop(context.Context, *core.Scheduler) error  { return nil }
