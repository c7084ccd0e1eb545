package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/autorun/config"
	"github.com/skekre98/autorun/core"
	"github.com/skekre98/autorun/logging"
)

type stock struct {
	loaded atomic.Bool
}

func newScheduler(t *testing.T, out io.Writer) *core.Scheduler {
	t.Helper()
	if out == nil {
		out = io.Discard
	}
	s := core.NewScheduler()
	cfg := config.Root{
		App:    config.AppInfo{Name: "web-test", Version: "0.0.0"},
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
	}
	require.NoError(t, core.Put(s, cfg))
	require.NoError(t, core.Put(s, slog.New(slog.NewJSONHandler(out, nil))))
	return s
}

func serve(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestComponent_ConfigureRegistersEngine(t *testing.T) {
	s := newScheduler(t, nil)
	comp := Component(WithRoutes(func(r Router) {
		r.GET("/hello", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "world"}) })
	}))
	require.NoError(t, comp.Configure(s))

	srv, ok := core.Lookup[*http.Server](s)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:0", srv.Addr)

	rec := serve(Engine(s), "/hello", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"world"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_PropagatesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	s := newScheduler(t, &buf)
	var seen string
	comp := Component(WithRoutes(func(r Router) {
		r.GET("/id", func(c *gin.Context) {
			logging.FromContext(c.Request.Context()).Info("inside")
			seen = c.GetString(requestIDKey)
			c.Status(http.StatusNoContent)
		})
	}))
	require.NoError(t, comp.Configure(s))

	rec := serve(Engine(s), "/id", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", seen)
	assert.Contains(t, buf.String(), `"msg":"inside","req_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"msg":"http_access"`)
}

func TestRecoveryProblem(t *testing.T) {
	s := newScheduler(t, nil)
	comp := Component(WithRoutes(func(r Router) {
		r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	}))
	require.NoError(t, comp.Configure(s))

	rec := serve(Engine(s), "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "unexpected server error", body["detail"])
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
}

func TestAwait_RetriesAfterFailure(t *testing.T) {
	s := newScheduler(t, nil)
	cls := core.NewClass("stock", func() *stock { return &stock{} })

	var calls atomic.Int32
	require.NoError(t, core.Auto(s, cls, func(st *stock, ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("warehouse offline")
		}
		st.loaded.Store(true)
		return nil
	}, core.WithName("fill")))
	_, err := s.RegisterModule(cls)
	require.NoError(t, err)

	comp := Component(WithAwait(cls), WithRoutes(func(r Router) {
		r.GET("/stock", func(c *gin.Context) {
			st, _ := core.Resolve[*stock](s, cls)
			c.JSON(http.StatusOK, gin.H{"loaded": st.loaded.Load()})
		})
	}))
	require.NoError(t, comp.Configure(s))

	first := serve(Engine(s), "/stock", nil)
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Contains(t, decodeProblem(t, first)["detail"], "warehouse offline")

	second := serve(Engine(s), "/stock", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"loaded":true}`, second.Body.String())

	third := serve(Engine(s), "/stock", nil)
	assert.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, core.NotTracked, s.State(cls))
}

func TestAwait_GivesUpWithRequestContext(t *testing.T) {
	s := newScheduler(t, nil)
	cls := core.NewClass("slow", func() *stock { return &stock{} })
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, s.RegisterEffect(cls, "wait", func(context.Context, any) error {
		<-release
		return nil
	}, 0))
	_, err := s.RegisterModule(cls)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/slow", Await(s, cls), func(c *gin.Context) { c.Status(http.StatusOK) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, core.Running, s.State(cls))
}

func TestAwait_EffectTimeoutIsUnavailable(t *testing.T) {
	s := core.NewScheduler()
	cls := core.NewClass("upstream", func() *stock { return &stock{} })
	require.NoError(t, s.RegisterEffect(cls, "fetch", func(context.Context, any) error {
		return context.DeadlineExceeded
	}, 0))
	_, err := s.RegisterModule(cls)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", Await(s, cls), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, "/", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "deadline exceeded")
}

func TestAwait_UnregisteredClassPassesThrough(t *testing.T) {
	s := core.NewScheduler()
	cls := core.NewClass("ghost", func() *stock { return &stock{} })

	r := gin.New()
	r.GET("/", Await(s, cls), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(r, "/", nil).Code)
}

func TestComponent_StartStop(t *testing.T) {
	s := newScheduler(t, nil)
	comp := Component(WithRoutes(func(r Router) {
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	}))
	require.NoError(t, comp.Configure(s))
	require.NoError(t, comp.Start(context.Background(), s))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, comp.Stop(ctx, s))
}

func TestComponent_StartFailsOnBusyPort(t *testing.T) {
	busy := httptest.NewServer(http.NotFoundHandler())
	defer busy.Close()

	s := core.NewScheduler()
	cfg := config.Root{Server: config.ServerConfig{Addr: busy.Listener.Addr().String()}}
	require.NoError(t, core.Put(s, cfg))
	require.NoError(t, core.Put(s, slog.New(slog.NewTextHandler(io.Discard, nil))))

	comp := Component()
	require.NoError(t, comp.Configure(s))
	assert.Error(t, comp.Start(context.Background(), s))
}
