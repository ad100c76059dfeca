// Package httpview serves a completed run read-only over HTTP: the
// event log and final store state a driver.Result carries, browsable
// the way golang-debug's viewcore "html" command serves a static core
// dump for a browser to poke at instead of a stream of shell commands.
//
// The route table, recovery/CORS/logging middleware stack, and the
// http.Server timeout configuration are lifted from
// edirooss-zmux-server's cmd/zmux-server/main.go almost verbatim: gin.New
// plus gin.Recovery first, a dev-only CORS guard gated on ENV=dev, a
// zap-backed request logger last, and an *http.Server with explicit
// Read/Write/Idle timeouts rather than gin's own (infinite) defaults.
package httpview

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/driver"
	"github.com/mstep-lang/mstep/inspect"
	"github.com/mstep-lang/mstep/resolve"
	"github.com/mstep-lang/mstep/trace"
	"github.com/mstep-lang/mstep/value"
)

// Server wraps a finished run for browsing. It holds no mutable
// interpreter state of its own: every handler reads from result, or
// from a store.Snapshot those events already carry.
//
// dumpGroup coalesces concurrent requests for the same spew dump the
// way SummaryService.sg coalesces concurrent cache refreshes in
// edirooss-zmux-server's channel_summary.go — a finished run's store
// never changes, so once one request has paid for a render every
// concurrent twin gets the same string instead of re-walking the
// store.
type Server struct {
	result    driver.Result
	log       *zap.Logger
	engine    *gin.Engine
	dumpGroup singleflight.Group
}

// New builds a Server around a completed run's result.
func New(result driver.Result, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("httpview")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})
	r.Use(gin.Recovery())

	if os.Getenv("ENV") == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			ExposeHeaders:    []string{"X-Total-Count"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	s := &Server{result: result, log: log}
	r.Use(zapLogger(log))
	s.engine = r
	s.routes()
	return s
}

// zapLogger mirrors zmux-server's main.go ZapLogger middleware: log
// method, route, status, and latency for every request at a level
// chosen by the response status.
func zapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joined := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if joined != nil {
			fields = append(fields, zap.Error(joined))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func (s *Server) routes() {
	s.engine.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	s.engine.GET("/api/program", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"remaining": len(s.result.Program)})
	})

	s.engine.GET("/api/events", func(c *gin.Context) {
		out := make([]gin.H, 0, len(s.result.Events))
		for i, ev := range s.result.Events {
			out = append(out, describeEvent(i, ev))
		}
		c.Header("X-Total-Count", strconv.Itoa(len(out)))
		c.JSON(http.StatusOK, out)
	})

	s.engine.GET("/api/events/:index", func(c *gin.Context) {
		idx, err := strconv.Atoi(c.Param("index"))
		if err != nil || idx < 0 || idx >= len(s.result.Events) {
			_ = c.Error(fmt.Errorf("invalid event index %q", c.Param("index")))
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid event index"})
			return
		}
		ev := s.result.Events[idx]
		detail := describeEvent(idx, ev)
		if ce, ok := ev.(trace.ClauseEvent); ok {
			key := "event:" + strconv.Itoa(idx)
			v, err, _ := s.dumpGroup.Do(key, func() (interface{}, error) {
				return ce.Snapshot.String(), nil
			})
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
				return
			}
			detail["store"] = v.(string)
		}
		c.JSON(http.StatusOK, detail)
	})

	s.engine.GET("/api/store", func(c *gin.Context) {
		v, err, _ := s.dumpGroup.Do("store", func() (interface{}, error) {
			return s.result.Store.Snapshot().String(), nil
		})
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.String(http.StatusOK, v.(string))
	})

	s.engine.GET("/api/inspect/:path", func(c *gin.Context) {
		lexpr, err := parseDottedPath(c.Param("path"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		res, err := resolve.Resolve(lexpr, s.result.Store)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		if !res.Present {
			c.JSON(http.StatusOK, gin.H{"present": false})
			return
		}

		if c.Query("deep") == "1" {
			v, err := inspect.InspectDeep(res.Share.Addr, s.result.Store)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"present":    true,
				"value":      fmt.Sprintf("%v", v.Value),
				"dependents": deepDependentNames(v),
			})
			return
		}

		v, err := inspect.Inspect(res.Share.Addr, s.result.Store)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"present": true, "value": fmt.Sprintf("%v", v), "owned": res.Share.Owned})
	})
}

func describeEvent(i int, ev trace.Event) gin.H {
	switch e := ev.(type) {
	case trace.ClauseEvent:
		return gin.H{"index": i, "kind": "clause", "tag": e.Tag.String()}
	case trace.SynchronizationEvent:
		return gin.H{"index": i, "kind": "synchronization", "lexpr": e.LExpr.String(), "value": fmt.Sprintf("%v", e.Value)}
	default:
		return gin.H{"index": i, "kind": "unknown"}
	}
}

func parseDottedPath(path string) (ast.LExpr, error) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty path")
	}
	var l ast.LExpr = ast.Unqualified{Name: ast.Name(parts[0])}
	for _, suffix := range parts[1:] {
		if suffix == "" {
			return nil, fmt.Errorf("empty path segment in %q", path)
		}
		l = ast.Qualified{Prefix: l, Suffix: ast.Name(suffix)}
	}
	return l, nil
}

// deepDependentNames lists v's dependent names in sorted order, the
// same determinism discipline package step applies when it walks a
// Namespace (spec.md §5: the stepper, and anything that echoes its
// state, must not depend on Go's random map iteration order).
func deepDependentNames(v value.Deep) []ast.Name {
	names := make([]ast.Name, 0, len(v.Dependents))
	for name := range v.Dependents {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Handler returns the underlying http.Handler for use in a custom
// *http.Server (see cmd/mstep), the same split zmux-server's main.go
// keeps between building the gin.Engine and wrapping it in an
// http.Server with its own timeouts.
func (s *Server) Handler() http.Handler { return s.engine }

// NewHTTPServer wraps Handler in an *http.Server configured the way
// zmux-server's main.go configures its own: explicit timeouts instead
// of gin's effectively-infinite defaults, and zap wired in as the
// server's error log.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 15,
		ErrorLog:       zap.NewStdLog(s.log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}
}
