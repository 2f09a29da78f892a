// Package clients forwards gateway traffic to the backing services.
package clients

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Faitltd/FAIT-sub003/pkg/middlewares"
)

// Upstreams are the base URLs of the services behind the gateway.
type Upstreams struct {
	Auth    string
	Booking string
	Credit  string
	Payment string
}

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
	name   string
}

// Clients picks an upstream by path prefix, longest prefix first.
type Clients struct {
	routes []route
	log    *slog.Logger
}

func New(u Upstreams, log *slog.Logger) (*Clients, error) {
	c := &Clients{log: log}
	table := []struct {
		name, base string
		prefixes   []string
	}{
		{"auth", u.Auth, []string{"/v1/auth", "/v1/admin/users"}},
		{"booking", u.Booking, []string{"/v1/bookings", "/v1/packages"}},
		{"credit", u.Credit, []string{"/v1/credits", "/v1/admin/credits"}},
		{"payment", u.Payment, []string{"/v1/payments", "/webhooks/omise"}},
	}
	for _, t := range table {
		target, err := url.Parse(t.base)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("%s upstream %q: invalid url", t.name, t.base)
		}
		p := httputil.NewSingleHostReverseProxy(target)
		name := t.name
		p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.ErrorContext(r.Context(), "upstream failed", "upstream", name, "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
		}
		for _, pre := range t.prefixes {
			c.routes = append(c.routes, route{prefix: pre, proxy: p, name: name})
		}
	}
	return c, nil
}

func (c *Clients) match(path string) (route, bool) {
	var best route
	found := false
	for _, r := range c.routes {
		if path != r.prefix && !strings.HasPrefix(path, r.prefix+"/") {
			continue
		}
		if !found || len(r.prefix) > len(best.prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// Forward is installed as the gin NoRoute handler.
func (c *Clients) Forward(ctx *gin.Context) {
	r, ok := c.match(ctx.Request.URL.Path)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if id := middlewares.GetRequestID(ctx.Request.Context()); id != "" {
		ctx.Request.Header.Set(middlewares.HeaderRequestID, id)
	}
	r.proxy.ServeHTTP(ctx.Writer, ctx.Request)
}
