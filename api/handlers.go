package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const defaultBodyLimit = 64 * 1024 // 64 KiB

var errBodyTooLarge = errors.New("request body too large")

type registerConfig struct {
	bodyLimit int64
}

// RegisterOption customises the HTTP binding.
type RegisterOption func(*registerConfig)

// WithBodyLimit caps the accepted request body size in bytes.
func WithBodyLimit(n int64) RegisterOption {
	return func(c *registerConfig) {
		if n > 0 {
			c.bodyLimit = n
		}
	}
}

// Register wires the card routes on the provided Echo instance. Every method
// on /cards and /cards/:id reaches the router, which answers unsupported
// method and path pairs with a 400.
func Register(e *echo.Echo, router *Router, logger *log.Logger, opts ...RegisterOption) {
	cfg := registerConfig{bodyLimit: defaultBodyLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	e.GET("/healthz", healthz())
	e.Any("/cards", routeHandler(router, "/cards", cfg.bodyLimit))
	e.Any("/cards/:id", routeHandler(router, "/cards/{id}", cfg.bodyLimit))
	e.Any("/*", routeHandler(router, "", cfg.bodyLimit))

	if logger != nil {
		logger.Debugf("card routes registered, body limit %d bytes", cfg.bodyLimit)
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// routeHandler builds the route key from the matched pattern, or from the raw
// request path when pattern is empty, and hands the request to the router.
func routeHandler(router *Router, pattern string, bodyLimit int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		path := pattern
		if path == "" {
			path = req.URL.Path
		}
		routeKey := req.Method + " " + path

		params := map[string]string{}
		if id := c.Param("id"); id != "" {
			// Echo matches on RawPath when the request carries one, leaving
			// the param escaped. Otherwise it is already decoded.
			if req.URL.RawPath != "" {
				if unescaped, err := url.PathUnescape(id); err == nil {
					id = unescaped
				}
			}
			params["id"] = id
		}

		var resp Response
		body, err := readBody(req.Body, bodyLimit)
		if err != nil {
			resp = router.reject(routeKey, err)
		} else {
			resp = router.Route(req.Context(), Request{
				RouteKey:       routeKey,
				PathParameters: params,
				Body:           body,
			})
		}
		return writeResponse(c, resp)
	}
}

func readBody(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeResponse(c echo.Context, resp Response) error {
	contentType := echo.MIMEApplicationJSON
	for k, v := range resp.Headers {
		if http.CanonicalHeaderKey(k) == echo.HeaderContentType {
			contentType = v
			continue
		}
		c.Response().Header().Set(k, v)
	}
	return c.Blob(resp.StatusCode, contentType, resp.Body)
}
