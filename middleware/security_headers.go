package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig tunes the Content-Security-Policy. InlineScriptPrefixes are
// path prefixes whose pages register the service worker inline; every other
// route gets a policy without 'unsafe-inline' scripts.
type SecurityConfig struct {
	AllowedDomains       []string
	InlineScriptPrefixes []string
}

var staticSecurityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
}

func SecurityHeadersWithConfig(config SecurityConfig) echo.MiddlewareFunc {
	strict := buildCSP(config.AllowedDomains, false)
	relaxed := buildCSP(config.AllowedDomains, true)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for name, value := range staticSecurityHeaders {
				h.Set(name, value)
			}

			path := c.Request().URL.Path
			csp := strict
			for _, prefix := range config.InlineScriptPrefixes {
				if strings.HasPrefix(path, prefix) {
					csp = relaxed
					break
				}
			}
			h.Set("Content-Security-Policy", csp)
			// installed apps may be embedded by their own origin only
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Del("Server")

			return next(c)
		}
	}
}

func buildCSP(connect []string, inlineScripts bool) string {
	directives := []string{
		"default-src 'self'",
		"img-src 'self' data: https:",
		"style-src 'self' 'unsafe-inline'",
		"worker-src 'self'",
		"manifest-src 'self'",
		"frame-ancestors 'self'",
	}
	if inlineScripts {
		directives = append(directives, "script-src 'self' 'unsafe-inline'")
	} else {
		directives = append(directives, "script-src 'self'")
	}

	sources := []string{"'self'"}
	for _, d := range connect {
		if d != "*" {
			sources = append(sources, d)
		}
	}
	directives = append(directives, "connect-src "+strings.Join(sources, " "))
	return strings.Join(directives, "; ")
}
