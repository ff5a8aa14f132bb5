package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "resulthub/pkg/platform/strings"
)

// Source describes one configured result store. Credential is kept separate
// from the endpoint so listings can expose the endpoint without leaking it.
type Source struct {
	Name        string
	URL         string
	Key         string
	Description string
}

// WebAPI describes one external fallback lookup service.
type WebAPI struct {
	Name    string
	BaseURL string
}

// Server captures the full process configuration.
type Server struct {
	Addr            string
	Sources         []Source
	SearchOrder     []string
	WebAPIs         []WebAPI
	QueryTimeout    time.Duration
	FallbackTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Source names come from SEARCH_ORDER; each name N expects SOURCE_<N>_URL and
// optionally SOURCE_<N>_KEY / SOURCE_<N>_DESC. Names without a URL are dropped
// from both the source list and the search order.
func FromEnv() Server {
	addr := os.Getenv("RESULTHUB_ADDR")
	if addr == "" {
		addr = ":3001"
	}

	names := pstrings.SplitList(os.Getenv("SEARCH_ORDER"))
	if len(names) == 0 {
		names = []string{"primary", "secondary"}
	}

	var sources []Source
	var order []string
	for _, name := range names {
		prefix := "SOURCE_" + strings.ToUpper(name)
		u := os.Getenv(prefix + "_URL")
		if u == "" {
			continue
		}
		sources = append(sources, Source{
			Name:        name,
			URL:         u,
			Key:         os.Getenv(prefix + "_KEY"),
			Description: os.Getenv(prefix + "_DESC"),
		})
		order = append(order, name)
	}

	apis := parseWebAPIs(os.Getenv("WEB_APIS"))
	if len(apis) == 0 {
		apis = []WebAPI{{Name: "btebresulthub", BaseURL: "https://btebresulthub.com"}}
	}

	return Server{
		Addr:            addr,
		Sources:         sources,
		SearchOrder:     order,
		WebAPIs:         apis,
		QueryTimeout:    secondsEnv("QUERY_TIMEOUT_SECONDS", 5),
		FallbackTimeout: secondsEnv("FALLBACK_TIMEOUT_SECONDS", 15),
	}
}

// DSN combines a source endpoint with its credential. The credential is the
// database password, injected as URL userinfo so endpoints stay loggable.
func DSN(src Source) string {
	if src.Key == "" {
		return src.URL
	}
	u, err := url.Parse(src.URL)
	if err != nil || u.Host == "" {
		return src.URL
	}
	user := ""
	if u.User != nil {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, src.Key)
	return u.String()
}

// parseWebAPIs decodes "name=baseURL" pairs separated by commas.
func parseWebAPIs(raw string) []WebAPI {
	var apis []WebAPI
	for _, part := range pstrings.SplitList(raw) {
		name, base, ok := strings.Cut(part, "=")
		if !ok || name == "" || base == "" {
			continue
		}
		apis = append(apis, WebAPI{Name: name, BaseURL: base})
	}
	return apis
}

func secondsEnv(key string, def int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
