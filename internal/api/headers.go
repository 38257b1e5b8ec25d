package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dunglas/httpsfv"
	"golang.org/x/mod/semver"
)

const (
	// headerClient identifies this client to the store (RFC 8941 Dictionary).
	// Example: client="storefront-go", version="1.0.0"
	headerClient = "Storefront-Client"

	// headerAPIVersion is the server's API version (RFC 8941 Dictionary).
	// Example: version="1.4.0"
	// Only deployments that add it send it; without it no version check runs.
	headerAPIVersion = "Storefront-API"
)

func formatClientHeader(name, version string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("client", httpsfv.NewItem(name))
	dict.Add("version", httpsfv.NewItem(version))

	out, err := httpsfv.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("encoding %s header: %w", headerClient, err)
	}
	return out, nil
}

// ParseAPIVersion extracts the version from a Storefront-API header.
// Parameters on the member are ignored.
func ParseAPIVersion(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("empty Storefront-API header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return "", fmt.Errorf("invalid Storefront-API header: %w", err)
	}

	member, ok := dict.Get("version")
	if !ok {
		return "", errors.New("version key not found in Storefront-API header")
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", errors.New("version value must be an item")
	}

	version, ok := item.Value.(string)
	if !ok {
		return "", errors.New("version value must be a string")
	}

	return version, nil
}

// CanonicalVersion adds the "v" prefix semver expects. Invalid input returns "".
func CanonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// VersionSatisfies reports whether server >= minimum. Unparseable versions
// never satisfy.
func VersionSatisfies(server, minimum string) bool {
	sv, mv := CanonicalVersion(server), CanonicalVersion(minimum)
	if sv == "" || mv == "" {
		return false
	}
	return semver.Compare(sv, mv) >= 0
}

// checkServerVersion warns once per client when the server reports an API
// version older than the configured minimum. Responses without the header are
// accepted silently.
func (c *Client) checkServerVersion(h http.Header) {
	if c.minAPIVersion == "" {
		return
	}
	raw := h.Get(headerAPIVersion)
	if raw == "" {
		return
	}

	c.versionOnce.Do(func() {
		version, err := ParseAPIVersion(raw)
		if err != nil {
			c.logger.Warn("unreadable server API version", slog.String("header", raw), slog.String("error", err.Error()))
			return
		}
		if !VersionSatisfies(version, c.minAPIVersion) {
			c.logger.Warn("server API older than client expects",
				slog.String("server", version),
				slog.String("minimum", c.minAPIVersion),
			)
		}
	})
}
