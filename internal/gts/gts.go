// Package gts implements the GTS identifier format used on the wire for
// resource IDs and plugin/error type identifiers: `<schema>~<instance>`,
// where the schema starts with "gts.".
package gts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Resource schemas for wire-format IDs.
const (
	UpstreamSchema = "gts.x.core.oagw.upstream.v1"
	RouteSchema    = "gts.x.core.oagw.route.v1"
)

var (
	ErrMissingTilde  = errors.New("missing '~' separator")
	ErrEmpty         = errors.New("empty schema or instance")
	ErrInvalidPrefix = errors.New("identifier must start with 'gts.'")
)

// ID is a parsed GTS identifier split at the last '~'.
type ID struct {
	Schema   string
	Instance string
}

// Parse splits a GTS identifier string into schema and instance.
func Parse(s string) (ID, error) {
	pos := strings.LastIndexByte(s, '~')
	if pos < 0 {
		return ID{}, ErrMissingTilde
	}
	schema, instance := s[:pos], s[pos+1:]
	if schema == "" || instance == "" {
		return ID{}, ErrEmpty
	}
	if !strings.HasPrefix(schema, "gts.") {
		return ID{}, ErrInvalidPrefix
	}
	return ID{Schema: schema, Instance: instance}, nil
}

// Format joins schema and instance into a GTS identifier string.
func Format(schema, instance string) string {
	return schema + "~" + instance
}

func (id ID) String() string {
	return Format(id.Schema, id.Instance)
}

// ParseResource parses a resource GTS identifier whose instance is a UUID.
func ParseResource(s string) (string, uuid.UUID, error) {
	id, err := Parse(s)
	if err != nil {
		return "", uuid.Nil, err
	}
	u, err := uuid.Parse(id.Instance)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid UUID in instance: %w", err)
	}
	return id.Schema, u, nil
}

// FormatUpstream formats an upstream resource ID.
func FormatUpstream(id uuid.UUID) string {
	return Format(UpstreamSchema, id.String())
}

// FormatRoute formats a route resource ID.
func FormatRoute(id uuid.UUID) string {
	return Format(RouteSchema, id.String())
}
