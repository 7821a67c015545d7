package services

import (
	"fmt"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// ConnectorRegistry maps source types to connector implementations.
// The set of types is closed at construction: a lookup for an unknown
// type fails fast instead of falling through to a stub.
type ConnectorRegistry struct {
	connectors map[domain.SourceType]driven.Connector
}

// NewConnectorRegistry creates a registry from the given connectors,
// keyed by each connector's declared type.
func NewConnectorRegistry(conns ...driven.Connector) *ConnectorRegistry {
	r := &ConnectorRegistry{
		connectors: make(map[domain.SourceType]driven.Connector, len(conns)),
	}
	for _, conn := range conns {
		r.connectors[conn.Type()] = conn
	}
	return r
}

// Get returns the connector for a source type.
func (r *ConnectorRegistry) Get(sourceType domain.SourceType) (driven.Connector, error) {
	conn, ok := r.connectors[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, sourceType)
	}
	return conn, nil
}

// Types returns the registered source types.
func (r *ConnectorRegistry) Types() []domain.SourceType {
	types := make([]domain.SourceType, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	return types
}
