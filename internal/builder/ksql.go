package builder

import (
	"strings"

	"invscout/internal/domain"
)

// NewKsqlBuilder returns the version-agnostic ksqlDB rule set.
func NewKsqlBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service: domain.Ksql,
		Rules: []Rule{
			{Name: "service-id", Apply: ksqlServiceID},
			{Name: "listener", Apply: ksqlListener},
			{Name: "replication-factors", Apply: ksqlReplicationFactors},
			{Name: "state-dir", Apply: ksqlStateDir},
			{Name: "ssl", Apply: ksqlSSL},
		},
	}
}

func ksqlServiceID(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	id, ok := view.Get("ksql.service.id")
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{"ksql_service_id": id}), nil
}

func ksqlListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	raw, ok := view.Get("listeners")
	if !ok {
		return emptyUpdate(), nil
	}
	first, _, _ := strings.Cut(raw, ",")
	l, err := parseListener("listeners", strings.TrimSpace(first))
	if err != nil {
		return domain.Update{}, err
	}
	return broadcast(map[string]any{
		"ksql_http_protocol": strings.ToLower(l.Scheme),
		"ksql_listener_port": l.Port,
	}), nil
}

// ksqlReplicationFactors reads the two replication keys. The first drives
// the emitted value; both are marked.
func ksqlReplicationFactors(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("ksql.streams.replication.factor")

	factor, ok, err := intProperty(view, "ksql.internal.topic.replicas")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{
		"ksql_default_internal_replication_factor": factor,
	}), nil
}

func ksqlStateDir(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	dir, ok := view.Get("ksql.streams.state.dir")
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{"ksql_rocksdb_path": dir}), nil
}

func ksqlSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	// Already marked by the listener rule; read without re-marking.
	raw := view.props["listeners"]
	first, _, _ := strings.Cut(raw, ",")
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(first)), "https") {
		view.Mark("ssl.keystore.location", "ssl.keystore.password", "ssl.key.password",
			"ssl.truststore.location", "ssl.truststore.password")
		return emptyUpdate(), nil
	}

	vars := tlsMaterial(rc, view, tlsKeys{
		KeystorePath:   "ssl.keystore.location",
		KeystorePass:   "ssl.keystore.password",
		KeyPass:        "ssl.key.password",
		TruststorePath: "ssl.truststore.location",
		TruststorePass: "ssl.truststore.password",
	})
	return scoped(domain.Ksql.Group, vars), nil
}
