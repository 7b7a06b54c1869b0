package builder

import (
	"strings"

	"invscout/internal/domain"
)

// NewControlCenterBuilder returns the version-agnostic Control Center rule
// set.
func NewControlCenterBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service: domain.ControlCenter,
		Rules: []Rule{
			{Name: "listener", Apply: controlCenterListener},
			{Name: "replication-factors", Apply: controlCenterReplicationFactors},
			{Name: "ssl", Apply: controlCenterSSL},
		},
	}
}

func controlCenterListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	raw, ok := view.Get("confluent.controlcenter.rest.listeners")
	if !ok {
		return emptyUpdate(), nil
	}
	first, _, _ := strings.Cut(raw, ",")
	l, err := parseListener("confluent.controlcenter.rest.listeners", strings.TrimSpace(first))
	if err != nil {
		return domain.Update{}, err
	}
	return broadcast(map[string]any{
		"control_center_http_protocol":     strings.ToLower(l.Scheme),
		"control_center_listener_hostname": l.Hostname,
		"control_center_port":              l.Port,
	}), nil
}

// controlCenterReplicationFactors reads the four replication keys Control
// Center writes with one effective value. The first drives the emitted
// value; all four are marked.
func controlCenterReplicationFactors(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("confluent.controlcenter.internal.topics.replication",
		"confluent.metrics.topic.replication",
		"confluent.monitoring.interceptor.topic.replication")

	factor, ok, err := intProperty(view, "confluent.controlcenter.command.topic.replication")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{
		"control_center_default_internal_replication_factor": factor,
	}), nil
}

func controlCenterSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	// Already marked by the listener rule; read without re-marking.
	raw := view.props["confluent.controlcenter.rest.listeners"]
	first, _, _ := strings.Cut(raw, ",")
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(first)), "https") {
		view.Mark("confluent.controlcenter.rest.ssl.keystore.location",
			"confluent.controlcenter.rest.ssl.keystore.password",
			"confluent.controlcenter.rest.ssl.key.password",
			"confluent.controlcenter.rest.ssl.truststore.location",
			"confluent.controlcenter.rest.ssl.truststore.password")
		return emptyUpdate(), nil
	}

	vars := tlsMaterial(rc, view, tlsKeys{
		KeystorePath:   "confluent.controlcenter.rest.ssl.keystore.location",
		KeystorePass:   "confluent.controlcenter.rest.ssl.keystore.password",
		KeyPass:        "confluent.controlcenter.rest.ssl.key.password",
		TruststorePath: "confluent.controlcenter.rest.ssl.truststore.location",
		TruststorePass: "confluent.controlcenter.rest.ssl.truststore.password",
	})
	return scoped(domain.ControlCenter.Group, vars), nil
}
