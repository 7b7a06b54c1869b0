package builder

import (
	"strings"

	"invscout/internal/domain"
)

// NewSchemaRegistryBuilder returns the version-agnostic Schema Registry
// rule set. It reads the kafka_broker section, so the driver must run the
// broker builder first.
func NewSchemaRegistryBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service:  domain.SchemaRegistry,
		Requires: []string{domain.KafkaBroker.Group},
		Rules: []Rule{
			{Name: "listener", Apply: schemaRegistryListener},
			{Name: "replication-factor", Apply: schemaRegistryReplicationFactor},
			{Name: "ssl-enabled", Apply: schemaRegistrySSLEnabled},
			{Name: "ssl-material", Apply: schemaRegistrySSLMaterial},
			{Name: "broker-mtls", Apply: schemaRegistryBrokerMTLS},
		},
	}
}

func schemaRegistryListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
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
		"schema_registry_listener_port": l.Port,
	}), nil
}

func schemaRegistryReplicationFactor(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	factor, ok, err := intProperty(view, "kafkastore.topic.replication.factor")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{
		"schema_registry_default_internal_replication_factor": factor,
	}), nil
}

// schemaRegistrySSLEnabled gates on the inter-instance protocol. TLS off is
// stated explicitly rather than left absent, so a re-deployment from the
// inventory cannot fall back to a different default.
func schemaRegistrySSLEnabled(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	protocol, _ := view.Get("inter.instance.protocol")
	view.Mark("security.protocol")
	return broadcast(map[string]any{
		"schema_registry_ssl_enabled": strings.EqualFold(protocol, "https"),
	}), nil
}

func schemaRegistrySSLMaterial(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	// Already marked by the ssl-enabled rule; read without re-marking.
	protocol := view.props["inter.instance.protocol"]
	if !strings.EqualFold(protocol, "https") {
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
	return scoped(domain.SchemaRegistry.Group, vars), nil
}

// schemaRegistryBrokerMTLS derives nothing from the raw properties: when the
// brokers demand client certificates, the registry's broker connections run
// mutual TLS regardless of its own listener settings.
func schemaRegistryBrokerMTLS(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	if !groupVarBool(rc.Inventory, domain.KafkaBroker.Group, "ssl_mutual_auth_enabled") {
		return emptyUpdate(), nil
	}
	return scoped(domain.SchemaRegistry.Group, map[string]any{"ssl_mutual_auth_enabled": true}), nil
}
