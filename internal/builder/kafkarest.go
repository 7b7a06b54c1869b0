package builder

import (
	"strings"

	"invscout/internal/domain"
)

// NewKafkaRestBuilder returns the version-agnostic REST proxy rule set.
func NewKafkaRestBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service:  domain.KafkaRest,
		Requires: []string{domain.KafkaBroker.Group},
		Rules: []Rule{
			{Name: "listener", Apply: kafkaRestListener},
			{Name: "monitoring-interceptors", Apply: kafkaRestMonitoringInterceptors},
			{Name: "ssl", Apply: kafkaRestSSL},
			{Name: "mtls", Apply: kafkaRestMTLS},
			{Name: "authentication", Apply: kafkaRestAuthentication},
			{Name: "secrets-protection", Apply: kafkaRestSecretsProtection},
			{Name: "broker-mtls", Apply: kafkaRestBrokerMTLS},
		},
	}
}

func kafkaRestListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
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
		"kafka_rest_http_protocol": strings.ToLower(l.Scheme),
		"kafka_rest_port":          l.Port,
	}), nil
}

func kafkaRestMonitoringInterceptors(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	enabled := view.Has("confluent.monitoring.interceptor.topic")
	return broadcast(map[string]any{
		"kafka_rest_monitoring_interceptors_enabled": enabled,
	}), nil
}

// kafkaRestSSL gates on the listener scheme. The proxy's truststore is
// optional; tlsMaterial keeps the CA alias absence marker when the store is
// configured without resolvable aliases.
func kafkaRestSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
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
	return scoped(domain.KafkaRest.Group, vars), nil
}

func kafkaRestMTLS(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	auth, ok := view.Get("ssl.client.auth")
	if !ok || auth != "true" {
		return emptyUpdate(), nil
	}
	return scoped(domain.KafkaRest.Group, map[string]any{"ssl_mutual_auth_enabled": true}), nil
}

// kafkaRestAuthentication always emits a value: an absent method becomes an
// explicit "none" so the consumer of the inventory does not have to know the
// proxy's implicit default.
func kafkaRestAuthentication(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	method, ok := view.Get("authentication.method")
	authType := "none"
	if ok && strings.EqualFold(method, "BASIC") {
		authType = "basic"
	}
	return broadcast(map[string]any{
		"kafka_rest_authentication_type": authType,
	}), nil
}

func kafkaRestSecretsProtection(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	providers, _ := view.Get("client.config.providers")
	enabled := strings.Contains(providers, "securepass")
	return broadcast(map[string]any{
		"kafka_rest_secrets_protection_enabled": enabled,
	}), nil
}

func kafkaRestBrokerMTLS(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	if !groupVarBool(rc.Inventory, domain.KafkaBroker.Group, "ssl_mutual_auth_enabled") {
		return emptyUpdate(), nil
	}
	return scoped(domain.KafkaRest.Group, map[string]any{"ssl_mutual_auth_enabled": true}), nil
}
