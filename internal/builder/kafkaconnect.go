package builder

import (
	"strings"

	"invscout/internal/domain"
)

// NewKafkaConnectBuilder returns the version-agnostic Kafka Connect rule set.
func NewKafkaConnectBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service: domain.KafkaConnect,
		Rules: []Rule{
			{Name: "group-id", Apply: connectGroupID},
			{Name: "storage-topics", Apply: connectStorageTopics},
			{Name: "replication-factor", Apply: connectReplicationFactor},
			{Name: "monitoring-interceptors", Apply: connectMonitoringInterceptors},
			{Name: "listener", Apply: connectListener},
			{Name: "advertised-listener", Apply: connectAdvertisedListener},
			{Name: "ssl", Apply: connectSSL},
		},
	}
}

// connectGroupID prefers the explicit group.id and falls back to the
// config-storage topic name, which Connect derives from the group by
// appending "-configs".
func connectGroupID(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	id, ok := view.Get("group.id")
	if !ok {
		topic, ok := view.Get("config.storage.topic")
		if !ok {
			return emptyUpdate(), nil
		}
		id = strings.TrimSuffix(topic, "-configs")
	}
	return broadcast(map[string]any{"kafka_connect_group_id": id}), nil
}

// connectStorageTopics accounts for the internal topic names. They follow
// from the group id, so they stay out of the custom overrides without being
// re-emitted.
func connectStorageTopics(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("config.storage.topic", "offset.storage.topic", "status.storage.topic")
	return emptyUpdate(), nil
}

func connectReplicationFactor(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("offset.storage.replication.factor", "status.storage.replication.factor")

	factor, ok, err := intProperty(view, "config.storage.replication.factor")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{
		"kafka_connect_default_internal_replication_factor": factor,
	}), nil
}

func connectMonitoringInterceptors(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	enabled := view.Has("confluent.monitoring.interceptor.topic")
	return broadcast(map[string]any{
		"kafka_connect_monitoring_interceptors_enabled": enabled,
	}), nil
}

func connectListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
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
		"kafka_connect_http_protocol": strings.ToLower(l.Scheme),
		"kafka_connect_rest_port":     l.Port,
	}), nil
}

func connectAdvertisedListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	scheme, ok := view.Get("rest.advertised.listener")
	if !ok {
		return emptyUpdate(), nil
	}
	vars := map[string]any{
		"kafka_connect_rest_advertised_protocol": strings.ToLower(scheme),
	}
	port, ok, err := intProperty(view, "rest.advertised.port")
	if err != nil {
		return domain.Update{}, err
	}
	if ok {
		vars["kafka_connect_rest_advertised_port"] = port
	}
	return broadcast(vars), nil
}

// connectSSL gates on the advertised listener scheme; Connect carries its
// HTTPS material under the listeners.https prefix.
func connectSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	// Already marked by the advertised-listener rule.
	scheme := view.props["rest.advertised.listener"]
	if !strings.EqualFold(scheme, "https") {
		view.Mark("listeners.https.ssl.keystore.location", "listeners.https.ssl.keystore.password",
			"listeners.https.ssl.key.password", "listeners.https.ssl.truststore.location",
			"listeners.https.ssl.truststore.password")
		return emptyUpdate(), nil
	}

	vars := tlsMaterial(rc, view, tlsKeys{
		KeystorePath:   "listeners.https.ssl.keystore.location",
		KeystorePass:   "listeners.https.ssl.keystore.password",
		KeyPass:        "listeners.https.ssl.key.password",
		TruststorePath: "listeners.https.ssl.truststore.location",
		TruststorePass: "listeners.https.ssl.truststore.password",
	})
	return scoped(domain.KafkaConnect.Group, vars), nil
}
