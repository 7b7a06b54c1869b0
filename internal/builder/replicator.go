package builder

import (
	"strconv"
	"strings"

	"invscout/internal/domain"
)

// Replicator configuration variant names, taken from the --x.config flags
// the service is launched with.
const (
	replicatorReplicationConfig        = "replication.config"
	replicatorConsumerConfig           = "consumer.config"
	replicatorProducerConfig           = "producer.config"
	replicatorConsumerMonitoringConfig = "consumer.monitoring.config"
	replicatorProducerMonitoringConfig = "producer.monitoring.config"
)

// NewReplicatorBuilder returns the Connect Replicator rule set. The service
// runs with several property files at once; rules pull the variant they need
// from the context, and the default custom grouping is overridden so both
// monitoring variants land in one override key.
func NewReplicatorBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service:          domain.KafkaReplicator,
		CanonicalVariant: replicatorReplicationConfig,
		CustomGroupKey:   replicatorCustomKey,
		Rules: []Rule{
			{Name: "group-id", Apply: replicatorGroupID},
			{Name: "topic-config", Apply: replicatorTopicConfig},
			{Name: "offset-config", Apply: replicatorOffsetConfig},
			{Name: "advertised-rest", Apply: replicatorAdvertisedRest},
			{Name: "consumer-security", Apply: replicatorConsumerSecurity},
			{Name: "kerberos", Apply: replicatorKerberos},
		},
	}
}

func replicatorCustomKey(variant string) string {
	switch variant {
	case replicatorReplicationConfig:
		return domain.KafkaReplicator.Group + "_custom_properties"
	case replicatorConsumerMonitoringConfig, replicatorProducerMonitoringConfig:
		return domain.KafkaReplicator.Group + "_monitoring_interceptor_custom_properties"
	}
	base := strings.ReplaceAll(strings.TrimSuffix(variant, ".config"), ".", "_")
	return domain.KafkaReplicator.Group + "_" + base + "_custom_properties"
}

func replicatorGroupID(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	id, ok := view.Get("group.id")
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{
		"kafka_connect_replicator_group_id": id,
	}), nil
}

func replicatorTopicConfig(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("topic.config.sync")

	vars := map[string]any{}
	if whitelist, ok := view.Get("topic.whitelist"); ok {
		vars["kafka_connect_replicator_white_list"] = whitelist
	}
	if raw, ok := view.Get("topic.auto.create"); ok {
		create, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Update{}, &domain.MalformedPropertyError{Key: "topic.auto.create", Value: raw, Err: err}
		}
		vars["kafka_connect_replicator_topic_auto_create"] = create
	}
	return broadcast(vars), nil
}

func replicatorOffsetConfig(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	vars := map[string]any{}
	if start, ok := view.Get("offset.start"); ok {
		vars["kafka_connect_replicator_offset_start"] = start
	}
	if topic, ok := view.Get("offset.storage.topic"); ok {
		vars["kafka_connect_replicator_offset_topic"] = topic
	}
	return broadcast(vars), nil
}

func replicatorAdvertisedRest(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	scheme, ok := view.Get("rest.advertised.listener")
	if !ok {
		return emptyUpdate(), nil
	}
	vars := map[string]any{
		"kafka_connect_replicator_rest_advertised_protocol": strings.ToLower(scheme),
	}
	port, ok, err := intProperty(view, "rest.advertised.port")
	if err != nil {
		return domain.Update{}, err
	}
	if ok {
		vars["kafka_connect_replicator_rest_advertised_port"] = port
	}
	return broadcast(vars), nil
}

// replicatorConsumerSecurity inspects the consumer variant: the security
// protocol gates both the TLS material and the SASL mechanism of the
// origin-cluster connection.
func replicatorConsumerSecurity(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	consumer := rc.Variant(replicatorConsumerConfig)
	protocol, ok := consumer.Get("security.protocol")
	if !ok {
		return emptyUpdate(), nil
	}

	vars := map[string]any{
		"kafka_connect_replicator_consumer_security_protocol": protocol,
	}
	if strings.Contains(protocol, "SASL") {
		if mechanism, ok := consumer.Get("sasl.mechanism"); ok {
			vars["kafka_connect_replicator_consumer_sasl_protocol"] = mechanism
		}
	}
	if !strings.Contains(protocol, "SSL") {
		consumer.Mark("ssl.keystore.location", "ssl.keystore.password", "ssl.key.password",
			"ssl.truststore.location", "ssl.truststore.password")
		return scoped(domain.KafkaReplicator.Group, vars), nil
	}

	for key, value := range tlsMaterial(rc, consumer, tlsKeys{
		KeystorePath:   "ssl.keystore.location",
		KeystorePass:   "ssl.keystore.password",
		KeyPass:        "ssl.key.password",
		TruststorePath: "ssl.truststore.location",
		TruststorePass: "ssl.truststore.password",
	}) {
		vars[key] = value
	}
	return scoped(domain.KafkaReplicator.Group, vars), nil
}

// replicatorKerberos extracts the keytab and principal from the consumer
// JAAS configuration when GSSAPI is in play.
func replicatorKerberos(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	consumer := rc.Variant(replicatorConsumerConfig)
	if mechanism, ok := consumer.Get("sasl.mechanism"); !ok || mechanism != "GSSAPI" {
		return emptyUpdate(), nil
	}

	vars := map[string]any{}
	if name, ok := consumer.Get("sasl.kerberos.service.name"); ok {
		vars["kafka_connect_replicator_kerberos_service_name"] = name
	}
	config, ok := consumer.Get("sasl.jaas.config")
	if !ok {
		return broadcast(vars), nil
	}
	values := parseJaasValues(config)
	if keytab, ok := values["keyTab"]; ok {
		vars["kafka_connect_replicator_kerberos_keytab_path"] = keytab
	}
	if principal, ok := values["principal"]; ok {
		vars["kafka_connect_replicator_kerberos_principal"] = principal
	}
	return broadcast(vars), nil
}
