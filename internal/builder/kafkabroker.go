package builder

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"invscout/internal/domain"
)

// NewKafkaBrokerBuilder returns the version-agnostic Kafka broker rule set.
func NewKafkaBrokerBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service: domain.KafkaBroker,
		PerHost: brokerHostIDs,
		Rules: []Rule{
			{Name: "replication-factors", Apply: brokerReplicationFactors},
			{Name: "default-listeners", Apply: brokerDefaultListeners},
			{Name: "inter-broker-listener", Apply: brokerInterBrokerListener},
			{Name: "http-server", Apply: brokerHTTPServer},
			{Name: "metrics-reporter", Apply: brokerMetricsReporter},
			{Name: "schema-validation", Apply: brokerSchemaValidation},
			{Name: "rbac", Apply: brokerRBAC},
			{Name: "ldap", Apply: brokerLDAP},
			{Name: "ssl", Apply: brokerSSL},
			{Name: "mtls", Apply: brokerMTLS},
		},
	}
}

// brokerHostIDs emits broker.id as a per-host override. The value
// legitimately differs across hosts, so it never enters the group vars; an
// unparsable id drops that host's entry only.
func brokerHostIDs(rc *RuleContext, table domain.HostProperties) []domain.HostUpdate {
	rc.Variant(domain.DefaultVariant).Mark("broker.id")

	var updates []domain.HostUpdate
	for _, host := range rc.Hosts {
		raw, ok := table.Default(host)["broker.id"]
		if !ok {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("Builder %s: host %s: %v", rc.Service.Key, host,
				&domain.MalformedPropertyError{Key: "broker.id", Value: raw, Err: err})
			continue
		}
		updates = append(updates, domain.HostUpdate{
			Group: domain.KafkaBroker.Group,
			Host:  host,
			Vars:  map[string]any{"broker.id": id},
		})
	}
	return updates
}

// brokerReplicationFactors reads the four replication keys that carry the
// same effective value in well-formed deployments. Only the first drives
// the emitted value; all four are marked so the others stay out of the
// custom-property diff. An audit replica count that differs from the
// balancer default means audit logs ship to a separate destination.
func brokerReplicationFactors(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("confluent.license.topic.replication.factor",
		"confluent.metadata.topic.replication.factor")
	audit, hasAudit := view.Get("confluent.security.event.logger.exporter.kafka.topic.replicas")

	factor, ok, err := intProperty(view, "confluent.balancer.topic.replication.factor")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	vars := map[string]any{"kafka_broker_default_internal_replication_factor": factor}
	if hasAudit && audit != strconv.Itoa(factor) {
		vars["audit_logs_destination_enabled"] = true
	}
	return broadcast(vars), nil
}

// brokerDefaultListeners parses the comma-separated listeners property and,
// per listener, the SASL mechanism and JAAS users wired to it.
func brokerDefaultListeners(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	raw, ok := view.Get("listeners")
	if !ok {
		return emptyUpdate(), nil
	}

	listeners := make(map[string]map[string]any)
	scramUsers := make(map[string]jaasUser)
	scram256Users := make(map[string]jaasUser)
	plainUsers := make(map[string]jaasUser)

	for _, entry := range strings.Split(raw, ",") {
		l, err := parseListener("listeners", strings.TrimSpace(entry))
		if err != nil {
			return domain.Update{}, err
		}
		name := strings.ToLower(l.Scheme)

		mechanismKey := "listener.name." + name + ".sasl.enabled.mechanisms"
		mechanism, _ := view.Get(mechanismKey)

		listeners[name] = map[string]any{
			"name":          strings.ToUpper(name),
			"port":          l.Port,
			"sasl_protocol": mechanism,
		}
		if mechanism == "" {
			continue
		}

		jaasKey := "listener.name." + name + "." + strings.ToLower(mechanism) + ".sasl.jaas.config"
		config, _ := view.Get(jaasKey)
		users := parseJaasUsers(config)
		switch strings.ToUpper(mechanism) {
		case "SCRAM-SHA-512", "SCRAM":
			for k, u := range users {
				scramUsers[k] = u
			}
		case "SCRAM-SHA-256", "SCRAM256":
			for k, u := range users {
				scram256Users[k] = u
			}
		case "PLAIN":
			for k, u := range users {
				plainUsers[k] = u
			}
		}
	}

	return broadcast(map[string]any{
		"kafka_broker_default_listeners": listeners,
		"sasl_scram_users":               scramUsers,
		"sasl_scram256_users":            scram256Users,
		"sasl_plain_users":               plainUsers,
	}), nil
}

func brokerInterBrokerListener(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	name, ok := view.Get("inter.broker.listener.name")
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{"kafka_broker_inter_broker_listener_name": strings.ToLower(name)}), nil
}

// brokerHTTPServer inspects the embedded REST server keys; all four are
// marked even though only the enable flag drives the emitted value.
func brokerHTTPServer(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	view.Mark("kafka.rest.bootstrap.servers",
		"confluent.http.server.advertised.listeners",
		"confluent.http.server.listeners")
	enabled := view.Has("kafka.rest.enable")
	return broadcast(map[string]any{"kafka_broker_rest_proxy_enabled": enabled}), nil
}

func brokerMetricsReporter(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	enabled := view.Has("confluent.metrics.reporter.bootstrap.servers")
	return broadcast(map[string]any{"kafka_broker_metrics_reporter_enabled": enabled}), nil
}

func brokerSchemaValidation(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	enabled := view.Has("confluent.schema.registry.url")
	return broadcast(map[string]any{"kafka_broker_schema_validation_enabled": enabled}), nil
}

// brokerRBAC gates on the embedded metadata service listeners. RBAC off is
// an explicit negative, never an omitted key, so consumers of the inventory
// get a deterministic signal either way.
func brokerRBAC(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	raw, ok := view.Get("confluent.metadata.server.listeners")
	if !ok {
		return broadcast(map[string]any{"rbac_enabled": false}), nil
	}

	first, _, _ := strings.Cut(raw, ",")
	l, err := parseListener("confluent.metadata.server.listeners", strings.TrimSpace(first))
	if err != nil {
		return domain.Update{}, err
	}
	vars := map[string]any{
		"rbac_enabled":      true,
		"mds_http_protocol": strings.ToLower(l.Scheme),
		"mds_port":          l.Port,
	}
	if pem, ok := view.Get("confluent.metadata.server.token.key.path"); ok {
		vars["token_services_public_pem_file"] = pem
	}
	if info, ok := view.Get("confluent.metadata.basic.auth.user.info"); ok {
		user, password, found := strings.Cut(info, ":")
		if !found {
			return domain.Update{}, &domain.MalformedPropertyError{
				Key:   "confluent.metadata.basic.auth.user.info",
				Value: info,
				Err:   errors.New("missing user:password delimiter"),
			}
		}
		vars["mds_super_user"] = user
		vars["mds_super_user_password"] = password
	}
	return broadcast(vars), nil
}

// brokerLDAP reads the metadata service's LDAP binding. Like rbac, absence
// becomes an explicit negative.
func brokerLDAP(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	url, ok := view.Get("ldap.java.naming.provider.url")
	if !ok {
		return broadcast(map[string]any{"ldap_enabled": false}), nil
	}
	vars := map[string]any{
		"ldap_enabled": true,
		"mds_ldap_url": url,
	}
	if principal, ok := view.Get("ldap.java.naming.security.principal"); ok {
		vars["mds_ldap_bind_dn"] = principal
	}
	if credentials, ok := view.Get("ldap.java.naming.security.credentials"); ok {
		vars["mds_ldap_bind_password"] = credentials
	}
	if base, ok := view.Get("ldap.user.search.base"); ok {
		vars["mds_ldap_user_search_base"] = base
	}
	if base, ok := view.Get("ldap.group.search.base"); ok {
		vars["mds_ldap_group_search_base"] = base
	}
	return broadcast(vars), nil
}

// brokerSSL reads the TLS material of the inter-broker listener; brokers
// keep their store configuration under the listener-name prefix.
func brokerSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	// Already marked by the inter-broker-listener rule.
	name := strings.ToLower(view.props["inter.broker.listener.name"])
	if name == "" {
		return emptyUpdate(), nil
	}
	prefix := "listener.name." + name + "."
	if !view.Has(prefix + "ssl.keystore.location") {
		view.Mark(prefix+"ssl.keystore.password", prefix+"ssl.key.password",
			prefix+"ssl.truststore.location", prefix+"ssl.truststore.password")
		return emptyUpdate(), nil
	}

	vars := tlsMaterial(rc, view, tlsKeys{
		KeystorePath:   prefix + "ssl.keystore.location",
		KeystorePass:   prefix + "ssl.keystore.password",
		KeyPass:        prefix + "ssl.key.password",
		TruststorePath: prefix + "ssl.truststore.location",
		TruststorePass: prefix + "ssl.truststore.password",
	})
	return scoped(domain.KafkaBroker.Group, vars), nil
}

// brokerMTLS publishes the broker's client-certificate requirement into its
// own group; dependent services inherit it from there.
func brokerMTLS(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	auth, ok := view.Get("ssl.client.auth")
	if !ok || auth != "required" {
		return emptyUpdate(), nil
	}
	return scoped(domain.KafkaBroker.Group, map[string]any{"ssl_mutual_auth_enabled": true}), nil
}
