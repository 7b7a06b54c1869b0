package domain

// Service describes one platform service type: the systemd unit it runs
// under, the inventory group its configuration maps to, and the packages
// that ship it. Descriptors are static; one instance exists per type.
type Service struct {
	Key      string
	Label    string
	Unit     string
	Group    string
	Packages []string
}

var (
	ZooKeeper = Service{
		Key:      "zookeeper",
		Label:    "ZooKeeper",
		Unit:     "confluent-zookeeper.service",
		Group:    "zookeeper",
		Packages: []string{"confluent-common"},
	}
	KafkaBroker = Service{
		Key:      "kafka_broker",
		Label:    "Kafka Broker",
		Unit:     "confluent-server.service",
		Group:    "kafka_broker",
		Packages: []string{"confluent-server", "confluent-rebalancer", "confluent-metadata-service"},
	}
	SchemaRegistry = Service{
		Key:      "schema_registry",
		Label:    "Schema Registry",
		Unit:     "confluent-schema-registry.service",
		Group:    "schema_registry",
		Packages: []string{"confluent-schema-registry", "confluent-schema-registry-plugins"},
	}
	KafkaRest = Service{
		Key:      "kafka_rest",
		Label:    "REST Proxy",
		Unit:     "confluent-kafka-rest.service",
		Group:    "kafka_rest",
		Packages: []string{"confluent-kafka-rest", "confluent-server-rest", "confluent-rest-utils"},
	}
	Ksql = Service{
		Key:      "ksql",
		Label:    "ksqlDB",
		Unit:     "confluent-ksqldb.service",
		Group:    "ksql",
		Packages: []string{"confluent-ksqldb"},
	}
	KafkaConnect = Service{
		Key:      "kafka_connect",
		Label:    "Kafka Connect",
		Unit:     "confluent-kafka-connect.service",
		Group:    "kafka_connect",
		Packages: []string{"confluent-hub-client"},
	}
	KafkaReplicator = Service{
		Key:      "kafka_connect_replicator",
		Label:    "Connect Replicator",
		Unit:     "kafka-connect-replicator.service",
		Group:    "kafka_connect_replicator",
		Packages: []string{"confluent-kafka-connect-replicator", "confluent-hub-client"},
	}
	ControlCenter = Service{
		Key:      "control_center",
		Label:    "Control Center",
		Unit:     "confluent-control-center.service",
		Group:    "control_center",
		Packages: []string{"confluent-control-center-fe", "confluent-control-center"},
	}
)

// Services lists every known descriptor in discovery order.
var Services = []Service{
	ZooKeeper,
	KafkaBroker,
	SchemaRegistry,
	KafkaRest,
	Ksql,
	KafkaConnect,
	KafkaReplicator,
	ControlCenter,
}

// ServiceByKey looks up a descriptor by its key.
func ServiceByKey(key string) (Service, bool) {
	for _, svc := range Services {
		if svc.Key == key {
			return svc, true
		}
	}
	return Service{}, false
}

// ServiceByUnit looks up a descriptor by its systemd unit name.
func ServiceByUnit(unit string) (Service, bool) {
	for _, svc := range Services {
		if svc.Unit == unit {
			return svc, true
		}
	}
	return Service{}, false
}
