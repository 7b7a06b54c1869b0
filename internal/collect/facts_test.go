package collect

import (
	"reflect"
	"testing"

	"invscout/internal/domain"
)

func TestParseExecStartFiles(t *testing.T) {
	tests := []struct {
		name      string
		execStart string
		want      map[string]string
	}{
		{
			name:      "single default file",
			execStart: `ExecStart={ path=/usr/bin/kafka-server-start ; argv[]=/usr/bin/kafka-server-start /etc/kafka/server.properties ; }`,
			want:      map[string]string{domain.DefaultVariant: "/etc/kafka/server.properties"},
		},
		{
			name: "flag named variants",
			execStart: `ExecStart={ path=/usr/bin/replicator ; argv[]=/usr/bin/replicator ` +
				`--consumer.config /etc/replicator/consumer.properties ` +
				`--producer.config /etc/replicator/producer.properties ` +
				`--cluster.id replicator ; }`,
			want: map[string]string{
				"consumer.config": "/etc/replicator/consumer.properties",
				"producer.config": "/etc/replicator/producer.properties",
			},
		},
		{
			name: "mixed default and named",
			execStart: `argv[]=/usr/bin/replicator /etc/replicator/replication.properties ` +
				`--consumer.monitoring.config /etc/replicator/consumer-monitoring.properties`,
			want: map[string]string{
				domain.DefaultVariant:        "/etc/replicator/replication.properties",
				"consumer.monitoring.config": "/etc/replicator/consumer-monitoring.properties",
			},
		},
		{
			name:      "no property files",
			execStart: `ExecStart={ path=/usr/bin/control-center ; argv[]=/usr/bin/control-center ; }`,
			want:      map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseExecStartFiles(tt.execStart); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseExecStartFiles() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseActiveUnits(t *testing.T) {
	out := `Id=confluent-zookeeper.service
ActiveState=active
UnitFileState=enabled

Id=confluent-server.service
ActiveState=inactive
UnitFileState=enabled

Id=confluent-schema-registry.service
ActiveState=active
UnitFileState=disabled

Id=confluent-ksqldb.service
ActiveState=active
UnitFileState=static`

	want := []string{"confluent-zookeeper.service", "confluent-ksqldb.service"}
	if got := parseActiveUnits(out); !reflect.DeepEqual(got, want) {
		t.Errorf("parseActiveUnits() = %v, want %v", got, want)
	}
}

func TestParseShowBlock(t *testing.T) {
	props := parseShowBlock("User=cp-kafka\nGroup=confluent\nEnvironment=LOG_DIR=/var/log/kafka")
	if props["User"] != "cp-kafka" || props["Group"] != "confluent" {
		t.Errorf("parseShowBlock() = %#v", props)
	}
	// Values containing '=' split on the first only.
	if props["Environment"] != "LOG_DIR=/var/log/kafka" {
		t.Errorf("Environment = %q", props["Environment"])
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "simple variables",
			raw:  `LOG_DIR=/var/log/kafka KAFKA_HEAP_OPTS=-Xmx4g`,
			want: map[string]string{"LOG_DIR": "/var/log/kafka", "KAFKA_HEAP_OPTS": "-Xmx4g"},
		},
		{
			name: "jvm flags stay attached to their variable",
			raw:  `KAFKA_HEAP_OPTS=-Xmx6g -Xms6g -XX:MetaspaceSize=96m LOG_DIR=/var/log/kafka`,
			want: map[string]string{
				"KAFKA_HEAP_OPTS": "-Xmx6g -Xms6g -XX:MetaspaceSize=96m",
				"LOG_DIR":         "/var/log/kafka",
			},
		},
		{
			name: "quoted values",
			raw:  `"KAFKA_OPTS=-Djava.security.auth.login.config=/etc/kafka/jaas.conf"`,
			want: map[string]string{"KAFKA_OPTS": "-Djava.security.auth.login.config=/etc/kafka/jaas.conf"},
		},
		{
			name: "empty",
			raw:  "",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseEnvironment(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseEnvironment() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseAliasNames(t *testing.T) {
	out := `Alias name: server-cert
Creation date: Jan 5, 2024
Entry type: PrivateKeyEntry
Alias name: backup-cert
Entry type: PrivateKeyEntry`

	want := []string{"server-cert", "backup-cert"}
	if got := parseAliasNames(out); !reflect.DeepEqual(got, want) {
		t.Errorf("parseAliasNames() = %v, want %v", got, want)
	}

	if got := parseAliasNames("keytool error: java.io.FileNotFoundException"); got != nil {
		t.Errorf("parseAliasNames() on error output = %v, want nil", got)
	}
}
