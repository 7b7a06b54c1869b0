package domain

import (
	"reflect"
	"testing"
)

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Properties
	}{
		{
			name: "basic",
			input: `broker.id=1
listeners=PLAINTEXT://broker1:9092
log.dirs=/var/lib/kafka/data`,
			want: Properties{
				"broker.id": "1",
				"listeners": "PLAINTEXT://broker1:9092",
				"log.dirs":  "/var/lib/kafka/data",
			},
		},
		{
			name: "comments and blanks",
			input: `# maintained by provisioning
broker.id=1

# listener block
listeners=PLAINTEXT://:9092`,
			want: Properties{
				"broker.id": "1",
				"listeners": "PLAINTEXT://:9092",
			},
		},
		{
			name:  "value containing equals splits on first",
			input: `sasl.jaas.config=org.apache.kafka.common.security.plain.PlainLoginModule required username="admin";`,
			want: Properties{
				"sasl.jaas.config": `org.apache.kafka.common.security.plain.PlainLoginModule required username="admin";`,
			},
		},
		{
			name:  "quoted value trimmed",
			input: `confluent.license="abc123"`,
			want:  Properties{"confluent.license": "abc123"},
		},
		{
			name:  "malformed lines dropped",
			input: "not a property line\nbroker.id=2",
			want:  Properties{"broker.id": "2"},
		},
		{
			name:  "empty",
			input: "",
			want:  Properties{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseProperties(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseProperties() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestHostPropertiesVariantLookup(t *testing.T) {
	hp := HostProperties{
		"host1": VariantSet{
			DefaultVariant:    Properties{"a": "1"},
			"consumer.config": Properties{"b": "2"},
		},
	}

	if got := hp.Default("host1"); got["a"] != "1" {
		t.Errorf("Default(host1) = %v", got)
	}
	if got := hp.Variant("host1", "consumer.config"); got["b"] != "2" {
		t.Errorf("Variant(host1, consumer.config) = %v", got)
	}
	if got := hp.Default("missing"); got != nil {
		t.Errorf("Default(missing) = %v, want nil", got)
	}
	if got := hp.Variant("host1", "missing"); got != nil {
		t.Errorf("Variant(host1, missing) = %v, want nil", got)
	}
}
