package builder

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"invscout/internal/domain"
)

func TestParseListener(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    listener
		wantErr bool
	}{
		{
			name: "https with hostname and port",
			raw:  "https://broker1:9021",
			want: listener{Scheme: "https", Hostname: "broker1", Port: 9021},
		},
		{
			name: "http wildcard host",
			raw:  "http://:8090",
			want: listener{Scheme: "http", Hostname: "", Port: 8090},
		},
		{
			name: "kafka listener scheme",
			raw:  "INTERNAL://0.0.0.0:9092",
			want: listener{Scheme: "internal", Hostname: "0.0.0.0", Port: 9092},
		},
		{
			name:    "garbage port",
			raw:     "https://broker1:port",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListener("listeners", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseListener() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var malformed *domain.MalformedPropertyError
				if !errors.As(err, &malformed) {
					t.Fatalf("error type = %T, want MalformedPropertyError", err)
				}
				return
			}
			// url.Parse lowercases the scheme.
			if got.Scheme != tt.want.Scheme || got.Hostname != tt.want.Hostname || got.Port != tt.want.Port {
				t.Errorf("parseListener() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPropertyViewMarking(t *testing.T) {
	view := NewPropertyView(domain.Properties{"present": "yes"})

	if _, ok := view.Get("present"); !ok {
		t.Error("Get(present) reported absent")
	}
	if _, ok := view.Get("absent"); ok {
		t.Error("Get(absent) reported present")
	}
	if view.Has("also-absent") {
		t.Error("Has(also-absent) reported present")
	}
	view.Mark("sibling.a", "sibling.b")

	mapped := view.Mapped()
	for _, key := range []string{"present", "absent", "also-absent", "sibling.a", "sibling.b"} {
		if !mapped[key] {
			t.Errorf("key %s not in mapped set", key)
		}
	}
}

func TestParseJaasUsers(t *testing.T) {
	config := `org.apache.kafka.common.security.scram.ScramLoginModule required ` +
		`username="admin" password="admin-secret" user_admin="admin-secret" user_client="client-secret";`

	users := parseJaasUsers(config)
	want := map[string]jaasUser{
		"admin":  {Principal: "admin", Password: "admin-secret"},
		"client": {Principal: "client", Password: "client-secret"},
	}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("parseJaasUsers() = %#v, want %#v", users, want)
	}
}

func TestParseJaasValues(t *testing.T) {
	config := `com.sun.security.auth.module.Krb5LoginModule required useKeyTab=true ` +
		`keyTab="/etc/security/keytabs/replicator.keytab" principal="replicator@REALM";`

	values := parseJaasValues(config)
	if values["keyTab"] != "/etc/security/keytabs/replicator.keytab" {
		t.Errorf("keyTab = %q", values["keyTab"])
	}
	if values["principal"] != "replicator@REALM" {
		t.Errorf("principal = %q", values["principal"])
	}
}

func testRuleContext(svc domain.Service, props domain.Properties, aliases map[string][]string) *RuleContext {
	mapped := make(map[string]bool)
	rc := &RuleContext{
		Ctx:       context.Background(),
		Service:   svc,
		Hosts:     []string{"host1"},
		Aliases:   &fakeAliases{aliases: aliases},
		Inventory: domain.NewInventory(),
		views:     make(map[string]*PropertyView),
		mapped:    mapped,
	}
	rc.views[domain.DefaultVariant] = &PropertyView{props: props, mapped: mapped}
	return rc
}

func TestTLSMaterial(t *testing.T) {
	props := domain.Properties{
		"ssl.keystore.location":   "/etc/ssl/keystore.jks",
		"ssl.keystore.password":   "kspass",
		"ssl.key.password":        "keypass",
		"ssl.truststore.location": "/etc/ssl/truststore.jks",
		"ssl.truststore.password": "tspass",
	}
	keys := tlsKeys{
		KeystorePath:   "ssl.keystore.location",
		KeystorePass:   "ssl.keystore.password",
		KeyPass:        "ssl.key.password",
		TruststorePath: "ssl.truststore.location",
		TruststorePass: "ssl.truststore.password",
	}

	t.Run("aliases resolved", func(t *testing.T) {
		rc := testRuleContext(domain.Ksql, props, map[string][]string{
			"/etc/ssl/keystore.jks":   {"server-cert", "backup-cert"},
			"/etc/ssl/truststore.jks": {"ca-root"},
		})
		vars := tlsMaterial(rc, rc.Variant(domain.DefaultVariant), keys)

		checks := map[string]any{
			"ssl_enabled":                  true,
			"ssl_keystore_filepath":        "/etc/ssl/keystore.jks",
			"ssl_keystore_store_password":  "kspass",
			"ssl_keystore_key_password":    "keypass",
			"ssl_keystore_alias":           "server-cert",
			"ssl_truststore_filepath":      "/etc/ssl/truststore.jks",
			"ssl_truststore_password":      "tspass",
			"ssl_truststore_ca_cert_alias": "ca-root",
		}
		for key, want := range checks {
			if got := vars[key]; got != want {
				t.Errorf("%s = %v, want %v", key, got, want)
			}
		}
	})

	t.Run("no aliases", func(t *testing.T) {
		rc := testRuleContext(domain.Ksql, props, nil)
		vars := tlsMaterial(rc, rc.Variant(domain.DefaultVariant), keys)

		// Keystore alias is omitted; the truststore keeps the absence marker.
		if _, ok := vars["ssl_keystore_alias"]; ok {
			t.Error("ssl_keystore_alias emitted for an empty keystore")
		}
		if got, ok := vars["ssl_truststore_ca_cert_alias"]; !ok || got != "" {
			t.Errorf("ssl_truststore_ca_cert_alias = %v, %v; want empty marker", got, ok)
		}
	})

	t.Run("store keys marked", func(t *testing.T) {
		rc := testRuleContext(domain.Ksql, props, nil)
		view := rc.Variant(domain.DefaultVariant)
		tlsMaterial(rc, view, keys)

		for key := range props {
			if !view.Mapped()[key] {
				t.Errorf("store key %s not marked", key)
			}
		}
	})
}
