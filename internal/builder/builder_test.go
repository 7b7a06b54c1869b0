package builder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"invscout/internal/domain"
)

// fakeCollector serves canned facts for builder tests.
type fakeCollector struct {
	serviceHosts map[string][]string
	tables       map[string]domain.HostProperties
	facts        domain.DaemonFacts
	factsErr     error
	runtimeArgs  string
	collectErr   error
}

func (f *fakeCollector) ServiceHosts(ctx context.Context) (map[string][]string, error) {
	return f.serviceHosts, nil
}

func (f *fakeCollector) Collect(ctx context.Context, svc domain.Service, hosts []string) (domain.HostProperties, error) {
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	return f.tables[svc.Key], nil
}

func (f *fakeCollector) UserGroup(ctx context.Context, svc domain.Service, host string) (domain.DaemonFacts, error) {
	if f.factsErr != nil {
		return domain.DaemonFacts{}, f.factsErr
	}
	return f.facts, nil
}

func (f *fakeCollector) RuntimeArgs(ctx context.Context, svc domain.Service, host string) (string, error) {
	return f.runtimeArgs, nil
}

// fakeAliases maps store path to alias list.
type fakeAliases struct {
	aliases map[string][]string
}

func (f *fakeAliases) ListAliases(ctx context.Context, hosts []string, storePath, storePass string) ([]string, error) {
	return f.aliases[storePath], nil
}

func testDeps(t *testing.T, svc domain.Service, hosts []string, table domain.HostProperties) (Deps, *fakeCollector) {
	t.Helper()
	inv := domain.NewInventory()
	for _, h := range hosts {
		inv.AddHost(svc.Group, h)
	}
	fc := &fakeCollector{
		tables: map[string]domain.HostProperties{svc.Key: table},
		facts:  domain.DaemonFacts{User: "cp-svc", Group: "confluent", LogDir: "/var/log/cp"},
	}
	return Deps{Collector: fc, Aliases: &fakeAliases{}, Inventory: inv}, fc
}

// updateVar finds a key across a result's updates and returns its value.
func updateVar(result *Result, key string) (any, bool) {
	for _, u := range result.Updates {
		if v, ok := u.Vars[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func hostCustom(t *testing.T, result *Result, host, key string) map[string]string {
	t.Helper()
	for _, hu := range result.HostUpdates {
		if hu.Host != host {
			continue
		}
		if v, ok := hu.Vars[key]; ok {
			custom, ok := v.(map[string]string)
			if !ok {
				t.Fatalf("override %s is %T, want map[string]string", key, v)
			}
			return custom
		}
	}
	return nil
}

func TestBuildZeroHosts(t *testing.T) {
	deps, _ := testDeps(t, domain.Ksql, nil, nil)

	_, err := NewKsqlBuilder().Build(context.Background(), deps)

	var noHosts *domain.NoHostsFoundError
	if !errors.As(err, &noHosts) {
		t.Fatalf("Build() error = %v, want NoHostsFoundError", err)
	}
	if noHosts.Service != domain.Ksql.Key {
		t.Errorf("NoHostsFoundError.Service = %s, want %s", noHosts.Service, domain.Ksql.Key)
	}
}

func TestBuildNoReachableHosts(t *testing.T) {
	// Hosts are registered but the collector reached none of them.
	deps, _ := testDeps(t, domain.Ksql, []string{"ksql1"}, domain.HostProperties{})

	_, err := NewKsqlBuilder().Build(context.Background(), deps)

	var noHosts *domain.NoHostsFoundError
	if !errors.As(err, &noHosts) {
		t.Fatalf("Build() error = %v, want NoHostsFoundError", err)
	}
}

func TestBuildCustomPropertiesDiff(t *testing.T) {
	table := domain.HostProperties{
		"ksql1": domain.VariantSet{domain.DefaultVariant: domain.Properties{
			"ksql.service.id":   "cluster1",
			"skipped.key":       "x",
			"vendor.extra.knob": "42",
		}},
	}
	deps, _ := testDeps(t, domain.Ksql, []string{"ksql1"}, table)

	b := NewKsqlBuilder()
	b.Skip = map[string]bool{"skipped.key": true}
	result, err := b.Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	custom := hostCustom(t, result, "ksql1", "ksql_custom_properties")
	if custom == nil {
		t.Fatal("no custom properties override emitted")
	}
	if _, ok := custom["ksql.service.id"]; ok {
		t.Error("mapped key leaked into custom properties")
	}
	if _, ok := custom["skipped.key"]; ok {
		t.Error("skip-listed key leaked into custom properties")
	}
	if custom["vendor.extra.knob"] != "42" {
		t.Errorf("unmapped key not passed through verbatim: %#v", custom)
	}
}

// A key the rules consumed on the canonical host must stay out of every
// host's custom properties, including hosts where the canonical rules never
// looked.
func TestBuildMappedSetSharedAcrossHosts(t *testing.T) {
	table := domain.HostProperties{
		"ksql1": domain.VariantSet{domain.DefaultVariant: domain.Properties{
			"ksql.service.id": "cluster1",
		}},
		"ksql2": domain.VariantSet{domain.DefaultVariant: domain.Properties{
			"ksql.service.id": "cluster1",
			"local.drift":     "yes",
		}},
	}
	deps, _ := testDeps(t, domain.Ksql, []string{"ksql1", "ksql2"}, table)

	result, err := NewKsqlBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	custom := hostCustom(t, result, "ksql2", "ksql_custom_properties")
	if _, ok := custom["ksql.service.id"]; ok {
		t.Error("mapped key surfaced as custom property on a non-canonical host")
	}
	if custom["local.drift"] != "yes" {
		t.Errorf("host drift not preserved: %#v", custom)
	}
}

func TestBuildDaemonProperties(t *testing.T) {
	table := domain.HostProperties{
		"ksql1": domain.VariantSet{domain.DefaultVariant: domain.Properties{}},
	}
	deps, _ := testDeps(t, domain.Ksql, []string{"ksql1"}, table)

	result, err := NewKsqlBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	checks := map[string]string{
		"ksql_user":    "cp-svc",
		"ksql_group":   "confluent",
		"ksql_log_dir": "/var/log/cp",
	}
	for key, want := range checks {
		if got, ok := updateVar(result, key); !ok || got != want {
			t.Errorf("%s = %v, %v; want %s", key, got, ok, want)
		}
	}
}

func TestBuildDaemonFactsFailureIsNotFatal(t *testing.T) {
	table := domain.HostProperties{
		"ksql1": domain.VariantSet{domain.DefaultVariant: domain.Properties{
			"ksql.service.id": "cluster1",
		}},
	}
	deps, fc := testDeps(t, domain.Ksql, []string{"ksql1"}, table)
	fc.factsErr = fmt.Errorf("systemctl unavailable")

	result, err := NewKsqlBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, ok := updateVar(result, "ksql_service_id"); !ok || got != "cluster1" {
		t.Errorf("rules did not run after daemon facts failure: %v, %v", got, ok)
	}
}

func TestBuildRuntimeProperties(t *testing.T) {
	table := domain.HostProperties{
		"ksql1": domain.VariantSet{domain.DefaultVariant: domain.Properties{}},
	}
	deps, fc := testDeps(t, domain.Ksql, []string{"ksql1"}, table)
	fc.runtimeArgs = "-Xmx4g -Xms4g"

	result, err := NewKsqlBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, ok := updateVar(result, "ksql_custom_java_args"); !ok || got != "-Xmx4g -Xms4g" {
		t.Errorf("ksql_custom_java_args = %v, %v; want -Xmx4g -Xms4g", got, ok)
	}
}

// A malformed mandatory property disables its rule only; sibling rules still
// contribute.
func TestBuildRuleFailureIsolation(t *testing.T) {
	table := domain.HostProperties{
		"zk1": domain.VariantSet{domain.DefaultVariant: domain.Properties{
			"clientPort":     "not-a-number",
			"ssl.clientAuth": "need",
		}},
	}
	deps, _ := testDeps(t, domain.ZooKeeper, []string{"zk1"}, table)

	result, err := NewZookeeperBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, ok := updateVar(result, "zookeeper_client_port"); ok {
		t.Error("malformed client port still emitted a value")
	}
	if got, ok := updateVar(result, "ssl_mutual_auth_enabled"); !ok || got != true {
		t.Errorf("later rule did not run after a malformed sibling: %v, %v", got, ok)
	}
	// The malformed key was still consumed.
	custom := hostCustom(t, result, "zk1", "zookeeper_custom_properties")
	if _, ok := custom["clientPort"]; ok {
		t.Error("malformed key leaked into custom properties")
	}
}

func TestCustomKeyNaming(t *testing.T) {
	plain := &ServiceBuilder{Service: domain.KafkaConnect}
	replicator := NewReplicatorBuilder()

	tests := []struct {
		name    string
		b       *ServiceBuilder
		variant string
		want    string
	}{
		{"default variant", plain, domain.DefaultVariant, "kafka_connect_custom_properties"},
		{"named variant", plain, "consumer.config", "kafka_connect_consumer_custom_properties"},
		{"replicator canonical", replicator, "replication.config", "kafka_connect_replicator_custom_properties"},
		{"replicator consumer", replicator, "consumer.config", "kafka_connect_replicator_consumer_custom_properties"},
		{"replicator consumer monitoring", replicator, "consumer.monitoring.config", "kafka_connect_replicator_monitoring_interceptor_custom_properties"},
		{"replicator producer monitoring", replicator, "producer.monitoring.config", "kafka_connect_replicator_monitoring_interceptor_custom_properties"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.customKey(tt.variant); got != tt.want {
				t.Errorf("customKey(%s) = %s, want %s", tt.variant, got, tt.want)
			}
		})
	}
}

// Both monitoring variants share one custom group; their keys merge.
func TestBuildReplicatorMonitoringCustomMerge(t *testing.T) {
	table := domain.HostProperties{
		"rep1": domain.VariantSet{
			"replication.config": domain.Properties{
				"topic.whitelist": "orders",
			},
			"consumer.monitoring.config": domain.Properties{
				"consumer.interceptor.classes": "io.confluent.MonitoringConsumerInterceptor",
			},
			"producer.monitoring.config": domain.Properties{
				"producer.interceptor.classes": "io.confluent.MonitoringProducerInterceptor",
			},
		},
	}
	deps, _ := testDeps(t, domain.KafkaReplicator, []string{"rep1"}, table)

	result, err := NewReplicatorBuilder().Build(context.Background(), deps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	custom := hostCustom(t, result, "rep1", "kafka_connect_replicator_monitoring_interceptor_custom_properties")
	if custom == nil {
		t.Fatal("no merged monitoring custom group emitted")
	}
	if custom["consumer.interceptor.classes"] == "" || custom["producer.interceptor.classes"] == "" {
		t.Errorf("monitoring variants not merged into one group: %#v", custom)
	}

	if got, ok := updateVar(result, "kafka_connect_replicator_white_list"); !ok || got != "orders" {
		t.Errorf("kafka_connect_replicator_white_list = %v, %v; want orders", got, ok)
	}
}
