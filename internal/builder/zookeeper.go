package builder

import (
	"invscout/internal/domain"
)

// NewZookeeperBuilder returns the version-agnostic ZooKeeper rule set.
func NewZookeeperBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service: domain.ZooKeeper,
		Rules: []Rule{
			{Name: "client-port", Apply: zookeeperClientPort},
			{Name: "ssl", Apply: zookeeperSSL},
			{Name: "mtls", Apply: zookeeperMTLS},
		},
	}
}

func zookeeperClientPort(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	port, ok, err := intProperty(view, "clientPort")
	if err != nil {
		return domain.Update{}, err
	}
	if !ok {
		return emptyUpdate(), nil
	}
	return broadcast(map[string]any{"zookeeper_client_port": port}), nil
}

// zookeeperSSL gates on the secure client port. The five store keys are
// marked even when TLS is off so they never leak into custom properties.
func zookeeperSSL(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	if !view.Has("secureClientPort") {
		view.Mark("ssl.keyStore.location", "ssl.keyStore.password",
			"ssl.trustStore.location", "ssl.trustStore.password")
		return emptyUpdate(), nil
	}

	vars := tlsMaterial(rc, view, tlsKeys{
		KeystorePath:   "ssl.keyStore.location",
		KeystorePass:   "ssl.keyStore.password",
		TruststorePath: "ssl.trustStore.location",
		TruststorePass: "ssl.trustStore.password",
	})
	return scoped(domain.ZooKeeper.Group, vars), nil
}

func zookeeperMTLS(rc *RuleContext, view *PropertyView) (domain.Update, error) {
	auth, ok := view.Get("ssl.clientAuth")
	if !ok || auth != "need" {
		return emptyUpdate(), nil
	}
	return scoped(domain.ZooKeeper.Group, map[string]any{"ssl_mutual_auth_enabled": true}), nil
}
