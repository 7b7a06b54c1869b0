package builder

import (
	"net/url"
	"strconv"
	"strings"

	"invscout/internal/domain"
)

// listener is the parsed shape of a URI-valued listener property.
type listener struct {
	Scheme   string
	Hostname string
	Port     int
}

// parseListener parses a single listener URI such as https://broker1:9021.
func parseListener(key, raw string) (listener, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return listener{}, &domain.MalformedPropertyError{Key: key, Value: raw, Err: err}
	}
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return listener{}, &domain.MalformedPropertyError{Key: key, Value: raw, Err: err}
		}
	}
	return listener{Scheme: u.Scheme, Hostname: u.Hostname(), Port: port}, nil
}

// intProperty reads and converts a numeric raw property. The key is marked
// either way.
func intProperty(view *PropertyView, key string) (int, bool, error) {
	raw, ok := view.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &domain.MalformedPropertyError{Key: key, Value: raw, Err: err}
	}
	return n, true, nil
}

// tlsKeys names the five related raw keys of one TLS material block.
type tlsKeys struct {
	KeystorePath   string
	KeystorePass   string
	KeyPass        string
	TruststorePath string
	TruststorePass string
}

// tlsMaterial marks all five store keys and assembles the normalized SSL
// properties, resolving a deterministic default alias for each store that
// is present. The keystore alias is omitted when the store has no aliases;
// the truststore CA alias keeps its empty-string absence marker.
func tlsMaterial(rc *RuleContext, view *PropertyView, keys tlsKeys) map[string]any {
	for _, key := range []string{keys.KeystorePath, keys.KeystorePass, keys.KeyPass, keys.TruststorePath, keys.TruststorePass} {
		if key != "" {
			view.Mark(key)
		}
	}

	vars := map[string]any{
		"ssl_enabled":                                     true,
		"ssl_provided_keystore_and_truststore":            true,
		"ssl_provided_keystore_and_truststore_remote_src": true,
	}

	keystorePath := view.props[keys.KeystorePath]
	keystorePass := view.props[keys.KeystorePass]
	if keystorePath != "" {
		vars["ssl_keystore_filepath"] = keystorePath
		vars["ssl_keystore_store_password"] = keystorePass
		if keyPass, ok := view.props[keys.KeyPass]; ok {
			vars["ssl_keystore_key_password"] = keyPass
		}
		if aliases, err := rc.Aliases.ListAliases(rc.Ctx, rc.Hosts, keystorePath, keystorePass); err == nil && len(aliases) > 0 {
			vars["ssl_keystore_alias"] = aliases[0]
		}
	}

	truststorePath := view.props[keys.TruststorePath]
	truststorePass := view.props[keys.TruststorePass]
	if truststorePath != "" {
		vars["ssl_truststore_filepath"] = truststorePath
		vars["ssl_truststore_password"] = truststorePass
		vars["ssl_truststore_ca_cert_alias"] = ""
		if aliases, err := rc.Aliases.ListAliases(rc.Ctx, rc.Hosts, truststorePath, truststorePass); err == nil && len(aliases) > 0 {
			vars["ssl_truststore_ca_cert_alias"] = aliases[0]
		}
	}

	return vars
}

// parseJaasValues extracts key=value pairs from a JAAS configuration line,
// stripping quotes and the trailing semicolon.
func parseJaasValues(config string) map[string]string {
	values := make(map[string]string)
	for _, token := range strings.Fields(config) {
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		values[key] = strings.Trim(strings.TrimSuffix(value, ";"), "\"")
	}
	return values
}

// jaasUser holds one principal extracted from a JAAS configuration.
type jaasUser struct {
	Principal string `json:"principal" yaml:"principal"`
	Password  string `json:"password" yaml:"password"`
}

// parseJaasUsers extracts the user_<principal>=<password> entries of a JAAS
// configuration line.
func parseJaasUsers(config string) map[string]jaasUser {
	users := make(map[string]jaasUser)
	for key, value := range parseJaasValues(config) {
		if !strings.HasPrefix(key, "user_") {
			continue
		}
		principal := strings.TrimPrefix(key, "user_")
		users[principal] = jaasUser{Principal: principal, Password: value}
	}
	return users
}

// groupVarBool reads a boolean normalized property from another service's
// inventory section.
func groupVarBool(inv InventoryReader, group, key string) bool {
	v, ok := inv.GroupVar(group, key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// scoped is shorthand for an update aimed at one group.
func scoped(group string, vars map[string]any) domain.Update {
	return domain.Update{Scope: group, Vars: vars}
}

// broadcast is shorthand for an update aimed at every existing group.
func broadcast(vars map[string]any) domain.Update {
	return domain.Update{Scope: domain.ScopeAll, Vars: vars}
}
