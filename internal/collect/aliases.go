package collect

import (
	"context"
	"fmt"
	"strings"
)

// ListAliases lists the certificate aliases in a keystore or truststore on
// the first host that answers. A missing store, wrong password or absent
// keytool yields an empty list; alias resolution is best effort and must
// never fail the caller.
func (c *SSHCollector) ListAliases(ctx context.Context, hosts []string, storePath, storePass string) ([]string, error) {
	if storePath == "" || storePass == "" {
		return nil, nil
	}

	cmd := fmt.Sprintf("keytool -list -v -keystore %s -storepass %s 2>/dev/null | grep 'Alias name:'", storePath, storePass)
	for _, host := range hosts {
		out, err := c.run(ctx, host, cmd)
		if err != nil {
			continue
		}
		if aliases := parseAliasNames(out); len(aliases) > 0 {
			return aliases, nil
		}
		// The store exists but listed nothing; no other host will differ.
		return nil, nil
	}
	return nil, nil
}

func parseAliasNames(out string) []string {
	var aliases []string
	for _, line := range strings.Split(out, "\n") {
		_, name, found := strings.Cut(line, "Alias name:")
		if !found {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			aliases = append(aliases, name)
		}
	}
	return aliases
}
