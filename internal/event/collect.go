package event

import "strings"

// EnvMarkers select the monitoring environment variables copied into a payload.
var EnvMarkers = []string{"ICINGA_", "NOTIFY_"}

// Contact pager fields that may carry the API key, in lookup order.
var pagerKeys = []string{"ICINGA_CONTACTPAGER", "CONTACTPAGER"}

// Collect assembles the payload of one notification: the plugin version,
// then matching environment variables, then key=value arguments.
// Later sources override earlier ones.
func Collect(version string, environ, args []string) (p Payload, skipped []string) {
	p.Set("PLUGIN_VERSION", version)
	p.AddEnviron(environ, EnvMarkers...)
	skipped = p.AddArgs(args)
	return p, skipped
}

// ResolveAPIKey picks the explicit key if set, otherwise the contact pager
// field of the payload.
func ResolveAPIKey(explicit string, p Payload) (string, error) {
	if k := strings.TrimSpace(explicit); k != "" {
		return k, nil
	}
	for _, name := range pagerKeys {
		if v, ok := p.Get(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", ErrNoAPIKey
}
