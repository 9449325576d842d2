package schema

import "sort"

// Namespace is the logical grouping a key belongs to.
type Namespace string

const (
	// Settings are durable, rarely changed values written before the
	// service first starts.
	Settings Namespace = "settings"
	// Secrets are durable and sensitive. They only ever hold digests.
	Secrets Namespace = "secrets"
	// ProcessState is rewritten on every service start and stop.
	ProcessState Namespace = "process"
)

// Known keys.
const (
	KeyUsername     = "ftp_username"
	KeyLocalRoot    = "ftp_local_root"
	KeyTLSCert      = "tls_cert"
	KeyPort         = "ftp_port"
	KeyPassivePorts = "ftp_passive_ports"
	KeyPassword     = "ftp_password"
	KeyPID          = "ftp_pid"
	KeyRunning      = "ftp_running"
)

// namespaces is fixed at compile time; membership never changes at runtime.
var namespaces = map[string]Namespace{
	KeyUsername:     Settings,
	KeyLocalRoot:    Settings,
	KeyTLSCert:      Settings,
	KeyPort:         Settings,
	KeyPassivePorts: Settings,
	KeyPassword:     Secrets,
	KeyPID:          ProcessState,
	KeyRunning:      ProcessState,
}

// settingDefaults are applied by ApplyDefaults and returned by Setting
// when a key is absent.
var settingDefaults = map[string]string{
	KeyPort: "21",
}

// NamespaceOf returns the namespace of a known key. Unknown keys are legal
// in the store but belong to no namespace.
func NamespaceOf(key string) (Namespace, bool) {
	ns, ok := namespaces[key]
	return ns, ok
}

// Keys returns the known keys of ns in sorted order.
func Keys(ns Namespace) []string {
	var keys []string
	for k, v := range namespaces {
		if v == ns {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// DefaultValues returns a copy of the setting defaults.
func DefaultValues() map[string]string {
	out := make(map[string]string, len(settingDefaults))
	for k, v := range settingDefaults {
		out[k] = v
	}
	return out
}
