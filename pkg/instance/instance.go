package instance

import "os"

// ID identifies this process in logs. It prefers an explicit id, then the
// platform dyno name, then the hostname.
func ID() string {
	for _, key := range []string{"STOREFRONT_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
