package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// secretKeys are blanked out entirely; urlKeys keep everything but the password
var (
	secretKeys = map[string]bool{"auth.jwt_secret": true}
	urlKeys    = map[string]bool{"database.url": true, "redis.url": true}
)

// Dump renders the effective settings of v as YAML with secrets masked,
// in the same layout habitnation.yml uses
func Dump(v *viper.Viper) ([]byte, error) {
	out, err := yaml.Marshal(printable("", v.AllSettings()))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

func printable(path string, value any) any {
	switch val := value.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, child := range val {
			key := k
			if path != "" {
				key = path + "." + k
			}
			m[k] = printable(key, child)
		}
		return m
	case time.Duration:
		return val.String()
	case string:
		switch {
		case val == "":
			return val
		case secretKeys[path]:
			return redacted
		case urlKeys[path]:
			if u, err := url.Parse(val); err == nil {
				return u.Redacted()
			}
			return redacted
		}
	}
	return value
}
