package upstream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bogdanfinn/tls-client/profiles"
)

const defaultProfileName = "chrome_120"

var clientProfiles = map[string]profiles.ClientProfile{
	"chrome_120":  profiles.Chrome_120,
	"chrome_117":  profiles.Chrome_117,
	"firefox_117": profiles.Firefox_117,
	"safari_16_0": profiles.Safari_16_0,
}

// ProfileNames lists the supported client profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(clientProfiles))
	for name := range clientProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupProfile(name string) (profiles.ClientProfile, string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = defaultProfileName
	}
	profile, ok := clientProfiles[key]
	if !ok {
		return profiles.ClientProfile{}, "", fmt.Errorf("unknown client profile %q (supported: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return profile, key, nil
}
