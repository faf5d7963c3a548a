package tzconvert

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimezone is reported when no local timezone can be resolved.
const DefaultTimezone = "UTC"

const localtimePath = "/etc/localtime"

// DetectLocal resolves the IANA name of the environment's timezone.
//
// Order: the TZ variable, the /etc/localtime symlink target, then the name Go
// loaded for time.Local. Falls back to DefaultTimezone.
func DetectLocal() string {
	return detectLocal(os.LookupEnv, os.Readlink, time.Local)
}

func detectLocal(lookupEnv func(string) (string, bool), readlink func(string) (string, error), local *time.Location) string {
	if tz, found := lookupEnv("TZ"); found {
		// TZ set but empty means UTC.
		if tz == "" {
			return DefaultTimezone
		}
		tz = strings.TrimPrefix(tz, ":")
		if filepath.IsAbs(tz) {
			if name := zoneFromPath(tz); name != "" {
				return name
			}
		} else if tz != "" {
			return tz
		}
	}

	if target, err := readlink(localtimePath); err == nil {
		if name := zoneFromPath(target); name != "" {
			return name
		}
	}

	if local != nil {
		if name := local.String(); name != "" && name != "Local" {
			return name
		}
	}

	return DefaultTimezone
}

// zoneFromPath extracts "Area/City" from a zoneinfo file path such as
// /usr/share/zoneinfo/Europe/Berlin.
func zoneFromPath(path string) string {
	path = filepath.ToSlash(path)
	const marker = "zoneinfo/"
	idx := strings.LastIndex(path, marker)
	if idx < 0 {
		return ""
	}
	name := path[idx+len(marker):]
	// Distro layouts that keep posix/ and right/ variants.
	name = strings.TrimPrefix(name, "posix/")
	name = strings.TrimPrefix(name, "right/")
	return name
}
