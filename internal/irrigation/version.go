package irrigation

import (
	"fmt"

	"github.com/blang/semver"
)

const versionDevelopment = "development"

var IRRIGATION_VERSION = versionDevelopment

// Tests if two version strings are compatible.
func VersionAreCompatible(a, b string) (bool, error) {
	if a == versionDevelopment || b == versionDevelopment {
		return true, nil
	}
	av, err := semver.ParseTolerant(a)
	if err != nil {
		return false, fmt.Errorf("Invalid version '%s': %s", a, err)
	}
	bv, err := semver.ParseTolerant(b)
	if err != nil {
		return false, fmt.Errorf("Invalid version '%s': %s", b, err)
	}
	if av.Major == 0 {
		return bv.Major == 0 && av.Minor == bv.Minor, nil
	}
	return av.Major == bv.Major, nil
}

// CheckClientVersion returns an error when a client announcing version
// client cannot drive a bridge running IRRIGATION_VERSION. Clients that do
// not announce a version are accepted.
func CheckClientVersion(client string) error {
	if len(client) == 0 {
		return nil
	}
	compatible, err := VersionAreCompatible(IRRIGATION_VERSION, client)
	if err != nil {
		return err
	}
	if compatible == false {
		return fmt.Errorf("client version (%s) is incompatible with service version (%s)", client, IRRIGATION_VERSION)
	}
	return nil
}
