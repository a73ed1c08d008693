// Package snapshot archives rendered pages whose availability label could not
// be found, so selector drift can be diagnosed after the fact.
package snapshot

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// ObjectPath names the archive object for one poll cycle.
// Layout: <prefix>/<yyyy>/<mm>/<dd>/<cycleID>-<hash12>.html
func ObjectPath(prefix string, at time.Time, cycleID, hash string) string {
	if len(hash) > 12 {
		hash = hash[:12]
	}
	at = at.UTC()
	name := cycleID
	if hash != "" {
		name += "-" + hash
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%04d/%02d/%02d", at.Year(), at.Month(), at.Day()),
		name+".html",
	)
}
