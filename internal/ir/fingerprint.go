package ir

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint derives a stable finding ID from the rule, unit and site. The
// same defect at the same place always hashes to the same ID across runs.
func Fingerprint(ruleID, unit string, offset int) string {
	key := strings.Join([]string{ruleID, unit, strconv.Itoa(offset)}, "|")
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}
