package updateinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// typeIDs maps advisory prefixes to the digit embedded in AdvisoryID.
// Unknown prefixes get len(typeIDs).
var typeIDs = map[string]int{"RHSA": 0, "RHBA": 1, "RHEA": 2}

func charToDigits(c rune) string {
	if c >= '0' && c <= '9' {
		return "0" + string(c)
	}
	return strconv.Itoa(int(c-'a') + 10)
}

// GenID derives an integer id from values: the first 8 hex chars of the
// sha256 of the space joined values, each char written as two decimal
// digits.
func GenID(values ...string) int64 {
	sum := sha256.Sum256([]byte(strings.Join(values, " ")))
	digest := hex.EncodeToString(sum[:])[:8]

	var sb strings.Builder
	for _, c := range digest {
		sb.WriteString(charToDigits(c))
	}

	// 16 digits of at most "15" each always fit an int64.
	n, _ := strconv.ParseInt(sb.String(), 10, 64)
	return n
}

// AdvisoryID converts TYPE-YEAR:SEQ advisories to an integer, e.g.
// RHBA-2016:2423 -> 1010201624230. Other advisory shapes fall back to
// GenID of the advisory.
func AdvisoryID(advisory string) int64 {
	utype, serial, ok := strings.Cut(advisory, "-")
	if !ok {
		return GenID(advisory)
	}
	year, seq, ok := strings.Cut(serial, ":")
	if !ok || !isDigits(year) || !isDigits(seq) {
		return GenID(advisory)
	}

	tid, known := typeIDs[utype]
	if !known {
		tid = len(typeIDs)
	}

	n, err := strconv.ParseInt(fmt.Sprintf("10%d0%s%s0", tid, year, seq), 10, 64)
	if err != nil {
		return GenID(advisory)
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
