// Package tstime maps nanosecond timestamps to partition buckets using a
// strftime-like format string, mirroring the original tickdb's
// util::time module.
package tstime

import (
	"math"
	"time"

	"github.com/ncruces/go-strftime"
)

// NanosInSec is 1e9, the number of nanoseconds in a second.
const NanosInSec int64 = 1_000_000_000

var (
	secondFmts = []string{"%S", "%X", "%T", "%r"}
	minuteFmts = []string{"%M", "%R", "%c"}
	hourFmts   = []string{"%H", "%I"}
	dayFmts    = []string{"%j", "%d", "%e", "%x", "%a", "%A", "%u", "%w", "%D", "%F"}
	weekFmts   = []string{"%V", "%U", "%W"}
	monthFmts  = []string{"%b", "%h", "%B", "%m"}
	yearFmts   = []string{"%C", "%g", "%G", "%y", "%Y"}

	daysInMonth = [12]int64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

func containsAny(fmtStr string, specifiers []string) bool {
	for _, s := range specifiers {
		if contains(fmtStr, s) {
			return true
		}
	}
	return false
}

func contains(haystack, needle string) bool {
	return len(needle) > 0 && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

func isLeap(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

// highestResSpecifier returns the bucket width, in nanoseconds, of the
// finest time unit specifier present in fmtStr, evaluated against t to
// resolve variable-width units (month length, leap years). A format with
// none of the recognized specifiers (including the empty format) returns 0.
func highestResSpecifier(fmtStr string, t time.Time) int64 {
	switch {
	case containsAny(fmtStr, secondFmts):
		return NanosInSec
	case containsAny(fmtStr, minuteFmts):
		return 60 * NanosInSec
	case containsAny(fmtStr, hourFmts):
		return 60 * 60 * NanosInSec
	case contains(fmtStr, "%p"):
		return 12 * 60 * 60 * NanosInSec
	case containsAny(fmtStr, dayFmts):
		return 24 * 60 * 60 * NanosInSec
	case containsAny(fmtStr, weekFmts):
		return 7 * 24 * 60 * 60 * NanosInSec
	case containsAny(fmtStr, monthFmts):
		days := daysInMonth[int(t.Month())-1]
		if t.Month() == time.February && isLeap(t.Year()) {
			days++
		}
		return days * 24 * 60 * 60 * NanosInSec
	case containsAny(fmtStr, yearFmts):
		days := int64(365)
		if isLeap(t.Year()) {
			days++
		}
		return days * 24 * 60 * 60 * NanosInSec
	default:
		return 0
	}
}

// ToTime converts nanoseconds-since-epoch to a UTC time.Time.
func ToTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

// PartitionMinTS returns the inclusive lower bound, in nanoseconds, of the
// partition bucket containing t under partitionFmt.
func PartitionMinTS(partitionFmt string, t time.Time) int64 {
	increment := highestResSpecifier(partitionFmt, t)
	if increment == 0 {
		return math.MinInt64
	}
	nanos := t.UnixNano()
	return nanos - floorMod(nanos, increment)
}

// PartitionMaxTS returns the inclusive upper bound, in nanoseconds, of the
// partition bucket containing t under partitionFmt.
func PartitionMaxTS(partitionFmt string, t time.Time) int64 {
	increment := highestResSpecifier(partitionFmt, t)
	if increment == 0 {
		return math.MaxInt64
	}
	nanos := t.UnixNano()
	return (nanos/increment+1)*increment - 1
}

func floorMod(n, m int64) int64 {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// PartitionDir formats ts via partitionFmt into a directory name. An empty
// format maps every timestamp to the single bucket "all".
func PartitionDir(partitionFmt string, ts int64) string {
	if partitionFmt == "" {
		return "all"
	}
	t := ToTime(ts)
	return strftime.Format(partitionFmt, t)
}
