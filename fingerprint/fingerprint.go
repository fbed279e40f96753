// Package fingerprint derives the weak device identifier used to spot one
// device marking attendance for several roll numbers.
//
// The value is not a security boundary. Devices that report identical
// attributes collide, and that is accepted.
package fingerprint

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/anuragrao04/classroom-attendance/models"
)

const separator = "|"

// Derive joins the attributes with "|" and folds them into a signed 32-bit
// hash, returned in decimal. A zero HardwareConcurrency is treated as not
// reported and contributes an empty field.
func Derive(attrs models.DeviceAttributes) string {
	cores := ""
	if attrs.HardwareConcurrency > 0 {
		cores = strconv.Itoa(attrs.HardwareConcurrency)
	}
	joined := strings.Join([]string{
		attrs.UserAgent,
		attrs.Language,
		strconv.Itoa(attrs.ScreenWidth),
		strconv.Itoa(attrs.ScreenHeight),
		strconv.Itoa(attrs.TimezoneOffset),
		cores,
	}, separator)
	return Hash(joined)
}

// Hash folds s with h = (h<<5) - h + c over its UTF-16 code units, so the
// result matches what a browser computes with charCodeAt.
func Hash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}

// Resolve picks the identifier for a submission: attributes are folded when
// present, otherwise the client-computed value is used as is.
func Resolve(precomputed string, attrs *models.DeviceAttributes) string {
	if attrs != nil {
		return Derive(*attrs)
	}
	return strings.TrimSpace(precomputed)
}
