// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const maxRouteDomain = 65534

// F5 formats used by the AS3 schema (lib/adcParserFormats.js of AS3).
var formatRegexps = map[string]*regexp.Regexp{
	"f5name":    anchoredRegexp(`([A-Za-z][0-9A-Za-z_]{0,63})?$`),
	"f5bigip":   anchoredRegexp(`\x2f[^\x00-\x19\x22#'*<>?\x5b-\x5d\x7b-\x7d\x7f]+$`),
	"f5long-id": anchoredRegexp(`[^\x00-\x20\x22'<>\x5c^\x60|\x7f]{0,255}$`),
	"f5label":   anchoredRegexp(`[^\x00-\x1f\x22#&*<>?\x5b-\x5d\x60\x7f]{0,64}$`),
	"f5remark":  anchoredRegexp(`[^\x00-\x1f\x22\x5c\x7f]{0,64}$`),
	"f5pointer": anchoredRegexp(`((@|[0-9]+)|(([0-9]*\x2f)?((@|[0-9]+|[A-Za-z][0-9A-Za-z_]{0,63})\x2f)*([0-9]+|([A-Za-z][0-9A-Za-z_]{0,63}))))?#?$`),
	"f5base64":  anchoredRegexp(`([0-9A-Za-z\/+_-]*|[0-9A-Za-z\/+_-]+={1,2})$`),
}

func anchoredRegexp(expr string) *regexp.Regexp {
	return regexp.MustCompile("^(?:" + expr + ")")
}

func init() {
	for name, checker := range FormatCheckers() {
		gojsonschema.FormatCheckers.Add(name, checker)
	}
}

// FormatCheckers returns the F5 specific format checkers by format name.
func FormatCheckers() map[string]gojsonschema.FormatChecker {
	result := map[string]gojsonschema.FormatChecker{
		"f5ip":   ipFormatChecker{},
		"f5ipv4": ipFormatChecker{family: 4},
		"f5ipv6": ipFormatChecker{family: 6},
	}
	for name, re := range formatRegexps {
		result[name] = regexpFormatChecker{re}
	}
	return result
}

type regexpFormatChecker struct {
	re *regexp.Regexp
}

func (c regexpFormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	if !ok {
		return false
	}
	return c.re.MatchString(str)
}

// ipFormatChecker accepts addresses in F5 notation: addr[%routeDomain][/mask].
// Family 0 accepts both IPv4 and IPv6.
type ipFormatChecker struct {
	family int
}

func (c ipFormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	if !ok {
		return false
	}

	addr, ok := parseF5IP(str)
	if !ok {
		return false
	}

	switch c.family {
	case 4:
		return addr.Is4()
	case 6:
		return addr.Is6()
	default:
		return true
	}
}

func parseF5IP(val string) (netip.Addr, bool) {
	addrStr, maskStr, hasMask := strings.Cut(val, "/")
	addrStr, routeDomain, hasRouteDomain := strings.Cut(addrStr, "%")

	if hasRouteDomain && len(routeDomain) > 0 {
		rd, err := strconv.Atoi(routeDomain)
		if err != nil || rd < 0 || rd > maxRouteDomain {
			return netip.Addr{}, false
		}
	}

	addr, err := netip.ParseAddr(addrStr)
	if err != nil || len(addr.Zone()) > 0 {
		return netip.Addr{}, false
	}

	if hasMask {
		bits, err := strconv.Atoi(maskStr)
		if err != nil || bits < 0 || bits > addr.BitLen() {
			return netip.Addr{}, false
		}
		// host bits must not be set
		if netip.PrefixFrom(addr, bits).Masked().Addr() != addr {
			return netip.Addr{}, false
		}
	}

	if addr.IsLoopback() {
		return netip.Addr{}, false
	}
	return addr, true
}
